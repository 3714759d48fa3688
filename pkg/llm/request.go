// Package llm contains the provider-agnostic chat types shared by the relay,
// the provider clients, and the terminal client.
package llm

// ChatRequest is a sanitized chat completion request. This is the internal
// representation produced by the relay's sanitizer; only bounded, normalized
// requests ever reach a provider client.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini")
	Model string `json:"model"`

	// Conversation messages, system turn first when one was injected
	Messages []Message `json:"messages"`

	// Sampling parameters. Nil means "absent": the provider's own
	// default applies.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}
