package llm

import "time"

// ChatResponse is a provider-agnostic chat completion response.
type ChatResponse struct {
	// Provider-assigned response ID
	ID string `json:"id"`

	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The assistant's reply
	Message Message `json:"message"`

	// Token usage, when the provider reports it
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ErrorResponse is the JSON error envelope returned to clients.
type ErrorResponse struct {
	Error string `json:"error"`
}
