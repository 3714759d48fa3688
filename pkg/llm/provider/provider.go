// Package provider defines the interface for upstream LLM chat-completion
// providers. Each implementation knows how to speak one provider's wire
// format; the relay only ever sees the internal types in pkg/llm.
package provider

import (
	"context"

	"github.com/parleyhq/parley/pkg/llm"
)

// Provider is an upstream chat-completion service.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai")
	Name() string

	// Chat sends a sanitized request upstream and returns the parsed
	// response. Failures surface as typed errors (*llm.StatusError for
	// non-2xx responses, llm.ErrMissingAPIKey for an absent credential,
	// transport errors otherwise); the caller classifies them. No retries.
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}
