package llm

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates the provider credential was never configured.
// Handlers must map this to a generic 500 that does not describe the secret.
var ErrMissingAPIKey = errors.New("llm: provider API key is not configured")

// ValidationError indicates the relay rejected the request before reaching
// the provider.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError returns a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ProviderError is the stable, provider-agnostic classification of an
// upstream failure: the status the relay responds with and the message shown
// to the user.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// StatusError captures a non-2xx upstream response with status-aware context.
// Message holds the provider's own error message when one could be parsed
// from the response body.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm: upstream status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: upstream status %d", e.StatusCode)
}

// HTTPStatusCode returns the upstream HTTP status.
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}
