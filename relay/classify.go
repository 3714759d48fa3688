package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/parleyhq/parley/pkg/llm"
)

// Stable client-facing messages for classified upstream failures. Raw
// provider status codes and messages never leak to clients except through
// the final passthrough branch.
const (
	msgTimeout      = "The AI took too long to respond. Please try again."
	msgUnreachable  = "Unable to reach the AI service. Please try again in a moment."
	msgUnauthorized = "The AI backend is not authorized. Please contact the administrator."
	msgRateLimited  = "The AI is receiving too many requests. Please slow down and try again shortly."
	msgServerError  = "The AI provider is having an issue. Please try again later."
	msgUnexpected   = "The AI provider returned an unexpected error."
)

// Classify maps whatever failure a provider call raised onto exactly one
// llm.ProviderError. It is total: any error, including nil, yields a defined
// classification. First match wins:
//
//   - upstream status 401/403: masked as 500 (an authorization failure is an
//     operator misconfiguration, not a client error)
//   - upstream status 429: 429
//   - upstream status >= 500: 502
//   - any other upstream status: passthrough of status and provider message
//   - no status, timed out: 504
//   - no status (generic network failure): 502
func Classify(err error) *llm.ProviderError {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized,
			statusErr.StatusCode == http.StatusForbidden:
			return &llm.ProviderError{StatusCode: http.StatusInternalServerError, Message: msgUnauthorized}
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return &llm.ProviderError{StatusCode: http.StatusTooManyRequests, Message: msgRateLimited}
		case statusErr.StatusCode >= 500:
			return &llm.ProviderError{StatusCode: http.StatusBadGateway, Message: msgServerError}
		default:
			msg := statusErr.Message
			if msg == "" {
				msg = msgUnexpected
			}
			return &llm.ProviderError{StatusCode: statusErr.StatusCode, Message: msg}
		}
	}

	if isTimeout(err) {
		return &llm.ProviderError{StatusCode: http.StatusGatewayTimeout, Message: msgTimeout}
	}

	return &llm.ProviderError{StatusCode: http.StatusBadGateway, Message: msgUnreachable}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
