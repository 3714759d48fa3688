package relay

import "time"

// Config is the relay server configuration. Everything the relay needs is
// explicit here; nothing is read from ambient process environment so the
// server stays testable without environment setup.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// AllowedOrigins is the comma-separated CORS origin allow-list
	// (e.g., "https://chat.example.com"). Empty means "*".
	AllowedOrigins string

	// SystemPrompt is the base system prompt injected into requests that
	// carry no system turn of their own.
	SystemPrompt string

	// DefaultModel is used when the client supplies no model.
	DefaultModel string

	// RequestTimeout is the fixed upper bound on one upstream call.
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 60 * time.Second

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return c.RequestTimeout
}
