// Package health probes the relay's liveness endpoint. The prober is a
// narrow capability injected into the chat client; how often it is called
// and how the result is rendered are the caller's concern.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Prober reports whether a relay at the given base URL is alive.
type Prober interface {
	Probe(ctx context.Context, baseURL string) bool
}

// HTTPProber probes GET <baseURL>/health and checks the ok field.
type HTTPProber struct {
	httpClient *http.Client
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithHTTPClient overrides the HTTP client used for probes.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *HTTPProber) {
		p.httpClient = httpClient
	}
}

// NewHTTPProber creates an HTTPProber with a short probe timeout.
func NewHTTPProber(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		httpClient: &http.Client{Timeout: 3 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns true only when the relay responds 200 with {"ok": true}.
// Any transport failure, bad status, or malformed body reads as "down".
func (p *HTTPProber) Probe(ctx context.Context, baseURL string) bool {
	url := strings.TrimRight(baseURL, "/") + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false
	}

	return body.OK
}
