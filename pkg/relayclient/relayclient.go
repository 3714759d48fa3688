// Package relayclient is the HTTP client for the relay's chat API. It is the
// client-side transport half of the chat loop: it posts the conversation,
// decodes the relay's success or error envelope, and enforces the
// single-in-flight-request rule.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/parleyhq/parley/pkg/llm"
)

// ChatParams is the request body for POST /api/chat.
type ChatParams struct {
	Messages    []llm.Message `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// Reply is the decoded success envelope.
type Reply struct {
	Content string `json:"content"`
	Role    string `json:"role"`
	Raw     Raw    `json:"raw"`
}

// Raw carries provider metadata echoed by the relay.
type Raw struct {
	ID    string     `json:"id"`
	Model string     `json:"model"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// RelayError is a non-2xx relay response with its classified message.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("relay returned status %d", e.StatusCode)
}

// Client posts conversations to a relay.
type Client struct {
	target     string
	httpClient *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client for the relay at target (scheme + host + port).
func New(target string, opts ...Option) *Client {
	c := &Client{
		target: strings.TrimRight(target, "/"),
		httpClient: &http.Client{
			// LLM responses can be slow; the relay enforces its own
			// upstream timeout well inside this bound.
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the conversation to the relay and decodes the reply. At most
// one request is in flight per client: a new call cancels any still-pending
// previous one (the relay call is abandoned client-side; the upstream
// provider may keep processing).
func (c *Client) Send(ctx context.Context, params ChatParams) (*Reply, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.target + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to relay: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading relay response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		relayErr := &RelayError{StatusCode: res.StatusCode}
		var envelope llm.ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &envelope); jsonErr == nil {
			relayErr.Message = envelope.Error
		}
		return nil, relayErr
	}

	reply := &Reply{}
	if err := json.Unmarshal(respBody, reply); err != nil {
		return nil, fmt.Errorf("decoding relay response: %w", err)
	}

	return reply, nil
}
