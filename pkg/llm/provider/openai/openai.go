// Package openai implements the Provider interface for OpenAI-compatible
// Chat Completions APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parleyhq/parley/pkg/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is a focused OpenAI-compatible client for chat completions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client created with New.
type Option func(*Client)

// WithBaseURL overrides the API base URL (e.g. for compatible providers or
// test servers).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient overrides the HTTP client. The client's timeout is the
// upper bound on how long a chat request may take.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Client. An empty apiKey is not an error here: the
// credential is checked per request so the relay can surface a stable
// configuration error instead of failing to boot.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return "openai"
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Chat sends a sanitized chat request to the provider and parses the reply.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil {
		return nil, errors.New("openai: request must not be nil")
	}
	if c.apiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.doJSONRequest(httpReq)
	if err != nil {
		return nil, err
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}

	msg := payload.Choices[0].Message
	if msg.Role == "" {
		msg.Role = llm.RoleAssistant
	}

	resp := &llm.ChatResponse{
		ID:        payload.ID,
		Model:     payload.Model,
		CreatedAt: time.Unix(payload.Created, 0),
		Message:   msg,
	}
	if payload.Usage != nil {
		resp.Usage = &llm.Usage{
			PromptTokens:     payload.Usage.PromptTokens,
			CompletionTokens: payload.Usage.CompletionTokens,
			TotalTokens:      payload.Usage.TotalTokens,
		}
	}

	return resp, nil
}

// doJSONRequest executes the request and returns the response body. Non-2xx
// responses become a *llm.StatusError carrying the provider's own error
// message when the body follows the {"error": {"message": ...}} envelope.
func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		statusErr := &llm.StatusError{
			StatusCode: res.StatusCode,
			Body:       string(buf),
		}
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(buf, &envelope); jsonErr == nil {
			statusErr.Message = strings.TrimSpace(envelope.Error.Message)
		}
		return nil, statusErr
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response body: %w", err)
	}
	return buf, nil
}
