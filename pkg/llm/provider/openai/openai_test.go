package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleyhq/parley/pkg/llm"
	"github.com/parleyhq/parley/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	Describe("Name", func() {
		It("returns 'openai'", func() {
			Expect(openai.New("sk-test").Name()).To(Equal("openai"))
		})
	})

	Describe("Chat", func() {
		var (
			server   *httptest.Server
			received *http.Request
			reqBody  map[string]any
			status   int
			respBody string
		)

		BeforeEach(func() {
			received = nil
			reqBody = nil
			status = http.StatusOK
			respBody = `{
				"id": "chatcmpl-abc",
				"model": "gpt-4o-mini",
				"created": 1700000000,
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi!"}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
			}`

			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				received = r
				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &reqBody)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(respBody))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		newRequest := func() *llm.ChatRequest {
			return &llm.ChatRequest{
				Model: "gpt-4o-mini",
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Be helpful."},
					{Role: llm.RoleUser, Content: "hi"},
				},
			}
		}

		It("parses a successful completion", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			resp, err := c.Chat(context.Background(), newRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ID).To(Equal("chatcmpl-abc"))
			Expect(resp.Model).To(Equal("gpt-4o-mini"))
			Expect(resp.Message.Role).To(Equal(llm.RoleAssistant))
			Expect(resp.Message.Content).To(Equal("Hi!"))
			Expect(resp.Usage).NotTo(BeNil())
			Expect(resp.Usage.TotalTokens).To(Equal(15))
		})

		It("posts to the chat completions path with a bearer token", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(received.Method).To(Equal(http.MethodPost))
			Expect(received.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(received.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(received.Header.Get("Content-Type")).To(Equal("application/json"))
		})

		It("does not duplicate a /v1 suffix in the base URL", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL+"/v1"))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(received.URL.Path).To(Equal("/v1/chat/completions"))
		})

		It("omits absent generation parameters from the wire request", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(reqBody).NotTo(HaveKey("temperature"))
			Expect(reqBody).NotTo(HaveKey("top_p"))
			Expect(reqBody).NotTo(HaveKey("max_tokens"))
		})

		It("sends generation parameters when present", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			temp := 0.4
			maxTokens := 128
			req := newRequest()
			req.Temperature = &temp
			req.MaxTokens = &maxTokens

			_, err := c.Chat(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqBody["temperature"]).To(BeNumerically("==", 0.4))
			Expect(reqBody["max_tokens"]).To(BeNumerically("==", 128))
		})

		It("defaults a missing reply role to assistant", func() {
			respBody = `{
				"id": "chatcmpl-abc",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"content": "Hi!"}}]
			}`
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			resp, err := c.Chat(context.Background(), newRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.Role).To(Equal(llm.RoleAssistant))
		})

		It("refuses to send without a credential", func() {
			c := openai.New("", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(errors.Is(err, llm.ErrMissingAPIKey)).To(BeTrue())
			Expect(received).To(BeNil())
		})

		It("returns a status error with the provider message on non-2xx", func() {
			status = http.StatusTooManyRequests
			respBody = `{"error": {"message": "Rate limit reached", "type": "requests"}}`
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(err).To(HaveOccurred())

			var statusErr *llm.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusTooManyRequests))
			Expect(statusErr.Message).To(Equal("Rate limit reached"))
		})

		It("returns a status error even when the body is not the error envelope", func() {
			status = http.StatusBadGateway
			respBody = `upstream exploded`
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())

			var statusErr *llm.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(statusErr.Message).To(BeEmpty())
			Expect(statusErr.Body).To(Equal("upstream exploded"))
		})

		It("errors when the response carries no choices", func() {
			respBody = `{"id": "chatcmpl-abc", "model": "gpt-4o-mini", "choices": []}`
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), newRequest())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no choices"))
		})

		It("rejects a nil request", func() {
			c := openai.New("sk-test", openai.WithBaseURL(server.URL))

			_, err := c.Chat(context.Background(), nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
