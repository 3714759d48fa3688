package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleyhq/parley/pkg/llm"
)

// decodeRaw runs a JSON body through the same decoding path the handler uses,
// so tests exercise the sanitizer with real json.Unmarshal value types.
func decodeRaw(body string) RawRequest {
	var raw RawRequest
	Expect(json.Unmarshal([]byte(body), &raw)).To(Succeed())
	return raw
}

// userTurnsBody builds a request body of n user turns "turn 0".."turn n-1".
func userTurnsBody(n int) string {
	var b strings.Builder
	b.WriteString(`{"messages": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"role": "user", "content": "turn %d"}`, i)
	}
	b.WriteString(`]}`)
	return b.String()
}

var _ = Describe("Sanitizer", func() {
	var s *Sanitizer

	BeforeEach(func() {
		s = NewSanitizer("You are a helpful assistant.", "gpt-4o-mini")
	})

	Describe("message handling", func() {
		It("injects a system turn first when the caller supplied none", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
			Expect(req.Messages[0].Content).To(HavePrefix("You are a helpful assistant."))
			Expect(req.Messages[0].Content).To(ContainSubstring("Follow-up suggestions"))
			Expect(req.Messages[1]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "hi"}))
		})

		It("uses a caller-provided system turn verbatim", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "system", "content": "You are a pirate."},
				{"role": "user", "content": "hi"}
			]}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Content).To(Equal("You are a pirate."))
			Expect(req.Messages[0].Content).NotTo(ContainSubstring("Follow-up suggestions"))
		})

		It("preserves conversation order", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "user", "content": "one"},
				{"role": "assistant", "content": "two"},
				{"role": "user", "content": "three"}
			]}`))
			Expect(err).NotTo(HaveOccurred())

			contents := make([]string, 0, len(req.Messages))
			for _, m := range req.Messages[1:] {
				contents = append(contents, m.Content)
			}
			Expect(contents).To(Equal([]string{"one", "two", "three"}))
		})

		It("normalizes unknown roles to user", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "wizard", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Role).To(Equal(llm.RoleUser))
		})

		It("treats a missing role as user", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Role).To(Equal(llm.RoleUser))
		})

		It("coerces numeric content to text", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": 42}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Content).To(Equal("42"))
		})

		It("coerces boolean content to text", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": true}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Content).To(Equal("true"))
		})

		It("drops turns with null content", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "user", "content": null},
				{"role": "user", "content": "kept"}
			]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[1].Content).To(Equal("kept"))
		})

		It("drops turns with structured content", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "user", "content": {"parts": ["a"]}},
				{"role": "user", "content": ["a", "b"]},
				{"role": "user", "content": "kept"}
			]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages).To(HaveLen(2))
		})

		It("drops whitespace-only turns", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "user", "content": "   \t  "},
				{"role": "user", "content": "kept"}
			]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages).To(HaveLen(2))
		})

		It("drops non-object message entries", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": ["a string", 7, {"role": "user", "content": "kept"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages).To(HaveLen(2))
		})

		It("trims surrounding whitespace from content", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": "  hi there  "}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Content).To(Equal("hi there"))
		})

		It("truncates oversized content after trimming", func() {
			long := strings.Repeat("a", MaxContentLen+100)
			body := fmt.Sprintf(`{"messages": [{"role": "user", "content": %q}]}`, "  "+long)
			req, err := s.Sanitize(decodeRaw(body))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[1].Content).To(HaveLen(MaxContentLen))
		})

		It("keeps only the most recent turns when the history is too long", func() {
			req, err := s.Sanitize(decodeRaw(userTurnsBody(MaxTurns + 10)))
			Expect(err).NotTo(HaveOccurred())

			// The injected system turn counts against the limit, so the
			// window holds the last MaxTurns-1 client turns.
			Expect(req.Messages).To(HaveLen(MaxTurns))
			Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
			Expect(req.Messages[1].Content).To(Equal("turn 11"))
			Expect(req.Messages[MaxTurns-1].Content).To(Equal(fmt.Sprintf("turn %d", MaxTurns+9)))
		})

		It("never exceeds the turn limit when injecting into a full window", func() {
			req, err := s.Sanitize(decodeRaw(userTurnsBody(MaxTurns)))
			Expect(err).NotTo(HaveOccurred())

			Expect(len(req.Messages)).To(BeNumerically("<=", MaxTurns))
			Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
			Expect(req.Messages[1].Content).To(Equal("turn 1"))
			Expect(req.Messages[MaxTurns-1].Content).To(Equal(fmt.Sprintf("turn %d", MaxTurns-1)))
		})

		It("keeps a full window intact when the caller supplied the system turn", func() {
			var b strings.Builder
			b.WriteString(`{"messages": [{"role": "system", "content": "You are a pirate."}`)
			for i := 1; i < MaxTurns; i++ {
				fmt.Fprintf(&b, `,{"role": "user", "content": "turn %d"}`, i)
			}
			b.WriteString(`]}`)

			req, err := s.Sanitize(decodeRaw(b.String()))
			Expect(err).NotTo(HaveOccurred())

			Expect(req.Messages).To(HaveLen(MaxTurns))
			Expect(req.Messages[0].Content).To(Equal("You are a pirate."))
			Expect(req.Messages[1].Content).To(Equal("turn 1"))
		})
	})

	Describe("rejection", func() {
		It("rejects an empty message list", func() {
			_, err := s.Sanitize(decodeRaw(`{"messages": []}`))
			Expect(err).To(HaveOccurred())

			var validationErr *llm.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
		})

		It("rejects a missing messages field", func() {
			_, err := s.Sanitize(decodeRaw(`{}`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects when messages is not an array", func() {
			_, err := s.Sanitize(decodeRaw(`{"messages": "hello"}`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects when every turn is dropped", func() {
			_, err := s.Sanitize(decodeRaw(`{"messages": [
				{"role": "user", "content": "   "},
				{"role": "user", "content": null}
			]}`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("model selection", func() {
		It("falls back to the default model", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("gpt-4o-mini"))
		})

		It("uses the requested model when given", func() {
			req, err := s.Sanitize(decodeRaw(`{"model": "gpt-4o", "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("gpt-4o"))
		})

		It("ignores a blank or non-string model", func() {
			req, err := s.Sanitize(decodeRaw(`{"model": "  ", "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("gpt-4o-mini"))

			req, err = s.Sanitize(decodeRaw(`{"model": 3, "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("gpt-4o-mini"))
		})
	})

	Describe("generation parameters", func() {
		It("passes in-range values through", func() {
			req, err := s.Sanitize(decodeRaw(`{"temperature": 0.7, "top_p": 0.9, "max_tokens": 256, "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*req.Temperature).To(Equal(0.7))
			Expect(*req.TopP).To(Equal(0.9))
			Expect(*req.MaxTokens).To(Equal(256))
		})

		It("clamps out-of-range values", func() {
			req, err := s.Sanitize(decodeRaw(`{"temperature": 1.5, "top_p": -0.2, "max_tokens": 100000, "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*req.Temperature).To(Equal(1.0))
			Expect(*req.TopP).To(Equal(0.0))
			Expect(*req.MaxTokens).To(Equal(MaxTokensCeiling))
		})

		It("raises max_tokens below one to one", func() {
			req, err := s.Sanitize(decodeRaw(`{"max_tokens": 0, "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*req.MaxTokens).To(Equal(1))
		})

		It("truncates a fractional max_tokens", func() {
			req, err := s.Sanitize(decodeRaw(`{"max_tokens": 2.7, "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(*req.MaxTokens).To(Equal(2))
		})

		It("treats non-numeric values as absent", func() {
			req, err := s.Sanitize(decodeRaw(`{"temperature": "hot", "top_p": true, "max_tokens": "many", "messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Temperature).To(BeNil())
			Expect(req.TopP).To(BeNil())
			Expect(req.MaxTokens).To(BeNil())
		})

		It("leaves omitted values absent", func() {
			req, err := s.Sanitize(decodeRaw(`{"messages": [{"role": "user", "content": "hi"}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Temperature).To(BeNil())
			Expect(req.TopP).To(BeNil())
			Expect(req.MaxTokens).To(BeNil())
		})
	})

	Describe("composed prompt", func() {
		It("appends the follow-up instruction after the base prompt", func() {
			prompt := s.composedPrompt()
			Expect(prompt).To(HavePrefix("You are a helpful assistant."))
			Expect(prompt).To(ContainSubstring(`### Follow-up suggestions`))
		})

		It("uses the instruction alone when the base prompt is empty", func() {
			empty := NewSanitizer("", "gpt-4o-mini")
			Expect(empty.composedPrompt()).To(Equal(followUpInstruction))
		})
	})
})
