package relay

import (
	"math"
	"strconv"
	"strings"

	"github.com/parleyhq/parley/pkg/llm"
)

// Bounds applied by the sanitizer.
const (
	// MaxTurns is the maximum number of turns forwarded upstream; older
	// turns beyond it are silently dropped.
	MaxTurns = 50

	// MaxContentLen is the per-turn content length bound in characters.
	MaxContentLen = 4000

	// MaxTokensCeiling is the upper bound accepted for max_tokens.
	MaxTokensCeiling = 4096
)

// followUpInstruction is appended to the base system prompt so replies carry
// a machine-recognizable suggestions section for the client's quick-reply
// chips.
const followUpInstruction = `Structure your answers with markdown. ` +
	`After your answer, append a "### Follow-up suggestions" section ` +
	`containing 3-5 short follow-up questions the user might ask next, ` +
	`as a bullet or numbered list with one question per item.`

// RawRequest is the untrusted chat request body as decoded from client JSON.
// Every field is typed as any: the sanitizer, not the decoder, decides what
// is usable.
type RawRequest struct {
	Messages    any `json:"messages"`
	Model       any `json:"model"`
	Temperature any `json:"temperature"`
	TopP        any `json:"top_p"`
	MaxTokens   any `json:"max_tokens"`
}

// Sanitizer validates and bounds client-supplied message lists and composes
// the final instruction set. It is a pure function of its inputs plus the
// configured system prompt and default model.
type Sanitizer struct {
	systemPrompt string
	defaultModel string
}

// NewSanitizer creates a Sanitizer with the given base system prompt and
// default provider model.
func NewSanitizer(systemPrompt, defaultModel string) *Sanitizer {
	return &Sanitizer{
		systemPrompt: systemPrompt,
		defaultModel: defaultModel,
	}
}

// Sanitize turns an arbitrary client request into a bounded ChatRequest.
//
// Malformed fields are normalized rather than rejected: unknown roles become
// "user", numeric and boolean content is coerced to text, null or structured
// content drops the turn, whitespace-only turns are dropped, and content is
// truncated to MaxContentLen. The only rejection is a ValidationError when
// no turns survive. Leniency is a product decision: a single bad field never
// fails a request that still carries usable turns.
func (s *Sanitizer) Sanitize(raw RawRequest) (*llm.ChatRequest, error) {
	entries, _ := raw.Messages.([]any)
	if len(entries) > MaxTurns {
		entries = entries[len(entries)-MaxTurns:]
	}

	messages := make([]llm.Message, 0, len(entries))
	hasSystem := false
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		role := llm.RoleUser
		if r, ok := obj["role"].(string); ok && llm.KnownRole(r) {
			role = r
		}

		content, ok := coerceContent(obj["content"])
		if !ok {
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		content = truncateRunes(content, MaxContentLen)

		if role == llm.RoleSystem {
			hasSystem = true
		}
		messages = append(messages, llm.Message{Role: role, Content: content})
	}

	if len(messages) == 0 {
		return nil, llm.NewValidationError("messages must contain at least one non-empty turn")
	}

	// Only synthesize a system turn when the caller supplied none; a
	// caller-provided system turn is used verbatim. The window shrinks by
	// one so the injected turn never pushes the total past MaxTurns.
	if !hasSystem {
		if len(messages) > MaxTurns-1 {
			messages = messages[len(messages)-(MaxTurns-1):]
		}
		messages = append([]llm.Message{{
			Role:    llm.RoleSystem,
			Content: s.composedPrompt(),
		}}, messages...)
	}

	model := s.defaultModel
	if m, ok := raw.Model.(string); ok && strings.TrimSpace(m) != "" {
		model = m
	}

	return &llm.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: clampFloat(raw.Temperature, 0, 1),
		TopP:        clampFloat(raw.TopP, 0, 1),
		MaxTokens:   clampInt(raw.MaxTokens, 1, MaxTokensCeiling),
	}, nil
}

func (s *Sanitizer) composedPrompt() string {
	base := strings.TrimSpace(s.systemPrompt)
	if base == "" {
		return followUpInstruction
	}
	return base + "\n\n" + followUpInstruction
}

// coerceContent converts a JSON content value to text. Strings pass through,
// numbers and booleans are formatted; anything else (null, arrays, objects)
// reports false and the turn is dropped.
func coerceContent(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, true
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(c), true
	}
	return "", false
}

// truncateRunes bounds s to at most n characters. A plain length bound, not
// sentence-aware.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// clampFloat clamps a numeric value into [lo, hi]. Non-numeric or NaN inputs
// become absent, never an error.
func clampFloat(v any, lo, hi float64) *float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return nil
	}
	f = math.Min(math.Max(f, lo), hi)
	return &f
}

// clampInt clamps a numeric value into [lo, hi], truncating any fraction.
// Non-numeric or NaN inputs become absent, never an error.
func clampInt(v any, lo, hi int) *int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return nil
	}
	n := int(f)
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return &n
}
