package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/parleyhq/parley/pkg/llm"
)

// ChatResponseBody is the success envelope for POST /api/chat.
type ChatResponseBody struct {
	Content string  `json:"content"`
	Role    string  `json:"role"`
	Raw     RawInfo `json:"raw"`
}

// RawInfo carries provider metadata the client may display but must not
// depend on.
type RawInfo struct {
	ID    string     `json:"id"`
	Model string     `json:"model"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Time    string `json:"time"`
}

// handleChat sanitizes the client request, forwards it upstream, and maps
// the outcome onto the client-facing contract.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	log := r.logger.With("request_id", c.Locals(requestid.ConfigDefault.ContextKey))

	var raw RawRequest
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "request body must be a JSON object"})
	}

	req, err := r.sanitizer.Sanitize(raw)
	if err != nil {
		var validationErr *llm.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: validationErr.Error()})
		}
		log.Error("sanitize failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}

	log.Debug("forwarding chat request",
		"model", req.Model,
		"message_count", len(req.Messages),
	)

	ctx, cancel := context.WithTimeout(c.Context(), r.config.requestTimeout())
	defer cancel()

	start := time.Now()
	resp, err := r.provider.Chat(ctx, req)
	if err != nil {
		// A missing credential is an operator problem; say so without
		// describing the secret.
		if errors.Is(err, llm.ErrMissingAPIKey) {
			log.Error("provider credential is not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "The AI backend is not configured. Please contact the administrator."})
		}

		classified := Classify(err)
		log.Warn("upstream chat failed",
			"status", classified.StatusCode,
			"error", err,
		)
		return c.Status(classified.StatusCode).JSON(llm.ErrorResponse{Error: classified.Message})
	}

	log.Debug("received upstream response",
		"model", resp.Model,
		"duration", time.Since(start),
	)

	role := resp.Message.Role
	if role == "" {
		role = llm.RoleAssistant
	}

	return c.JSON(ChatResponseBody{
		Content: resp.Message.Content,
		Role:    role,
		Raw: RawInfo{
			ID:    resp.ID,
			Model: resp.Model,
			Usage: resp.Usage,
		},
	})
}

// handleHealth is the liveness probe polled by clients.
func (r *Relay) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		OK:      true,
		Service: ServiceName,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}
