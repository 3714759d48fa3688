// Package relay implements the chat relay server. It validates and bounds
// client-supplied message histories, composes the final instruction set,
// forwards the sanitized request to the upstream LLM provider, and maps
// upstream failures onto a stable client-facing contract.
package relay

import (
	"errors"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/llm/provider"
)

// ServiceName identifies the relay in health responses and logs.
const ServiceName = "parley-relay"

// Relay is the chat relay server.
type Relay struct {
	config    Config
	sanitizer *Sanitizer
	provider  provider.Provider
	logger    *slog.Logger
	server    *fiber.App
}

// New creates a new Relay. The provider is injected so handlers can be
// exercised against a test double.
func New(config Config, prov provider.Provider, logger *slog.Logger) (*Relay, error) {
	if prov == nil {
		return nil, errors.New("relay: provider is required")
	}
	if logger == nil {
		return nil, errors.New("relay: logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	origins := config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
	}))

	r := &Relay{
		config:    config,
		sanitizer: NewSanitizer(config.SystemPrompt, config.DefaultModel),
		provider:  prov,
		logger:    logger,
		server:    app,
	}

	app.Post("/api/chat", r.handleChat)
	app.Get("/health", r.handleHealth)

	return r, nil
}

// Run starts the relay server on the configured address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"provider", r.provider.Name(),
	)
	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"provider", r.provider.Name(),
	)
	return r.server.Listener(listener)
}

// Shutdown gracefully shuts down the relay server.
func (r *Relay) Shutdown() error {
	return r.server.Shutdown()
}
