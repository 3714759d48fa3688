// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/llm/provider/openai"
	"github.com/parleyhq/parley/pkg/logger"
	"github.com/parleyhq/parley/relay"
)

type ServeCommander struct {
	listen         string
	baseURL        string
	model          string
	origins        string
	systemPrompt   string
	timeoutSeconds int
	apiKey         string
	logFile        string
	debug          bool

	logger *slog.Logger
}

const serveLongDesc string = `Run the parley relay server.

The relay accepts chat requests on POST /api/chat, sanitizes and bounds the
message history, injects the configured system prompt, forwards the request
to the upstream provider, and maps provider failures onto stable client
errors. GET /health answers liveness probes.

The provider credential is read from the PARLEY_PROVIDER_API_KEY environment
variable; it is never stored in the config file.

Examples:
  parley serve
  parley serve --listen :9090 --model gpt-4o
  PARLEY_PROVIDER_API_KEY=sk-... parley serve`

const serveShortDesc string = "Run the parley relay server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("listen") {
				cmder.listen = v.GetString("relay.listen")
			}
			if !cmd.Flags().Changed("base-url") {
				cmder.baseURL = v.GetString("provider.base_url")
			}
			if !cmd.Flags().Changed("model") {
				cmder.model = v.GetString("provider.model")
			}
			if !cmd.Flags().Changed("origins") {
				cmder.origins = v.GetString("relay.allowed_origins")
			}
			if !cmd.Flags().Changed("timeout") {
				cmder.timeoutSeconds = v.GetInt("provider.timeout_seconds")
			}
			cmder.systemPrompt = v.GetString("relay.system_prompt")
			cmder.apiKey = v.GetString("provider.api_key")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", defaults.Relay.Listen, "Address for the relay to listen on")
	cmd.Flags().StringVarP(&cmder.baseURL, "base-url", "u", defaults.Provider.BaseURL, "Upstream provider base URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", defaults.Provider.Model, "Default model when the client supplies none")
	cmd.Flags().StringVar(&cmder.origins, "origins", defaults.Relay.AllowedOrigins, "Comma-separated CORS origin allow-list")
	cmd.Flags().IntVar(&cmder.timeoutSeconds, "timeout", defaults.Provider.TimeoutSeconds, "Upstream request timeout in seconds")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run() error {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
	)
	c.logger = console

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer func() { _ = f.Close() }()

		c.logger = logger.Multi(console, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(true),
			logger.WithWriter(f),
		))
	}

	if c.apiKey == "" {
		// The server still starts so the health endpoint works; chat
		// requests answer with a configuration error.
		c.logger.Warn("PARLEY_PROVIDER_API_KEY is not set; chat requests will fail")
	}

	timeout := time.Duration(c.timeoutSeconds) * time.Second

	prov := openai.New(c.apiKey,
		openai.WithBaseURL(c.baseURL),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	relayConfig := relay.Config{
		ListenAddr:     c.listen,
		AllowedOrigins: c.origins,
		SystemPrompt:   c.systemPrompt,
		DefaultModel:   c.model,
		RequestTimeout: timeout,
	}

	r, err := relay.New(relayConfig, prov, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return r.Shutdown()
	}
}
