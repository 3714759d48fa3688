// Package logger provides opinionated logging for the parley system.
//
// New returns a *slog.Logger so every component logs through the standard
// structured interface; the handler behind it is chosen by options: slog's
// text handler by default, JSON for service logs, or charmbracelet/log for
// colorized CLI output. Multi fans one record out to several loggers, e.g.
// console plus a log file.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	writer io.Writer
}

// New creates a *slog.Logger configured by the given options.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	var handler slog.Handler
	switch {
	case c.pretty:
		handler = charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case c.json:
		handler = slog.NewJSONHandler(c.writer, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	default:
		handler = slog.NewTextHandler(c.writer, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}

	return slog.New(handler)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
