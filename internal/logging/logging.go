// Package logging provides structured diagnostics using Go's log/slog.
//
// pf's stderr carries contractual output (warnings, parse diagnostics), so
// logging is off unless explicitly requested:
//   - PF_LOG: debug, info, warn, error (unset: all logging discarded)
//   - PF_LOG_FORMAT: text, json (default: text)
//
// Log lines go to stderr and are only emitted when PF_LOG is set, keeping
// the default stderr stream byte-stable for scripted callers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log levels re-exported for convenience
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config holds logging configuration
type Config struct {
	Enabled bool
	Level   slog.Level
	Format  string    // "text" or "json"
	Output  io.Writer // defaults to os.Stderr
	Source  string    // component name for context
}

// LoadConfigFromEnv reads logging config from PF_LOG and PF_LOG_FORMAT.
// When PF_LOG is unset or unrecognized the returned config is disabled.
func LoadConfigFromEnv(source string) Config {
	cfg := Config{
		Format: "text",
		Output: os.Stderr,
		Source: source,
	}

	switch strings.ToLower(os.Getenv("PF_LOG")) {
	case "debug":
		cfg.Enabled, cfg.Level = true, LevelDebug
	case "info":
		cfg.Enabled, cfg.Level = true, LevelInfo
	case "warn", "warning":
		cfg.Enabled, cfg.Level = true, LevelWarn
	case "error":
		cfg.Enabled, cfg.Level = true, LevelError
	}

	if format := os.Getenv("PF_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}

	return cfg
}

// New creates a configured slog.Logger with the given configuration.
func New(cfg Config) *slog.Logger {
	if !cfg.Enabled {
		return Nop()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With("source", cfg.Source)
}

// Default returns a logger with configuration loaded from environment.
// This is the recommended way to create a logger in CLI entry points.
func Default(source string) *slog.Logger {
	return New(LoadConfigFromEnv(source))
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

// nopWriter implements io.Writer and discards all data.
type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) {
	return len(p), nil
}
