// Package log builds the application's slog loggers.
//
// This package provides:
//   - A type alias for *slog.Logger to use as a DI dependency
//   - Factory functions that turn config values into configured loggers
//   - A Nop logger for tests
//
// Loggers are injected, not global: cmd builds the process logger from
// config and components receive it (or a logger.With derivative) through
// their Config structs, defaulting to slog.Default() when nil.
//
// Usage:
//
//	logger := log.New(log.Config{Level: "debug", JSON: true})
//	store, err := history.NewStore(db, logger.With("component", "history"))
//
//	// In tests, discard or capture:
//	quiet := log.NewNop()
//	var buf bytes.Buffer
//	captured := log.NewWithWriter(&buf, log.Config{})
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a type alias for *slog.Logger. Components should accept
// log.Logger (or *slog.Logger, same type) as a dependency; the alias
// keeps full compatibility with the slog ecosystem and With().
type Logger = *slog.Logger

// Config defines logger configuration options. The zero value is a text
// logger at info level.
type Config struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Unknown values fall back to info.
	Level string

	// JSON enables JSON output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries.
	AddSource bool
}

// ParseLevel maps a config level string to a slog.Level. Matching is
// case-insensitive; anything unrecognized is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger with the given configuration, writing to stderr.
// Stdout stays free for command output and MCP JSON-RPC traffic.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger that writes to the given writer.
// Useful for tests that inspect log output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output. Test use only;
// production code should always configure a real writer.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
