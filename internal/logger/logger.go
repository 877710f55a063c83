// Package logger configures zerolog for keytyper and carries loggers on contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	Level  zerolog.Level
	Format string // "json" or "console"
}

// DefaultConfig returns the console/info configuration
func DefaultConfig() Config {
	return Config{
		Level:  zerolog.InfoLevel,
		Format: "console",
	}
}

// ParseLevel maps a level name to a zerolog level, falling back to info
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a zerolog logger writing to w (stderr when nil)
func New(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	output := w
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// Global default logger
var defaultLogger = New(DefaultConfig(), nil)

// SetDefault replaces the package default logger
func SetDefault(l zerolog.Logger) { defaultLogger = l }

// FromContext extracts the logger from ctx, falling back to the default logger
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := defaultLogger
	return &l
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// WithComponent creates a child logger with a component field
func WithComponent(ctx context.Context, component string) context.Context {
	child := FromContext(ctx).With().Str("component", component).Logger()
	return WithContext(ctx, child)
}

// Component returns a child of l tagged with component
func Component(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

