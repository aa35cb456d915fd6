// Package logging configures the zerolog logger shared by the engines, the
// HTTP transport and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs fetch flow, merges and discarded responses.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs startup and completed page walks.
	LevelInfo LogLevel = "info"

	// LevelWarn logs failed fetches and rate limit throttling.
	LevelWarn LogLevel = "warn"

	// LevelError logs configuration errors and blocked requests.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `validate:"oneof=debug info warn error"`

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Service is attached to every entry when set.
	Service string

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `validate:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("logger config validation error: %w", err)
	}
	return nil
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a user supplied level name, accepting "warning" as an
// alias of warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level, defaulting to info.
func parseLevel(level LogLevel) zerolog.Level {
	lvl, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch lvl {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Context fields used across the module:
//   - component: request-engine, pagination-engine, http-client, ratelimit, cli
//   - endpoint: bound resource address
//   - key: deterministic binding identity (endpoint plus encoded params)
//   - seq: fetch sequence number within a binding
//   - page / page_count: pagination metadata after a response
//   - duration: transport call duration
//   - status: HTTP status code
//   - remaining: rate limit quota left
