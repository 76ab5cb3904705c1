// Package log configures the process-wide slog logger. Every binary
// calls Setup once at startup; packages tag their loggers with
// WithModule so log lines can be filtered per subsystem.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on stderr at the given level. Unknown
// or empty level names fall back to info.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})))
}

// WithModule returns the default logger tagged with a module attribute.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
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
