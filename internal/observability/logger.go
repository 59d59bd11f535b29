package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a slog logger writing to stderr. format is "json" or "text";
// level is one of debug, info, warn, error and defaults to info.
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
