package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"weback-home/config"
)

// New builds the process logger. Every record carries the service name and
// build version.
func New(cfg config.LogConfig, version string) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, version)
}

func NewWithWriter(w io.Writer, cfg config.LogConfig, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "weback-home"),
		slog.String("version", version),
	})

	return slog.New(handler)
}

// ParseLevel defaults to info for anything it does not recognise.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
