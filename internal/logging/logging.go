package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"NewsletterBuilder/internal/config"
)

// New creates a slog.Logger from the logging section. Output always goes to
// stdout and is teed into a rotated file when one is configured. The closer
// releases that file and must be called once logging is done.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	w, closer := Output(cfg)
	return NewWithWriter(cfg, w), closer
}

// NewWithWriter builds the handler on top of an explicit writer.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Output resolves the destination for log lines and the closer for any file
// it opened. Stdout itself is never closed.
func Output(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return os.Stdout, nopCloser{}
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	return io.MultiWriter(os.Stdout, rotated), rotated
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
