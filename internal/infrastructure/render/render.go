// Package render writes an assembled newsletter document to disk.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/ports"
)

const (
	FormatText = "txt"
	FormatEPUB = "epub"
)

// New picks the renderer for the configured output format.
func New(cfg config.NewsletterConfig, logger *slog.Logger) (ports.Renderer, error) {
	switch cfg.OutputFormat {
	case FormatEPUB:
		return NewEPUBRenderer(cfg.OutputDir, cfg.EPUB, logger), nil
	case FormatText, "":
		return NewTextRenderer(cfg.OutputDir), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.OutputFormat)
	}
}

// OutputPath is <dir>/newsletter-<YYYY-MM-DD>.<ext> for the generation day.
func OutputPath(dir string, at time.Time, ext string) string {
	if dir == "" {
		dir = "."
	}
	if at.IsZero() {
		at = time.Now()
	}
	return filepath.Join(dir, fmt.Sprintf("newsletter-%s.%s", at.Format("2006-01-02"), ext))
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "no date"
	}
	return t.Format("2006-01-02 15:04")
}
