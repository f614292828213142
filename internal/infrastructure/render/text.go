package render

import (
	"context"
	"fmt"
	"os"
	"strings"

	"NewsletterBuilder/internal/birthday"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

const (
	rule      = "==============================================================="
	separator = "---------------------------------------------------------------"
)

// TextRenderer writes a plain-text newsletter.
type TextRenderer struct {
	dir string
}

var _ ports.Renderer = (*TextRenderer)(nil)

// NewTextRenderer writes plain text newsletters into dir.
func NewTextRenderer(dir string) *TextRenderer {
	return &TextRenderer{dir: dir}
}

// Format implements ports.Renderer.
func (r *TextRenderer) Format() string { return FormatText }

// Render writes the document and returns the file path.
func (r *TextRenderer) Render(ctx context.Context, doc domain.NewsletterDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := OutputPath(r.dir, doc.GeneratedAt, FormatText)
	if err := ensureDir(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(FormatDocument(doc)), 0o644); err != nil {
		return "", fmt.Errorf("write newsletter: %w", err)
	}
	return path, nil
}

// FormatDocument lays the document out as plain text.
func FormatDocument(doc domain.NewsletterDocument) string {
	var b strings.Builder

	if doc.Title != "" {
		b.WriteString(doc.Title + "\n")
	}
	fmt.Fprintf(&b, "Generated: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString(rule + "\n\n")

	if q := doc.Quote; q != nil && q.Text != "" {
		fmt.Fprintf(&b, "Quote of the day: %s", q.Text)
		if q.Author != "" {
			fmt.Fprintf(&b, " - %s", q.Author)
		}
		b.WriteString("\n\n")
	}

	if len(doc.Articles()) == 0 && !hasNotice(doc) {
		b.WriteString("No articles found for this newsletter.\n\n")
	}

	for _, section := range doc.Sections {
		fmt.Fprintf(&b, "== %s ==\n\n", section.Title)
		for _, item := range section.Items {
			writeItem(&b, item, doc)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hasNotice(doc domain.NewsletterDocument) bool {
	for _, s := range doc.Sections {
		if s.Kind == domain.SectionNotice {
			return true
		}
	}
	return false
}

func writeItem(b *strings.Builder, item domain.SectionItem, doc domain.NewsletterDocument) {
	switch v := item.(type) {
	case *domain.ProcessedArticle:
		fmt.Fprintf(b, "Title: %s\n", orDefault(v.Title, "untitled"))
		fmt.Fprintf(b, "Source: %s\n", orDefault(v.SourceName, "unknown"))
		fmt.Fprintf(b, "Category: %s\n", v.Category)
		fmt.Fprintf(b, "URL: %s\n", orDefault(v.URL, "no url"))
		fmt.Fprintf(b, "Date: %s\n", formatWhen(v.PublishedAt))
		fmt.Fprintf(b, "Summary: %s\n", v.Summary)
		if v.HasFullText() {
			fmt.Fprintf(b, "\n%s\n", v.ArticleText)
		}
		b.WriteString(separator + "\n")
	case domain.WeatherInfo:
		line := v.ForecastSnippet
		if line == "" {
			line = fmt.Sprintf("%s: %.1f°C, %s", v.Date, v.TemperatureC, v.Condition)
		}
		fmt.Fprintf(b, "- %s (humidity %.0f%%, wind %.1f km/h)\n", line, v.HumidityPercent, v.WindSpeedKMH)
	case domain.Event:
		fmt.Fprintf(b, "- %s\n  %s", v.Title, formatWhen(v.Start))
		if !v.End.IsZero() {
			fmt.Fprintf(b, " - %s", formatWhen(v.End))
		}
		b.WriteString("\n")
		if v.Location != "" {
			fmt.Fprintf(b, "  %s\n", v.Location)
		}
		if v.URL != "" {
			fmt.Fprintf(b, "  %s\n", v.URL)
		}
	case domain.Birthday:
		fmt.Fprintf(b, "- %s (%02d.%02d.)%s\n", v.Name, v.Day, int(v.Month), untilLabel(v, doc))
	case domain.TodoItem:
		fmt.Fprintf(b, "- [ ] %s", v.Content)
		if !v.Due.IsZero() {
			fmt.Fprintf(b, " (due %s)", v.Due.Format("2006-01-02"))
		}
		b.WriteString("\n")
	case domain.Notice:
		fmt.Fprintf(b, "%s\n", v.Text)
	}
}

func untilLabel(b domain.Birthday, doc domain.NewsletterDocument) string {
	days, ok := birthday.DaysUntil(b, doc.GeneratedAt)
	switch {
	case !ok:
		return ""
	case days == 0:
		return " today"
	case days == 1:
		return " tomorrow"
	default:
		return fmt.Sprintf(" in %d days", days)
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
