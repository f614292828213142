package stage

import (
	"context"
	"fmt"
	"strings"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

const maxSourceTextLen = 6000

// ArticleWriter expands selected articles into full newspaper-style text.
type ArticleWriter struct {
	llm       ports.Completer
	extractor ports.PageExtractor
	opts      Options
}

var _ ports.ArticleWriter = (*ArticleWriter)(nil)

// NewArticleWriter wires the completer and an optional page extractor used to
// ground the text in the source page.
func NewArticleWriter(llm ports.Completer, extractor ports.PageExtractor, opts Options) *ArticleWriter {
	return &ArticleWriter{llm: llm, extractor: extractor, opts: opts.withDefaults("stage.writer")}
}

// Name identifies the stage in logs and metrics.
func (w *ArticleWriter) Name() string { return "writer" }

// ProcessBatch sets ArticleText on success and leaves it empty otherwise.
func (w *ArticleWriter) ProcessBatch(ctx context.Context, items []*domain.ProcessedArticle) []*domain.ProcessedArticle {
	if w.llm == nil {
		w.opts.Logger.Warn("llm unavailable, skipping full text", "count", len(items))
		return items
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		text, err := complete(ctx, w.llm, w.opts.Timeout, w.prompt(ctx, item))
		if err == nil && text == "" {
			err = fmt.Errorf("empty response")
		}
		if err != nil {
			w.opts.Logger.Warn("article writing failed", "title", item.Title, "error", err)
			item.Annotate("writer_error", err.Error())
			w.opts.fallback(w.Name())
			continue
		}
		item.ArticleText = text
		item.Annotate("writer_model", w.llm.Model())
	}
	return items
}

func (w *ArticleWriter) prompt(ctx context.Context, item *domain.ProcessedArticle) ports.Prompt {
	var b strings.Builder
	b.WriteString("Write a well-structured newspaper article based on the following information:\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Source: %s\n", orUnknown(item.SourceName))
	published := "unknown"
	if !item.PublishedAt.IsZero() {
		published = item.PublishedAt.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(&b, "Date: %s\n", published)
	if item.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", item.URL)
	}
	fmt.Fprintf(&b, "Summary:\n%s\n", item.Summary)

	if source := w.sourceText(ctx, item); source != "" {
		fmt.Fprintf(&b, "\nSource page text:\n---\n%s\n---\n", source)
	}

	return ports.Prompt{
		System:      "You are a newspaper editor writing for a personal newsletter.",
		User:        b.String(),
		Temperature: 0.2,
	}
}

func (w *ArticleWriter) sourceText(ctx context.Context, item *domain.ProcessedArticle) string {
	if w.extractor == nil || item.URL == "" {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	text, err := w.extractor.Extract(callCtx, item.URL)
	if err != nil {
		w.opts.Logger.Debug("source page unavailable", "url", item.URL, "error", err)
		return ""
	}
	return truncateRunes(text, maxSourceTextLen)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
