package stage

import (
	"context"
	"fmt"
	"strings"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/infrastructure/parser"
	"NewsletterBuilder/internal/ports"
)

const (
	minPreferredTextLen = 30
	minSummaryInputLen  = 20
	maxSummaryInputLen  = 4000
)

// Summarizer turns raw articles into processed ones carrying a short summary.
type Summarizer struct {
	llm  ports.Completer
	opts Options
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer accepts a nil completer; the batch then receives the
// unavailable-summary sentinel.
func NewSummarizer(llm ports.Completer, opts Options) *Summarizer {
	return &Summarizer{llm: llm, opts: opts.withDefaults("stage.summarizer")}
}

// Name identifies the stage in logs and metrics.
func (s *Summarizer) Name() string { return "summarizer" }

// ProcessBatch returns exactly one processed article per input, in order.
func (s *Summarizer) ProcessBatch(ctx context.Context, items []domain.RawArticle) []*domain.ProcessedArticle {
	out := make([]*domain.ProcessedArticle, 0, len(items))

	if s.llm == nil {
		s.opts.Logger.Warn("llm unavailable, using fallback summaries", "count", len(items))
		for _, raw := range items {
			p := domain.NewProcessedArticle(raw, domain.SummaryUnavailable)
			p.Annotate("summarizer", "unavailable")
			s.opts.fallback(s.Name())
			out = append(out, p)
		}
		return out
	}

	for _, raw := range items {
		out = append(out, s.summarize(ctx, raw))
	}
	s.opts.Logger.Info("summarized batch", "count", len(out))
	return out
}

func (s *Summarizer) summarize(ctx context.Context, raw domain.RawArticle) *domain.ProcessedArticle {
	p := domain.NewProcessedArticle(raw, domain.SummaryUnavailable)
	p.Annotate("summarizer_model", s.llm.Model())

	text := SummaryInput(raw)
	if runeLen(text) < minSummaryInputLen {
		s.opts.Logger.Debug("insufficient text for summary", "title", raw.Title)
		p.Annotate("summarizer_error", "insufficient content")
		s.opts.fallback(s.Name())
		return p
	}

	summary, err := complete(ctx, s.llm, s.opts.Timeout, summaryPrompt(raw.Title, truncateRunes(text, maxSummaryInputLen)))
	switch {
	case err != nil:
		s.opts.Logger.Warn("summary failed", "title", raw.Title, "error", err)
		p.Annotate("summarizer_error", err.Error())
		s.opts.fallback(s.Name())
	case summary == "":
		p.Annotate("summarizer_error", "empty response")
		s.opts.fallback(s.Name())
	default:
		p.Summary = summary
	}
	return p
}

// SummaryInput picks the best text to summarize: the content snippet, then
// the description, each only when long enough, else the title.
func SummaryInput(raw domain.RawArticle) string {
	for _, candidate := range []string{raw.ContentSnippet, raw.Description} {
		if text := parser.PlainText(candidate); runeLen(text) > minPreferredTextLen {
			return text
		}
	}
	return strings.TrimSpace(raw.Title)
}

func summaryPrompt(title, text string) ports.Prompt {
	if title == "" {
		title = "untitled"
	}
	return ports.Prompt{
		System: "You are an expert at writing concise news summaries.",
		User: fmt.Sprintf(`Summarize the following text for a newsletter in 2-4 concise sentences.
Focus on the key facts and implications. Return ONLY the summary, without any introduction or commentary.

TITLE: %s
TEXT:
---
%s
---

SUMMARY:`, title, text),
		Temperature: 0.3,
	}
}
