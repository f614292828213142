package domain

import (
	"strconv"
	"time"
)

const (
	// UncategorizedCategory is assigned when no allowed category matches.
	UncategorizedCategory = "uncategorized"
	// SummaryUnavailable replaces a summary that could not be produced.
	SummaryUnavailable = "summary unavailable"

	// MinRelevance and MaxRelevance bound every relevance score.
	MinRelevance = 0.0
	MaxRelevance = 10.0
)

// RawArticle is an article as delivered by a fetch adapter.
type RawArticle struct {
	Title          string
	URL            string
	Description    string
	ContentSnippet string
	PublishedAt    time.Time
	SourceName     string
	SourceID       string
}

// ProcessedArticle accumulates enrichment across the stage chain.
// Stages share the same pointer so metadata written early stays visible later.
type ProcessedArticle struct {
	Title          string
	URL            string
	Summary        string
	Category       string
	RelevanceScore float64
	SourceName     string
	PublishedAt    time.Time
	Metadata       map[string]string
	ArticleText    string
}

// NewProcessedArticle seeds a processed article from its raw counterpart.
func NewProcessedArticle(raw RawArticle, summary string) *ProcessedArticle {
	title := raw.Title
	if title == "" {
		title = "untitled"
	}
	return &ProcessedArticle{
		Title:       title,
		URL:         raw.URL,
		Summary:     summary,
		Category:    UncategorizedCategory,
		SourceName:  raw.SourceName,
		PublishedAt: raw.PublishedAt,
		Metadata:    map[string]string{},
	}
}

// Annotate records a diagnostic value for a stage.
func (p *ProcessedArticle) Annotate(key, value string) {
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	p.Metadata[key] = value
}

// SetRelevance stores the score clamped into [MinRelevance, MaxRelevance].
func (p *ProcessedArticle) SetRelevance(score float64) {
	p.RelevanceScore = ClampRelevance(score)
	p.Annotate("importance", strconv.FormatFloat(p.RelevanceScore, 'f', -1, 64))
}

// HasFullText reports whether the writer stage produced article text.
func (p *ProcessedArticle) HasFullText() bool {
	return p.ArticleText != ""
}

// ClampRelevance forces a score into the allowed range.
func ClampRelevance(score float64) float64 {
	switch {
	case score != score: // NaN
		return MinRelevance
	case score < MinRelevance:
		return MinRelevance
	case score > MaxRelevance:
		return MaxRelevance
	default:
		return score
	}
}
