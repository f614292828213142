package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

const (
	minCategorizeInputLen = 10
	maxCategorizeInputLen = 2500
)

// ErrNoCategories is returned when the allow-list is empty.
var ErrNoCategories = errors.New("categorizer requires at least one category")

// Categorizer assigns one allowed category and an importance score per article.
type Categorizer struct {
	llm        ports.Completer
	categories []string
	canonical  map[string]string
	opts       Options
}

var _ ports.Categorizer = (*Categorizer)(nil)

// NewCategorizer validates the allow-list. A nil completer yields a stage that
// passes the batch through unchanged.
func NewCategorizer(llm ports.Completer, categories []string, opts Options) (*Categorizer, error) {
	canonical := make(map[string]string, len(categories))
	allowed := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := canonical[key]; dup {
			continue
		}
		canonical[key] = c
		allowed = append(allowed, c)
	}
	if len(allowed) == 0 {
		return nil, ErrNoCategories
	}
	return &Categorizer{
		llm:        llm,
		categories: allowed,
		canonical:  canonical,
		opts:       opts.withDefaults("stage.categorizer"),
	}, nil
}

// Name identifies the stage in logs and metrics.
func (c *Categorizer) Name() string { return "categorizer" }

// Categories returns the allow-list in configured order.
func (c *Categorizer) Categories() []string {
	return append([]string(nil), c.categories...)
}

// ProcessBatch updates every article in place and returns the same slice.
func (c *Categorizer) ProcessBatch(ctx context.Context, items []*domain.ProcessedArticle) []*domain.ProcessedArticle {
	if c.llm == nil {
		c.opts.Logger.Warn("llm unavailable, passing batch through", "count", len(items))
		return items
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		c.categorize(ctx, item)
	}
	c.opts.Logger.Info("categorized batch", "count", len(items))
	return items
}

func (c *Categorizer) categorize(ctx context.Context, item *domain.ProcessedArticle) {
	item.Annotate("categorizer_model", c.llm.Model())
	item.Category = domain.UncategorizedCategory
	defer func() {
		item.Annotate("assigned_category", item.Category)
	}()

	if runeLen(strings.TrimSpace(item.Title+item.Summary)) < minCategorizeInputLen {
		item.SetRelevance(0)
		c.opts.fallback(c.Name())
		return
	}

	answer, err := complete(ctx, c.llm, c.opts.Timeout, c.prompt(item))
	if err != nil {
		c.opts.Logger.Warn("categorization failed", "title", item.Title, "error", err)
		item.Annotate("categorizer_error", err.Error())
		item.SetRelevance(0)
		c.opts.fallback(c.Name())
		return
	}

	category, importance, err := ParseCategorization(answer)
	if err != nil {
		c.opts.Logger.Warn("cannot parse categorization", "title", item.Title, "error", err)
		item.Annotate("categorizer_error", err.Error())
		item.SetRelevance(0)
		c.opts.fallback(c.Name())
		return
	}

	if canonical, ok := c.canonical[strings.ToLower(strings.TrimSpace(category))]; ok {
		item.Category = canonical
	} else if category != "" {
		c.opts.Logger.Debug("category not allowed", "title", item.Title, "category", category)
	}
	item.SetRelevance(importance)
}

func (c *Categorizer) prompt(item *domain.ProcessedArticle) ports.Prompt {
	quoted := make([]string, len(c.categories))
	for i, cat := range c.categories {
		quoted[i] = "'" + cat + "'"
	}
	title := item.Title
	if title == "" {
		title = "untitled"
	}
	return ports.Prompt{
		System: "You are an expert at categorizing news articles.",
		User: fmt.Sprintf(`Assign the following article to exactly ONE of the given categories.
Answer ONLY with a JSON object containing the keys "category" (one of the categories below)
and "importance" (how important the article is, from 1 = negligible to 10 = essential).

Categories: [%s]

TITLE: %s
SUMMARY: %s

JSON:`, strings.Join(quoted, ", "), title, truncateRunes(item.Summary, maxCategorizeInputLen)),
		Temperature: 0.1,
	}
}

// ParseCategorization reads the JSON answer of the categorizer, tolerating a
// surrounding Markdown code fence. An importance that is missing or not
// numeric yields 0.
func ParseCategorization(answer string) (string, float64, error) {
	body := stripCodeFence(answer)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var payload struct {
		Category   string          `json:"category"`
		Importance json.RawMessage `json:"importance"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return "", 0, fmt.Errorf("decode categorization: %w", err)
	}
	return payload.Category, parseImportance(payload.Importance), nil
}

func parseImportance(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return f
		}
	}
	return 0
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
