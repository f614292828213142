package stage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   func(p ports.Prompt) (string, error)
	prompts []ports.Prompt
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func (f *fakeCompleter) Complete(_ context.Context, p ports.Prompt) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.reply(p)
}

func replyBy(rules map[string]string) func(ports.Prompt) (string, error) {
	return func(p ports.Prompt) (string, error) {
		for needle, answer := range rules {
			if strings.Contains(p.User, needle) {
				return answer, nil
			}
		}
		return "", errors.New("no rule")
	}
}

type fallbackCounter map[string]int

func (c fallbackCounter) Fallback(stage string) { c[stage]++ }

func article(title, summary string) *domain.ProcessedArticle {
	p := domain.NewProcessedArticle(domain.RawArticle{Title: title}, summary)
	return p
}

func TestSummarizerWithoutCompleterUsesSentinel(t *testing.T) {
	t.Parallel()

	counter := fallbackCounter{}
	s := NewSummarizer(nil, Options{Observer: counter})
	out := s.ProcessBatch(context.Background(), []domain.RawArticle{
		{Title: "A", SourceName: "wire"},
		{Title: ""},
	})

	require.Len(t, out, 2)
	for _, p := range out {
		assert.Equal(t, domain.SummaryUnavailable, p.Summary)
		assert.Equal(t, "unavailable", p.Metadata["summarizer"])
		assert.Equal(t, domain.UncategorizedCategory, p.Category)
	}
	assert.Equal(t, "untitled", out[1].Title)
	assert.Equal(t, 2, counter["summarizer"])
}

func TestSummaryInputPreference(t *testing.T) {
	t.Parallel()

	long := "This snippet is certainly longer than thirty characters."
	cases := []struct {
		name string
		raw  domain.RawArticle
		want string
	}{
		{"snippet", domain.RawArticle{Title: "t", ContentSnippet: long, Description: "other description that is long enough"}, long},
		{"description", domain.RawArticle{Title: "t", ContentSnippet: "short", Description: long}, long},
		{"html stripped", domain.RawArticle{Title: "t", Description: "<p>This snippet is <b>certainly</b> longer than thirty characters.</p>"}, long},
		{"title", domain.RawArticle{Title: " Only a title ", Description: "tiny"}, "Only a title"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SummaryInput(tc.raw), tc.name)
	}
}

func TestSummarizerPerItemOutcomes(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: func(p ports.Prompt) (string, error) {
		switch {
		case strings.Contains(p.User, "TITLE: broken"):
			return "", errors.New("quota exceeded")
		case strings.Contains(p.User, "TITLE: silent"):
			return "   ", nil
		default:
			return "  A crisp summary.  ", nil
		}
	}}
	body := strings.Repeat("x", 5000)

	out := NewSummarizer(llm, Options{}).ProcessBatch(context.Background(), []domain.RawArticle{
		{Title: "good", Description: body},
		{Title: "broken", Description: body},
		{Title: "silent", Description: body},
		{Title: "tiny"},
	})

	require.Len(t, out, 4)
	assert.Equal(t, "A crisp summary.", out[0].Summary)
	assert.Equal(t, "fake-model", out[0].Metadata["summarizer_model"])
	assert.Equal(t, domain.SummaryUnavailable, out[1].Summary)
	assert.Contains(t, out[1].Metadata["summarizer_error"], "quota")
	assert.Equal(t, domain.SummaryUnavailable, out[2].Summary)
	assert.Equal(t, "empty response", out[2].Metadata["summarizer_error"])
	assert.Equal(t, domain.SummaryUnavailable, out[3].Summary)

	require.Len(t, llm.prompts, 3)
	assert.NotContains(t, llm.prompts[0].User, strings.Repeat("x", maxSummaryInputLen+1))
	assert.Contains(t, llm.prompts[0].User, strings.Repeat("x", maxSummaryInputLen))
}

func TestNewCategorizerRequiresCategories(t *testing.T) {
	t.Parallel()

	_, err := NewCategorizer(nil, []string{" ", ""}, Options{})
	require.ErrorIs(t, err, ErrNoCategories)
}

func TestCategorizerClampsAndValidates(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: replyBy(map[string]string{
		"TITLE: first":  `{"category": "tech", "importance": "15"}`,
		"TITLE: second": "```json\n{\"category\": \"Sports\", \"importance\": 7}\n```",
		"TITLE: third":  `not json at all`,
		"TITLE: fourth": `{"category": "Science", "importance": "high"}`,
		"TITLE: fifth":  `Sure! {"category": "SCIENCE", "importance": -3}`,
	})}

	cat, err := NewCategorizer(llm, []string{"Tech", "Science"}, Options{})
	require.NoError(t, err)

	items := []*domain.ProcessedArticle{
		article("first", "summary of the first article"),
		article("second", "summary of the second article"),
		article("third", "summary of the third article"),
		article("fourth", "summary of the fourth article"),
		article("fifth", "summary of the fifth article"),
	}
	out := cat.ProcessBatch(context.Background(), items)

	require.Len(t, out, 5)
	assert.Equal(t, "Tech", out[0].Category)
	assert.Equal(t, 10.0, out[0].RelevanceScore)
	assert.Equal(t, domain.UncategorizedCategory, out[1].Category)
	assert.Equal(t, 7.0, out[1].RelevanceScore)
	assert.Equal(t, domain.UncategorizedCategory, out[2].Category)
	assert.Equal(t, 0.0, out[2].RelevanceScore)
	assert.NotEmpty(t, out[2].Metadata["categorizer_error"])
	assert.Equal(t, "Science", out[3].Category)
	assert.Equal(t, 0.0, out[3].RelevanceScore)
	assert.Equal(t, "Science", out[4].Category)
	assert.Equal(t, 0.0, out[4].RelevanceScore)

	allowed := map[string]bool{"Tech": true, "Science": true, domain.UncategorizedCategory: true}
	for _, it := range out {
		assert.True(t, allowed[it.Category], it.Category)
		assert.GreaterOrEqual(t, it.RelevanceScore, domain.MinRelevance)
		assert.LessOrEqual(t, it.RelevanceScore, domain.MaxRelevance)
		assert.Equal(t, it.Category, it.Metadata["assigned_category"])
		assert.Equal(t, "fake-model", it.Metadata["categorizer_model"])
	}
	assert.Equal(t, "10", out[0].Metadata["importance"])
}

func TestCategorizerSkipsTinyInputAndPassesThroughWithoutLLM(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: func(ports.Prompt) (string, error) { return `{"category":"Tech","importance":9}`, nil }}
	cat, err := NewCategorizer(llm, []string{"Tech"}, Options{})
	require.NoError(t, err)

	tiny := article("a", "b")
	tiny.Title, tiny.Summary = "a", "b"
	cat.ProcessBatch(context.Background(), []*domain.ProcessedArticle{tiny})
	assert.Empty(t, llm.prompts)
	assert.Equal(t, domain.UncategorizedCategory, tiny.Category)

	passthrough, err := NewCategorizer(nil, []string{"Tech"}, Options{})
	require.NoError(t, err)
	in := []*domain.ProcessedArticle{article("untouched title", "untouched summary")}
	out := passthrough.ProcessBatch(context.Background(), in)
	assert.Equal(t, in, out)
	assert.NotContains(t, out[0].Metadata, "categorizer_model")
}

func TestParseCategorization(t *testing.T) {
	t.Parallel()

	cat, score, err := ParseCategorization("```\n{\"category\":\"Tech\",\"importance\":\" 6.5 \"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Tech", cat)
	assert.Equal(t, 6.5, score)

	_, score, err = ParseCategorization(`{"category":"Tech"}`)
	require.NoError(t, err)
	assert.Zero(t, score)

	_, _, err = ParseCategorization("")
	assert.Error(t, err)
}

func TestEventFilterThreshold(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: replyBy(map[string]string{
		"Title: meetup":  "8",
		"Title: lecture": "5",
		"Title: queue":   "2",
		"Title: riddle":  "very interesting",
	})}
	events := []domain.Event{{Title: "meetup"}, {Title: "queue"}, {Title: "lecture"}, {Title: "riddle"}, {Title: "crash"}}

	kept := NewEventFilter(llm, DefaultEventThreshold, Options{}).ProcessBatch(context.Background(), events)
	require.Len(t, kept, 2)
	assert.Equal(t, "meetup", kept[0].Title)
	assert.Equal(t, "lecture", kept[1].Title)

	all := NewEventFilter(nil, DefaultEventThreshold, Options{}).ProcessBatch(context.Background(), events)
	assert.Equal(t, events, all)
}

func TestSelectTopIsStableAndIdempotent(t *testing.T) {
	t.Parallel()

	mk := func(title string, score float64) *domain.ProcessedArticle {
		p := article(title, "")
		p.SetRelevance(score)
		return p
	}
	items := []*domain.ProcessedArticle{mk("a", 5), mk("b", 9), mk("c", 5), mk("d", 1), mk("e", 9)}

	top := SelectTop(items, 3)
	got := []string{top[0].Title, top[1].Title, top[2].Title}
	assert.Equal(t, []string{"b", "e", "a"}, got)
	assert.Equal(t, "a", items[0].Title, "input must not be reordered")

	again := SelectTop(top, 3)
	assert.Equal(t, top, again)

	assert.Len(t, SelectTop(items, 50), len(items))
	assert.Empty(t, SelectTop(items, 0))
	assert.Empty(t, SelectTop(nil, 3))
}

type fakeExtractor struct {
	text string
	err  error
	urls []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

func TestArticleWriter(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{reply: func(p ports.Prompt) (string, error) {
		if strings.Contains(p.User, "Title: fails") {
			return "", errors.New("timeout")
		}
		return "Full text.", nil
	}}
	ext := &fakeExtractor{text: strings.Repeat("y", 7000)}

	ok := article("works", "short summary")
	ok.URL = "https://example.com/a"
	bad := article("fails", "short summary")

	out := NewArticleWriter(llm, ext, Options{}).ProcessBatch(context.Background(), []*domain.ProcessedArticle{ok, bad})

	require.Len(t, out, 2)
	assert.Equal(t, "Full text.", ok.ArticleText)
	assert.Equal(t, "fake-model", ok.Metadata["writer_model"])
	assert.Empty(t, bad.ArticleText)
	assert.Contains(t, bad.Metadata["writer_error"], "timeout")

	assert.Equal(t, []string{"https://example.com/a"}, ext.urls)
	assert.Contains(t, llm.prompts[0].User, strings.Repeat("y", maxSourceTextLen))
	assert.NotContains(t, llm.prompts[0].User, strings.Repeat("y", maxSourceTextLen+1))
}

func TestArticleWriterWithoutCompleter(t *testing.T) {
	t.Parallel()

	item := article("untouched", "summary")
	out := NewArticleWriter(nil, nil, Options{}).ProcessBatch(context.Background(), []*domain.ProcessedArticle{item})
	assert.False(t, out[0].HasFullText())
	assert.Empty(t, out[0].Metadata)
}
