package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/filter"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/stage"
)

type staticFetcher[T any] struct {
	name  string
	items []T
	err   error
}

func (f staticFetcher[T]) Name() string { return f.name }

func (f staticFetcher[T]) Fetch(context.Context) ([]T, error) { return f.items, f.err }

type scriptedCompleter struct {
	answers map[string]string
	calls   []string
}

func (c *scriptedCompleter) Model() string { return "scripted" }

func (c *scriptedCompleter) Complete(_ context.Context, p ports.Prompt) (string, error) {
	for needle, answer := range c.answers {
		if strings.Contains(p.User, needle) {
			c.calls = append(c.calls, needle)
			return answer, nil
		}
	}
	return "", errors.New("unscripted prompt")
}

type recordingRenderer struct {
	docs []domain.NewsletterDocument
	err  error
}

func (r *recordingRenderer) Format() string { return "txt" }

func (r *recordingRenderer) Render(_ context.Context, doc domain.NewsletterDocument) (string, error) {
	r.docs = append(r.docs, doc)
	if r.err != nil {
		return "", r.err
	}
	return "/tmp/newsletter.txt", nil
}

type recordingRepo struct{ runs []domain.RunRecord }

func (r *recordingRepo) SaveRun(_ context.Context, run domain.RunRecord) error {
	r.runs = append(r.runs, run)
	return nil
}

type stubDistributor struct {
	name string
	err  error
}

func (d stubDistributor) Name() string { return d.name }

func (d stubDistributor) Distribute(context.Context, string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.name + "-id", nil
}

type panickyCategorizer struct{}

func (panickyCategorizer) Name() string { return "panicky" }

func (panickyCategorizer) ProcessBatch(context.Context, []*domain.ProcessedArticle) []*domain.ProcessedArticle {
	panic("categorizer exploded")
}

// droppingCategorizer loses every item, as a stage that rejects its whole batch would.
type droppingCategorizer struct{}

func (droppingCategorizer) Name() string { return "dropping" }

func (droppingCategorizer) ProcessBatch(_ context.Context, items []*domain.ProcessedArticle) []*domain.ProcessedArticle {
	return make([]*domain.ProcessedArticle, len(items))
}

type emptySummarizer struct{}

func (emptySummarizer) Name() string { return "empty" }

func (emptySummarizer) ProcessBatch(context.Context, []domain.RawArticle) []*domain.ProcessedArticle {
	return nil
}

func longText(label string) string {
	return label + " " + strings.Repeat("details about the story ", 3)
}

func threeArticles() []domain.RawArticle {
	return []domain.RawArticle{
		{Title: "alpha", Description: longText("alpha"), SourceName: "Good Wire", SourceID: "good"},
		{Title: "beta", Description: longText("beta"), SourceName: "Bad Wire", SourceID: "badsource"},
		{Title: "gamma", Description: longText("gamma"), SourceName: "Other Wire", SourceID: "other"},
	}
}

func TestScenarioATopArticlesReceiveFullText(t *testing.T) {
	t.Parallel()

	llm := &scriptedCompleter{answers: map[string]string{
		"TITLE: alpha\nTEXT": "Alpha summary text.",
		"TITLE: beta\nTEXT":  "Beta summary text.",
		"TITLE: gamma\nTEXT": "Gamma summary text.",
		"SUMMARY: Alpha":     `{"category":"Tech","importance":9}`,
		"SUMMARY: Beta":      `{"category":"Science","importance":2}`,
		"SUMMARY: Gamma":     `{"category":"Tech","importance":8}`,
		"Title: alpha\n":     "Alpha full text.",
		"Title: gamma\n":     "Gamma full text.",
	}}
	categorizer, err := stage.NewCategorizer(llm, []string{"Tech", "Science"}, stage.Options{})
	require.NoError(t, err)

	renderer := &recordingRenderer{}
	repo := &recordingRepo{}
	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
		Summarizer:      stage.NewSummarizer(llm, stage.Options{}),
		Categorizer:     categorizer,
		Writer:          stage.NewArticleWriter(llm, nil, stage.Options{}),
		Renderer:        renderer,
		Repository:      repo,
		Distributors:    []ports.Distributor{stubDistributor{name: "drive"}, stubDistributor{name: "telegram", err: errors.New("offline")}},
	}, Options{Title: "Daily", Categories: []string{"Tech", "Science"}, TopArticleCount: 2})

	res := p.Run(context.Background())

	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, "/tmp/newsletter.txt", res.OutputPath)
	assert.Equal(t, map[string]string{"drive": "drive-id"}, res.Distribution)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Articles, 3)
	alpha, beta, gamma := res.Articles[0], res.Articles[1], res.Articles[2]
	assert.Equal(t, "Alpha full text.", alpha.ArticleText)
	assert.Empty(t, beta.ArticleText)
	assert.Equal(t, "Gamma full text.", gamma.ArticleText)
	assert.Equal(t, "Tech", alpha.Category)
	assert.Equal(t, "Science", beta.Category)
	assert.Equal(t, []float64{9, 2, 8}, []float64{alpha.RelevanceScore, beta.RelevanceScore, gamma.RelevanceScore})

	require.Len(t, renderer.docs, 1)
	assert.Len(t, renderer.docs[0].Articles(), 3)
	require.Len(t, repo.runs, 1)
	assert.Equal(t, string(StatusCompleted), repo.runs[0].Status)
	assert.Len(t, repo.runs[0].Articles, 3)
}

func TestScenarioBBlacklistDropsMatchingSourceIDs(t *testing.T) {
	t.Parallel()

	renderer := &recordingRenderer{}
	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
		Renderer:        renderer,
	}, Options{Blacklist: filter.NewBlacklist("BadSource")})

	res := p.Run(context.Background())

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "alpha", res.Articles[0].Title)
	assert.Equal(t, "gamma", res.Articles[1].Title)
}

func TestScenarioCSummarizerUnavailableStillCategorizes(t *testing.T) {
	t.Parallel()

	llm := &scriptedCompleter{answers: map[string]string{
		"TITLE: alpha": `{"category":"Tech","importance":4}`,
		"TITLE: beta":  `{"category":"Tech","importance":5}`,
		"TITLE: gamma": `{"category":"Tech","importance":6}`,
	}}
	categorizer, err := stage.NewCategorizer(llm, []string{"Tech"}, stage.Options{})
	require.NoError(t, err)

	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
		Summarizer:      stage.NewSummarizer(nil, stage.Options{}),
		Categorizer:     categorizer,
		Renderer:        &recordingRenderer{},
	}, Options{Categories: []string{"Tech"}})

	res := p.Run(context.Background())

	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Articles, 3)
	for _, a := range res.Articles {
		assert.Equal(t, domain.SummaryUnavailable, a.Summary)
		assert.Equal(t, "Tech", a.Category)
	}
	assert.Len(t, llm.calls, 3)
}

func TestScenarioDNoArticlesMeansNoRender(t *testing.T) {
	t.Parallel()

	renderer := &recordingRenderer{}
	repo := &recordingRepo{}
	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{
			staticFetcher[domain.RawArticle]{name: "empty"},
			staticFetcher[domain.RawArticle]{name: "down", err: errors.New("503")},
		},
		Renderer:   renderer,
		Repository: repo,
	}, Options{})

	res := p.Run(context.Background())

	assert.Equal(t, StatusNoData, res.Status)
	assert.True(t, res.Status.EarlyExit())
	assert.Equal(t, PhaseFetchArticles, res.Phase)
	assert.Empty(t, renderer.docs)
	assert.Empty(t, res.OutputPath)
	require.Len(t, repo.runs, 1)
	assert.Equal(t, "no data found", repo.runs[0].Status)
}

func TestNothingSurvivesProcessingMeansNoRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		summarizer  ports.Summarizer
		categorizer ports.Categorizer
	}{
		{name: "categorizer returns nil items", categorizer: droppingCategorizer{}},
		{name: "summarizer returns empty batch", summarizer: emptySummarizer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			renderer := &recordingRenderer{}
			repo := &recordingRepo{}
			p := NewPipeline(PipelineDeps{
				ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
				Summarizer:      tt.summarizer,
				Categorizer:     tt.categorizer,
				Renderer:        renderer,
				Repository:      repo,
			}, Options{Title: "Daily", TopArticleCount: 3})

			res := p.Run(context.Background())

			assert.Equal(t, StatusNoProcessedData, res.Status)
			assert.Equal(t, "no processed data after llm stages", string(res.Status))
			assert.True(t, res.Status.EarlyExit())
			assert.Equal(t, PhaseCategorize, res.Phase)
			assert.Empty(t, res.Articles)
			assert.Empty(t, renderer.docs)
			assert.Empty(t, res.OutputPath)
			require.Len(t, repo.runs, 1)
			assert.Equal(t, string(StatusNoProcessedData), repo.runs[0].Status)
		})
	}
}

func TestEarlyExitStatusesAreDistinct(t *testing.T) {
	t.Parallel()

	all := []Status{StatusCompleted, StatusNoData, StatusNoDataAfterBlacklist, StatusNoProcessedData, StatusRenderFailed}
	seen := map[Status]bool{}
	for _, s := range all {
		assert.False(t, seen[s])
		seen[s] = true
	}
	assert.False(t, StatusCompleted.EarlyExit())
	assert.False(t, StatusRenderFailed.EarlyExit())
}

func TestEverythingBlacklistedRendersNoticeWhenConfigured(t *testing.T) {
	t.Parallel()

	renderer := &recordingRenderer{}
	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
		Renderer:        renderer,
	}, Options{Blacklist: filter.NewBlacklist("good", "badsource", "other"), RenderOnEmpty: true})

	res := p.Run(context.Background())

	assert.Equal(t, StatusNoDataAfterBlacklist, res.Status)
	require.Len(t, renderer.docs, 1)
	assert.Equal(t, domain.SectionNotice, renderer.docs[0].Sections[0].Kind)
	assert.Equal(t, "/tmp/newsletter.txt", res.OutputPath)
}

func TestStagePanicFallsBackAndRenderFailureIsReported(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()}},
		Categorizer:     panickyCategorizer{},
		Renderer:        &recordingRenderer{err: errors.New("disk full")},
	}, Options{})

	res := p.Run(context.Background())

	assert.Equal(t, StatusRenderFailed, res.Status)
	assert.Equal(t, PhaseRender, res.Phase)
	assert.Len(t, res.Articles, 3)
	assert.Empty(t, res.OutputPath)
}

func TestSupplementaryDataReachesDocument(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.May, 10, 6, 0, 0, 0, time.UTC)
	renderer := &recordingRenderer{}
	p := NewPipeline(PipelineDeps{
		ArticleFetchers: []ports.ArticleFetcher{staticFetcher[domain.RawArticle]{name: "wire", items: threeArticles()[:1]}},
		EventFetchers: []ports.EventFetcher{
			staticFetcher[domain.Event]{name: "cal", items: []domain.Event{{Title: "Meetup"}}},
			staticFetcher[domain.Event]{name: "broken", err: errors.New("timeout")},
		},
		WeatherFetcher:  staticFetcher[domain.WeatherInfo]{name: "owm", items: []domain.WeatherInfo{{Location: "Zurich"}}},
		QuoteFetcher:    staticFetcher[domain.Quote]{name: "zen", items: []domain.Quote{{Text: "Be kind."}}},
		TodoFetcher:     staticFetcher[domain.TodoItem]{name: "todo", err: errors.New("401")},
		BirthdayFetcher: staticFetcher[domain.Birthday]{name: "sheet", items: []domain.Birthday{{Name: "late", Month: time.December, Day: 1}, {Name: "soon", Month: time.May, Day: 12}}},
		Renderer:        renderer,
		Clock:           func() time.Time { return now },
	}, Options{BirthdayCount: 1})

	res := p.Run(context.Background())

	require.Equal(t, StatusCompleted, res.Status)
	doc := res.Document
	require.NotNil(t, doc.Quote)
	assert.Equal(t, "Be kind.", doc.Quote.Text)
	assert.Equal(t, now, doc.GeneratedAt)

	kinds := make([]domain.SectionKind, len(doc.Sections))
	for i, s := range doc.Sections {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []domain.SectionKind{domain.SectionWeather, domain.SectionArticles, domain.SectionEvents, domain.SectionBirthdays}, kinds)
	assert.Equal(t, "soon", doc.Sections[3].Items[0].(domain.Birthday).Name)
}
