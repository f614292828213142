package ports

import (
	"context"

	"NewsletterBuilder/internal/domain"
)

// Fetcher pulls one batch of typed items from an upstream provider.
type Fetcher[T any] interface {
	Name() string
	Fetch(ctx context.Context) ([]T, error)
}

type (
	ArticleFetcher  = Fetcher[domain.RawArticle]
	EventFetcher    = Fetcher[domain.Event]
	WeatherFetcher  = Fetcher[domain.WeatherInfo]
	QuoteFetcher    = Fetcher[domain.Quote]
	TodoFetcher     = Fetcher[domain.TodoItem]
	BirthdayFetcher = Fetcher[domain.Birthday]
)

// BatchTransformer is one enrichment stage operating on a whole batch.
// Implementations absorb their own failures and always return a batch.
type BatchTransformer[In, Out any] interface {
	Name() string
	ProcessBatch(ctx context.Context, items []In) []Out
}

type (
	Summarizer    = BatchTransformer[domain.RawArticle, *domain.ProcessedArticle]
	Categorizer   = BatchTransformer[*domain.ProcessedArticle, *domain.ProcessedArticle]
	ArticleWriter = BatchTransformer[*domain.ProcessedArticle, *domain.ProcessedArticle]
	EventFilter   = BatchTransformer[domain.Event, domain.Event]
)

// Prompt is a single LLM request. A zero Temperature means the client default.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// Completer sends prompts to a language model.
type Completer interface {
	Model() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// PageExtractor downloads a web page and returns its readable text.
type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Renderer persists an assembled newsletter and returns the artifact path.
type Renderer interface {
	Format() string
	Render(ctx context.Context, doc domain.NewsletterDocument) (string, error)
}

// Distributor ships a rendered artifact somewhere and returns an opaque id.
type Distributor interface {
	Name() string
	Distribute(ctx context.Context, path string) (string, error)
}

// RunRepository stores run history for audit.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(context.Context)) error
	Stop(ctx context.Context) error
}
