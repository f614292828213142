package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsletterBuilder/internal/birthday"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/filter"
	"NewsletterBuilder/internal/newsletter"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/source"
	"NewsletterBuilder/internal/stage"
)

// Status is the terminal outcome of a run. The string values are stable.
type Status string

const (
	StatusCompleted            Status = "completed"
	StatusNoData               Status = "no data found"
	StatusNoDataAfterBlacklist Status = "no data after blacklist"
	StatusNoProcessedData      Status = "no processed data after llm stages"
	StatusRenderFailed         Status = "render failed"
)

// EarlyExit reports whether the run stopped before assembling a newsletter.
func (s Status) EarlyExit() bool {
	return s == StatusNoData || s == StatusNoDataAfterBlacklist || s == StatusNoProcessedData
}

// Phase names a step of the run state machine.
type Phase string

const (
	PhaseInit               Phase = "INIT"
	PhaseFetchArticles      Phase = "FETCH_ARTICLES"
	PhaseFilterBlacklist    Phase = "FILTER_BLACKLIST"
	PhaseSummarize          Phase = "SUMMARIZE"
	PhaseCategorize         Phase = "CATEGORIZE"
	PhaseFetchEvents        Phase = "FETCH_EVENTS"
	PhaseFetchSupplementary Phase = "FETCH_SUPPLEMENTARY"
	PhaseFilterEvents       Phase = "FILTER_EVENTS"
	PhaseRankAndWrite       Phase = "RANK_AND_WRITE_TOP_N"
	PhaseAssemble           Phase = "ASSEMBLE"
	PhaseRender             Phase = "RENDER"
	PhaseDistribute         Phase = "DISTRIBUTE"
	PhasePersist            Phase = "PERSIST"
	PhaseDone               Phase = "DONE"
)

// RunMetrics receives run-level measurements.
type RunMetrics interface {
	source.Observer
	BlacklistDropped(n int)
	RunFinished(status string, elapsed time.Duration)
	Push(ctx context.Context) error
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Every field is optional; absent collaborators degrade to empty results.
type PipelineDeps struct {
	ArticleFetchers []ports.ArticleFetcher
	EventFetchers   []ports.EventFetcher
	WeatherFetcher  ports.WeatherFetcher
	QuoteFetcher    ports.QuoteFetcher
	TodoFetcher     ports.TodoFetcher
	BirthdayFetcher ports.BirthdayFetcher

	Summarizer  ports.Summarizer
	Categorizer ports.Categorizer
	EventFilter ports.EventFilter
	Writer      ports.ArticleWriter

	Renderer     ports.Renderer
	Distributors []ports.Distributor
	Repository   ports.RunRepository
	Metrics      RunMetrics

	Logger *slog.Logger
	Clock  func() time.Time
}

// Options carries the newsletter settings consumed by the core.
type Options struct {
	Title           string
	Blacklist       filter.Blacklist
	Categories      []string
	TopArticleCount int
	BirthdayCount   int
	FetchTimeout    time.Duration
	RenderOnEmpty   bool
}

// Result is what a run reports back to its caller.
type Result struct {
	RunID        string
	Status       Status
	Phase        Phase
	OutputPath   string
	Distribution map[string]string
	Articles     []*domain.ProcessedArticle
	Document     domain.NewsletterDocument
}

// Pipeline implements the newsletter workflow for one run at a time.
type Pipeline struct {
	deps   PipelineDeps
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Summarizer == nil {
		deps.Summarizer = stage.NewSummarizer(nil, stage.Options{Logger: logger})
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	if opts.TopArticleCount < 1 {
		opts.TopArticleCount = 1
	}
	if opts.BirthdayCount < 1 {
		opts.BirthdayCount = 3
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = source.DefaultTimeout
	}
	return &Pipeline{deps: deps, opts: opts, logger: logger, now: now}
}

type run struct {
	*Pipeline
	id      string
	started time.Time
	log     *slog.Logger
	result  Result
}

// Run executes one pass of the state machine. It never returns an error and
// never panics; failures surface as a Status.
func (p *Pipeline) Run(ctx context.Context) Result {
	r := &run{Pipeline: p, id: uuid.NewString(), started: p.now()}
	r.log = p.logger.With("run_id", r.id)
	r.result = Result{RunID: r.id, Distribution: map[string]string{}}

	r.enter(PhaseInit)
	status := r.execute(ctx)
	r.finish(ctx, status)
	return r.result
}

func (r *run) execute(ctx context.Context) Status {
	r.enter(PhaseFetchArticles)
	raw := source.Aggregate(ctx, r.deps.ArticleFetchers, r.fetchOptions("articles"))
	if len(raw) == 0 {
		return r.earlyExit(ctx, StatusNoData)
	}

	r.enter(PhaseFilterBlacklist)
	kept, dropped := r.opts.Blacklist.Filter(raw)
	if r.deps.Metrics != nil {
		r.deps.Metrics.BlacklistDropped(dropped)
	}
	r.log.Info("blacklist applied", "kept", len(kept), "dropped", dropped)
	if len(kept) == 0 {
		return r.earlyExit(ctx, StatusNoDataAfterBlacklist)
	}

	r.enter(PhaseSummarize)
	articles := guard(r, "summarizer", fallbackSummaries(kept), func() []*domain.ProcessedArticle {
		return r.deps.Summarizer.ProcessBatch(ctx, kept)
	})

	r.enter(PhaseCategorize)
	if r.deps.Categorizer != nil {
		input := articles
		articles = guard(r, "categorizer", input, func() []*domain.ProcessedArticle {
			return r.deps.Categorizer.ProcessBatch(ctx, input)
		})
	}
	articles = compact(articles)
	r.result.Articles = articles
	if len(articles) == 0 {
		return r.earlyExit(ctx, StatusNoProcessedData)
	}

	r.enter(PhaseFetchEvents)
	events := source.Aggregate(ctx, r.deps.EventFetchers, r.fetchOptions("events"))

	r.enter(PhaseFetchSupplementary)
	now := r.now()
	weather := source.Aggregate(ctx, []ports.WeatherFetcher{r.deps.WeatherFetcher}, r.fetchOptions("weather"))
	quotes := source.Aggregate(ctx, []ports.QuoteFetcher{r.deps.QuoteFetcher}, r.fetchOptions("quote"))
	tasks := source.Aggregate(ctx, []ports.TodoFetcher{r.deps.TodoFetcher}, r.fetchOptions("tasks"))
	birthdays := source.Aggregate(ctx, []ports.BirthdayFetcher{r.deps.BirthdayFetcher}, r.fetchOptions("birthdays"))
	birthdays = birthday.Upcoming(birthdays, r.opts.BirthdayCount, now)

	r.enter(PhaseFilterEvents)
	if r.deps.EventFilter != nil && len(events) > 0 {
		input := events
		events = guard(r, "event_filter", input, func() []domain.Event {
			return r.deps.EventFilter.ProcessBatch(ctx, input)
		})
	}

	r.enter(PhaseRankAndWrite)
	top := stage.SelectTop(articles, r.opts.TopArticleCount)
	if r.deps.Writer != nil {
		guard(r, "writer", top, func() []*domain.ProcessedArticle {
			return r.deps.Writer.ProcessBatch(ctx, top)
		})
	}

	r.enter(PhaseAssemble)
	var quote *domain.Quote
	if len(quotes) > 0 {
		q := quotes[0]
		quote = &q
	}
	doc := newsletter.Assemble(newsletter.Input{
		Title:       r.opts.Title,
		GeneratedAt: now,
		Categories:  r.opts.Categories,
		Articles:    articles,
		Events:      events,
		Weather:     weather,
		Birthdays:   birthdays,
		Tasks:       tasks,
		Quote:       quote,
	})
	r.result.Document = doc

	r.enter(PhaseRender)
	path, err := r.render(ctx, doc)
	if err != nil {
		r.log.Error("render failed", "error", err)
		return StatusRenderFailed
	}
	r.result.OutputPath = path

	r.enter(PhaseDistribute)
	r.distribute(ctx, path)
	return StatusCompleted
}

func (r *run) earlyExit(ctx context.Context, status Status) Status {
	r.log.Warn("run stopped early", "status", string(status), "phase", string(r.result.Phase))
	if !r.opts.RenderOnEmpty {
		return status
	}

	doc := newsletter.Empty(r.opts.Title, r.now(), string(status))
	r.result.Document = doc
	if path, err := r.render(ctx, doc); err != nil {
		r.log.Warn("cannot render empty newsletter", "error", err)
	} else {
		r.result.OutputPath = path
	}
	return status
}

func (r *run) render(ctx context.Context, doc domain.NewsletterDocument) (path string, err error) {
	if r.deps.Renderer == nil {
		return "", fmt.Errorf("renderer is not configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panicked: %v", rec)
		}
	}()
	return r.deps.Renderer.Render(ctx, doc)
}

func (r *run) distribute(ctx context.Context, path string) {
	for _, d := range r.deps.Distributors {
		if d == nil {
			continue
		}
		id, err := callDistributor(ctx, d, path, r.opts.FetchTimeout)
		if err != nil {
			r.log.Warn("distribution failed", "distributor", d.Name(), "error", err)
			continue
		}
		r.log.Info("artifact distributed", "distributor", d.Name(), "id", id)
		r.result.Distribution[d.Name()] = id
	}
}

func callDistributor(ctx context.Context, d ports.Distributor, path string, timeout time.Duration) (id string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("distributor %s panicked: %v", d.Name(), rec)
		}
	}()
	return d.Distribute(callCtx, path)
}

func (r *run) finish(ctx context.Context, status Status) {
	r.result.Status = status

	r.enter(PhasePersist)
	if r.deps.Repository != nil {
		record := domain.RunRecord{
			ID:         r.id,
			StartedAt:  r.started,
			FinishedAt: r.now(),
			Status:     string(status),
			OutputPath: r.result.OutputPath,
			Blacklist:  r.opts.Blacklist.Entries(),
			Articles:   r.result.Articles,
		}
		if err := saveRun(ctx, r.deps.Repository, record); err != nil {
			r.log.Warn("cannot persist run", "error", err)
		}
	}

	elapsed := r.now().Sub(r.started)
	if r.deps.Metrics != nil {
		r.deps.Metrics.RunFinished(string(status), elapsed)
		if err := r.deps.Metrics.Push(ctx); err != nil {
			r.log.Warn("cannot push metrics", "error", err)
		}
	}

	r.enter(PhaseDone)
	if status == StatusCompleted {
		r.result.Phase = PhaseDone
	}
	r.log.Info("run finished", "status", string(status), "output", r.result.OutputPath, "elapsed", elapsed)
}

func saveRun(ctx context.Context, repo ports.RunRepository, record domain.RunRecord) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("repository panicked: %v", rec)
		}
	}()
	return repo.SaveRun(ctx, record)
}

func (r *run) enter(phase Phase) {
	if phase != PhasePersist && phase != PhaseDone {
		r.result.Phase = phase
	}
	r.log.Debug("phase", "phase", string(phase))
}

func (r *run) fetchOptions(kind string) source.Options {
	opts := source.Options{Kind: kind, Timeout: r.opts.FetchTimeout, Logger: r.log}
	if r.deps.Metrics != nil {
		opts.Observer = r.deps.Metrics
	}
	return opts
}

// guard runs a stage and substitutes fallback when it panics.
func guard[T any](r *run, name string, fallback T, fn func() T) (out T) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("stage panicked", "stage", name, "panic", rec)
			out = fallback
		}
	}()
	return fn()
}

func fallbackSummaries(items []domain.RawArticle) []*domain.ProcessedArticle {
	out := make([]*domain.ProcessedArticle, len(items))
	for i, raw := range items {
		out[i] = domain.NewProcessedArticle(raw, domain.SummaryUnavailable)
		out[i].Annotate("summarizer", "unavailable")
	}
	return out
}

func compact(items []*domain.ProcessedArticle) []*domain.ProcessedArticle {
	out := items[:0:0]
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}
