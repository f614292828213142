package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/filter"
	"NewsletterBuilder/internal/infrastructure/distribute"
	"NewsletterBuilder/internal/infrastructure/fetcher"
	"NewsletterBuilder/internal/infrastructure/llm"
	"NewsletterBuilder/internal/infrastructure/parser"
	"NewsletterBuilder/internal/infrastructure/render"
	"NewsletterBuilder/internal/infrastructure/scheduler"
	"NewsletterBuilder/internal/infrastructure/storage"
	"NewsletterBuilder/internal/logging"
	"NewsletterBuilder/internal/metrics"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/source"
	"NewsletterBuilder/internal/stage"
	"NewsletterBuilder/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New builds a runnable application. Collaborators whose credentials are
// missing are left out and the pipeline degrades around them.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	a := &Application{cfg: cfg}
	if baseLogger == nil {
		var closer io.Closer
		baseLogger, closer = logging.New(cfg.Logging)
		a.closers = append(a.closers, closer.Close)
	}
	a.logger = baseLogger

	httpClient := &http.Client{Timeout: cfg.Newsletter.FetchTimeout}
	recorder := metrics.NewRecorder(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)

	completers := newCompleterSet(ctx, a, cfg)
	stageLLM := completers.get(cfg.LLM.StageProvider)
	writerLLM := completers.get(cfg.LLM.WriterProvider)
	if stageLLM == nil {
		baseLogger.Warn("no language model configured, articles pass through unsummarized")
	}

	stageOpts := stage.Options{Logger: baseLogger, Timeout: cfg.LLM.Timeout, Observer: recorder}
	categorizer, err := stage.NewCategorizer(stageLLM, cfg.Newsletter.Categories, stageOpts)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("categorizer: %w", err)
	}

	renderer, err := render.New(cfg.Newsletter, baseLogger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	registry := source.NewRegistry(baseLogger.With("component", "sources"))
	registry.Register("newsapi", fetcher.NewsAPIFactory(cfg.NewsAPI, httpClient, baseLogger))
	registry.Register("rss", fetcher.RSSFactory(httpClient))
	registry.Register("arxiv", parser.ArxivFactory(httpClient))

	deps := usecase.PipelineDeps{
		ArticleFetchers: registry.Build(cfg.Sources),
		EventFetchers:   a.eventFetchers(ctx, httpClient, writerLLM),
		Summarizer:      stage.NewSummarizer(stageLLM, stageOpts),
		Categorizer:     categorizer,
		EventFilter:     stage.NewEventFilter(stageLLM, cfg.Newsletter.EventThreshold, stageOpts),
		Writer:          stage.NewArticleWriter(writerLLM, parser.NewPageExtractor(httpClient), stageOpts),
		Renderer:        renderer,
		Distributors:    a.distributors(ctx, httpClient),
		Repository:      a.repository(ctx),
		Metrics:         recorder,
		Logger:          baseLogger.With("component", "pipeline"),
		Clock:           func() time.Time { return time.Now().In(cfg.Scheduler.Location()) },
	}
	a.supplementary(ctx, &deps, httpClient)

	a.pipeline = usecase.NewPipeline(deps, usecase.Options{
		Title:           cfg.Newsletter.Title,
		Blacklist:       filter.NewBlacklist(cfg.Newsletter.Blacklist...),
		Categories:      cfg.Newsletter.Categories,
		TopArticleCount: cfg.Newsletter.TopArticleCount,
		BirthdayCount:   cfg.Newsletter.BirthdayCount,
		FetchTimeout:    cfg.Newsletter.FetchTimeout,
		RenderOnEmpty:   cfg.Newsletter.RenderOnEmpty,
	})
	return a, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) usecase.Result {
	return a.pipeline.Run(ctx)
}

// Schedule runs the pipeline now and then every interval until ctx ends.
func (a *Application) Schedule(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = a.cfg.Scheduler.Interval
	}
	ticker := scheduler.NewTickerScheduler(every)
	sched := usecase.NewScheduler(ticker, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "every", every)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases clients opened during wiring.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Application) eventFetchers(ctx context.Context, client *http.Client, writerLLM ports.Completer) []ports.EventFetcher {
	cfg := a.cfg.Events
	var out []ports.EventFetcher

	if cfg.Eventbrite.Token != "" {
		if f, err := fetcher.NewEventbriteFetcher(cfg.Eventbrite, client); a.keep("eventbrite", err) {
			out = append(out, f.WithLogger(a.logger))
		}
	}
	if cfg.SerpAPI.APIKey != "" {
		if f, err := fetcher.NewSerpAPIFetcher(cfg.SerpAPI, client); a.keep("serpapi", err) {
			out = append(out, f.WithLogger(a.logger))
		}
	}
	if a.cfg.Google.CredentialsFile != "" && cfg.Calendar.CalendarID != "" {
		if f, err := fetcher.NewGoogleCalendarFetcher(ctx, cfg.Calendar, a.googleOptions()...); a.keep("google calendar", err) {
			out = append(out, f.WithLogger(a.logger))
		}
	}
	if cfg.WebSearch.Enabled && writerLLM != nil {
		if f, err := fetcher.NewWebSearchEventFetcher(writerLLM, cfg.WebSearch, a.logger); a.keep("web search", err) {
			out = append(out, f)
		}
	}
	return out
}

func (a *Application) supplementary(ctx context.Context, deps *usecase.PipelineDeps, client *http.Client) {
	cfg := a.cfg
	if cfg.Weather.APIKey != "" {
		if f, err := fetcher.NewOpenWeatherFetcher(cfg.Weather, client); a.keep("weather", err) {
			deps.WeatherFetcher = f
		}
	}
	if cfg.Quotes.Enabled {
		deps.QuoteFetcher = fetcher.NewZenQuotesFetcher(cfg.Quotes.URL, client)
	}
	if cfg.Todoist.Token != "" {
		if f, err := fetcher.NewTodoistFetcher(cfg.Todoist, client); a.keep("todoist", err) {
			deps.TodoFetcher = f
		}
	}
	if cfg.Google.CredentialsFile != "" && cfg.Birthdays.SheetID != "" {
		if f, err := fetcher.NewBirthdaySheetFetcher(ctx, cfg.Birthdays, a.logger, a.googleOptions()...); a.keep("birthdays", err) {
			deps.BirthdayFetcher = f
		}
	}
}

func (a *Application) distributors(ctx context.Context, client *http.Client) []ports.Distributor {
	cfg := a.cfg.Distribution
	var out []ports.Distributor

	if cfg.Drive.Enabled && a.cfg.Google.CredentialsFile != "" {
		if d, err := distribute.NewDriveUploader(ctx, cfg.Drive.FolderID, a.googleOptions()...); a.keep("google drive", err) {
			out = append(out, d)
		}
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		if d, err := distribute.NewTelegramSender(cfg.Telegram, a.cfg.Newsletter.Title, client); a.keep("telegram", err) {
			out = append(out, d)
		}
	}
	return out
}

func (a *Application) repository(ctx context.Context) ports.RunRepository {
	dsn := a.cfg.Database.DSN
	if dsn == "" {
		return nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
		return nil
	}
	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.logger.Warn("run history disabled", "error", err)
		_ = db.Close()
		return nil
	}
	a.closers = append(a.closers, db.Close)
	return repo
}

func (a *Application) googleOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentialsFile(a.cfg.Google.CredentialsFile)}
}

// keep logs a construction error and reports whether the adapter is usable.
func (a *Application) keep(name string, err error) bool {
	if err != nil {
		a.logger.Warn("adapter disabled", "adapter", name, "error", err)
		return false
	}
	return true
}

// completerSet builds each provider once and shares it between stages.
type completerSet struct {
	app   *Application
	cfg   config.Config
	ctx   context.Context
	rdb   redis.Cmdable
	built map[string]ports.Completer
}

func newCompleterSet(ctx context.Context, a *Application, cfg config.Config) *completerSet {
	set := &completerSet{app: a, cfg: cfg, ctx: ctx, built: map[string]ports.Completer{}}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		a.closers = append(a.closers, rdb.Close)
		set.rdb = rdb
	}
	return set
}

// get returns the preferred provider, falling back to any other configured one.
func (s *completerSet) get(preferred string) ports.Completer {
	order := []string{normalizeProvider(preferred), "gemini", "chatgpt"}
	for _, name := range order {
		if c := s.build(name); c != nil {
			return c
		}
	}
	return nil
}

func (s *completerSet) build(name string) ports.Completer {
	if c, ok := s.built[name]; ok {
		return c
	}

	var base ports.Completer
	switch name {
	case "gemini":
		if s.cfg.Gemini.APIKey == "" {
			break
		}
		g, err := llm.NewGeminiClient(s.ctx, s.cfg.Gemini)
		if s.app.keep("gemini", err) {
			s.app.closers = append(s.app.closers, g.Close)
			base = g
		}
	case "chatgpt":
		if s.cfg.ChatGPT.APIKey == "" {
			break
		}
		c, err := llm.NewChatGPTClient(s.cfg.ChatGPT, &http.Client{Timeout: 2 * s.cfg.LLM.Timeout})
		if s.app.keep("chatgpt", err) {
			base = c
		}
	}

	var out ports.Completer
	if base != nil {
		out = llm.NewThrottled(base, s.cfg.LLM.RequestsPerSecond)
		if s.rdb != nil {
			out = llm.NewCachedCompleter(out, s.rdb, s.cfg.Redis.TTL, s.app.logger)
		}
	}
	s.built[name] = out
	return out
}

func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "chatgpt":
		return "chatgpt"
	case "google", "gemini":
		return "gemini"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
