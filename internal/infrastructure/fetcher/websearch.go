package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

const (
	webSearchMaxEvents = 5
	perSiteMaxEvents   = 3
)

// WebSearchEventFetcher asks a language model to look up upcoming events,
// once for a free-text query and once per configured site.
type WebSearchEventFetcher struct {
	llm    ports.Completer
	query  string
	urls   []string
	logger *slog.Logger
}

var _ ports.EventFetcher = (*WebSearchEventFetcher)(nil)

// NewWebSearchEventFetcher needs a completer and at least a query or one URL.
func NewWebSearchEventFetcher(llm ports.Completer, cfg config.WebSearchConfig, logger *slog.Logger) (*WebSearchEventFetcher, error) {
	if llm == nil {
		return nil, errors.New("web search: completer is required")
	}
	if strings.TrimSpace(cfg.Query) == "" && len(cfg.URLs) == 0 {
		return nil, errors.New("web search: neither query nor urls configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebSearchEventFetcher{
		llm:    llm,
		query:  strings.TrimSpace(cfg.Query),
		urls:   cfg.URLs,
		logger: logger.With("component", "web_search_events"),
	}, nil
}

// Name identifies the provider in logs and metrics.
func (f *WebSearchEventFetcher) Name() string { return "Web Search" }

// Fetch returns whatever the successful lookups produced. It fails only when
// every lookup failed.
func (f *WebSearchEventFetcher) Fetch(ctx context.Context) ([]domain.Event, error) {
	var (
		events []domain.Event
		errs   []error
		calls  int
	)

	if f.query != "" {
		calls++
		prompt := fmt.Sprintf("Search the web for %s. Return up to %d upcoming events as a JSON list with keys 'title', 'start_time', 'location', and 'url'.", f.query, webSearchMaxEvents)
		found, err := f.lookup(ctx, prompt, "Web Search")
		if err != nil {
			errs = append(errs, err)
		}
		events = append(events, found...)
	}

	for _, site := range f.urls {
		site = strings.TrimSpace(site)
		if site == "" {
			continue
		}
		calls++
		prompt := fmt.Sprintf("Search %s for upcoming events. Return up to %d events as a JSON list with keys 'title', 'start_time', 'location', and 'url'.", site, perSiteMaxEvents)
		found, err := f.lookup(ctx, prompt, "Web Search ("+site+")")
		if err != nil {
			f.logger.Warn("site lookup failed", "site", site, "error", err)
			errs = append(errs, err)
		}
		events = append(events, found...)
	}

	if calls > 0 && len(errs) == calls {
		return nil, fmt.Errorf("web search: %w", errors.Join(errs...))
	}
	return events, nil
}

func (f *WebSearchEventFetcher) lookup(ctx context.Context, prompt, sourceName string) ([]domain.Event, error) {
	answer, err := f.llm.Complete(ctx, ports.Prompt{User: prompt})
	if err != nil {
		return nil, err
	}
	events, skipped, err := parseEventList(answer, sourceName)
	if skipped > 0 {
		f.logger.Warn("skipped events with invalid timestamps", "source", sourceName, "skipped", skipped)
	}
	return events, err
}

type webEvent struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// ParseEventList decodes a JSON array of events from a model answer,
// tolerating code fences and surrounding prose. Entries without a title or
// with an unparseable start or end time are skipped.
func ParseEventList(answer, sourceName string) ([]domain.Event, error) {
	events, _, err := parseEventList(answer, sourceName)
	return events, err
}

func parseEventList(answer, sourceName string) ([]domain.Event, int, error) {
	body := strings.TrimSpace(answer)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, 0, fmt.Errorf("no json list in answer")
	}

	var items []webEvent
	if err := json.Unmarshal([]byte(body[start:end+1]), &items); err != nil {
		return nil, 0, fmt.Errorf("decode event list: %w", err)
	}

	skipped := 0

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = strings.TrimSpace(item.Summary)
		}
		if title == "" {
			continue
		}
		evt := domain.Event{
			Title:       title,
			Location:    item.Location,
			Description: item.Description,
			URL:         item.URL,
			Source:      sourceName,
		}
		start, end, ok := eventWindow(item.StartTime, item.EndTime)
		if !ok {
			skipped++
			continue
		}
		evt.Start, evt.End = start, end
		events = append(events, evt)
	}
	return events, skipped, nil
}
