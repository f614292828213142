package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/infrastructure/httpjson"
	"NewsletterBuilder/internal/ports"
)

const (
	eventbriteSearchURL = "https://www.eventbriteapi.com/v3/events/search/"
	serpAPISearchURL    = "https://serpapi.com/search.json"
)

// EventbriteFetcher searches Eventbrite around a location.
type EventbriteFetcher struct {
	endpoint string
	cfg      config.EventbriteConfig
	http     *httpjson.Client
	logger   *slog.Logger
}

var _ ports.EventFetcher = (*EventbriteFetcher)(nil)

// NewEventbriteFetcher searches around Zurich within 10km unless configured.
func NewEventbriteFetcher(cfg config.EventbriteConfig, client *http.Client) (*EventbriteFetcher, error) {
	if cfg.Token == "" {
		return nil, errors.New("eventbrite: oauth token is not configured")
	}
	if cfg.Location == "" {
		cfg.Location = "Zurich"
	}
	if cfg.Within == "" {
		cfg.Within = "10km"
	}
	return &EventbriteFetcher{
		endpoint: eventbriteSearchURL,
		cfg:      cfg,
		http:     httpjson.New(client).WithBearer(cfg.Token),
		logger:   orDiscard(nil),
	}, nil
}

// WithLogger sets where skipped events are reported.
func (f *EventbriteFetcher) WithLogger(logger *slog.Logger) *EventbriteFetcher {
	f.logger = orDiscard(logger).With("component", "eventbrite")
	return f
}

// Name identifies the provider in logs and metrics.
func (f *EventbriteFetcher) Name() string { return "Eventbrite" }

type eventbriteText struct {
	Text string `json:"text"`
}

type eventbriteTime struct {
	UTC string `json:"utc"`
}

type eventbriteResponse struct {
	Events []struct {
		Name        eventbriteText `json:"name"`
		Description eventbriteText `json:"description"`
		Start       eventbriteTime `json:"start"`
		End         eventbriteTime `json:"end"`
		URL         string         `json:"url"`
		Venue       *struct {
			Address struct {
				Display string `json:"localized_address_display"`
			} `json:"address"`
		} `json:"venue"`
	} `json:"events"`
}

// Fetch returns events sorted by date. Events with an unparseable start or
// end are skipped.
func (f *EventbriteFetcher) Fetch(ctx context.Context) ([]domain.Event, error) {
	params := url.Values{}
	params.Set("location.address", f.cfg.Location)
	params.Set("expand", "venue")
	params.Set("within", f.cfg.Within)
	params.Set("sort_by", "date")
	if f.cfg.Query != "" {
		params.Set("q", f.cfg.Query)
	}
	if f.cfg.Categories != "" {
		params.Set("categories", f.cfg.Categories)
	}

	var resp eventbriteResponse
	if err := f.http.Get(ctx, f.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("eventbrite: %w", err)
	}

	events := make([]domain.Event, 0, len(resp.Events))
	for _, item := range resp.Events {
		if item.Name.Text == "" {
			continue
		}
		evt := domain.Event{
			Title:       item.Name.Text,
			Description: item.Description.Text,
			URL:         item.URL,
			Source:      "Eventbrite",
		}
		start, end, ok := eventWindow(item.Start.UTC, item.End.UTC)
		if !ok {
			f.logger.Warn("skip event with invalid timestamp", "title", evt.Title, "start", item.Start.UTC, "end", item.End.UTC)
			continue
		}
		evt.Start, evt.End = start, end
		if item.Venue != nil {
			evt.Location = item.Venue.Address.Display
		}
		events = append(events, evt)
	}
	return events, nil
}

// SerpAPIFetcher reads the events box of a Google search through SerpAPI.
type SerpAPIFetcher struct {
	endpoint string
	cfg      config.SerpAPIConfig
	http     *httpjson.Client
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.EventFetcher = (*SerpAPIFetcher)(nil)

// NewSerpAPIFetcher defaults the query to "events in Zurich".
func NewSerpAPIFetcher(cfg config.SerpAPIConfig, client *http.Client) (*SerpAPIFetcher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("serpapi: api key is not configured")
	}
	if cfg.Query == "" {
		cfg.Query = "events in Zurich"
	}
	return &SerpAPIFetcher{
		endpoint: serpAPISearchURL,
		cfg:      cfg,
		http:     httpjson.New(client),
		now:      time.Now,
		logger:   orDiscard(nil),
	}, nil
}

// WithLogger sets where skipped events are reported.
func (f *SerpAPIFetcher) WithLogger(logger *slog.Logger) *SerpAPIFetcher {
	f.logger = orDiscard(logger).With("component", "serpapi")
	return f
}

// Name identifies the provider in logs and metrics.
func (f *SerpAPIFetcher) Name() string { return "Google Events" }

type serpAPIResponse struct {
	Error         string `json:"error"`
	EventsResults []struct {
		Title string `json:"title"`
		Date  struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"date"`
		Address json.RawMessage `json:"address"`
		Snippet string          `json:"snippet"`
		Link    string          `json:"link"`
	} `json:"events_results"`
}

// Fetch reads the events box; yearless dates are resolved against now.
func (f *SerpAPIFetcher) Fetch(ctx context.Context) ([]domain.Event, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", f.cfg.Query)
	params.Set("api_key", f.cfg.APIKey)
	params.Set("hl", "en")
	if f.cfg.Location != "" {
		params.Set("location", f.cfg.Location)
	}

	var resp serpAPIResponse
	if err := f.http.Get(ctx, f.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", resp.Error)
	}

	events := make([]domain.Event, 0, len(resp.EventsResults))
	for _, item := range resp.EventsResults {
		if item.Title == "" {
			continue
		}
		evt := domain.Event{
			Title:       item.Title,
			Location:    flattenAddress(item.Address),
			Description: item.Snippet,
			URL:         item.Link,
			Source:      "Google Events",
		}
		now := f.now()
		start, ok := shortDate(item.Date.StartDate, now)
		end, endOK := shortDate(item.Date.EndDate, now)
		if !ok || !endOK {
			f.logger.Warn("skip event with invalid date", "title", evt.Title, "start", item.Date.StartDate, "end", item.Date.EndDate)
			continue
		}
		evt.Start, evt.End = start, end
		events = append(events, evt)
	}
	return events, nil
}

// flattenAddress accepts both a plain string and a list of address lines.
func flattenAddress(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ", ")
	}
	return ""
}
