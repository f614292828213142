// Package fetcher holds the adapters that pull articles, events and the
// supplementary newsletter data from upstream providers.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/infrastructure/httpjson"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/source"
)

const (
	NewsAPIEverything   = "everything"
	NewsAPITopHeadlines = "top-headlines"

	defaultNewsAPIBase = "https://newsapi.org/v2/"
	maxNewsAPIPageSize = 100
)

// NewsAPIQuery selects what a NewsAPI source asks for.
type NewsAPIQuery struct {
	Endpoint string
	Query    string
	Language string
	Country  string
	Category string
	Sources  string
	DaysAgo  int
	PageSize int
}

// NewsAPIFetcher reads articles from newsapi.org.
type NewsAPIFetcher struct {
	name    string
	baseURL string
	apiKey  string
	query   NewsAPIQuery
	http    *httpjson.Client
	now     func() time.Time
	logger  *slog.Logger
}

var _ ports.ArticleFetcher = (*NewsAPIFetcher)(nil)

// NewNewsAPIFetcher validates the endpoint and clamps the page size.
func NewNewsAPIFetcher(name, baseURL, apiKey string, q NewsAPIQuery, client *http.Client) (*NewsAPIFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("newsapi: api key is not configured")
	}
	q.Endpoint = strings.Trim(strings.TrimSpace(q.Endpoint), "/")
	if q.Endpoint == "" {
		q.Endpoint = NewsAPIEverything
	}
	if q.Endpoint != NewsAPIEverything && q.Endpoint != NewsAPITopHeadlines {
		return nil, fmt.Errorf("newsapi: unknown endpoint %q", q.Endpoint)
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.PageSize > maxNewsAPIPageSize {
		q.PageSize = maxNewsAPIPageSize
	}
	if baseURL == "" {
		baseURL = defaultNewsAPIBase
	}
	if name == "" {
		name = "NewsAPI (" + q.Endpoint + ")"
	}
	return &NewsAPIFetcher{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		apiKey:  apiKey,
		query:   q,
		http:    httpjson.New(client),
		now:     time.Now,
		logger:  orDiscard(nil),
	}, nil
}

// WithLogger sets where skipped articles are reported.
func (f *NewsAPIFetcher) WithLogger(logger *slog.Logger) *NewsAPIFetcher {
	f.logger = orDiscard(logger).With("component", "newsapi", "source", f.name)
	return f
}

// NewsAPIFactory builds newsapi sources from their option map.
func NewsAPIFactory(cfg config.NewsAPIConfig, client *http.Client, logger *slog.Logger) source.Factory {
	return func(src config.SourceConfig) (ports.ArticleFetcher, error) {
		opts := src.Options
		q := NewsAPIQuery{
			Endpoint: opts["endpoint"],
			Query:    opts["query"],
			Language: opts["language"],
			Country:  opts["country"],
			Category: opts["category"],
			Sources:  opts["sources"],
			DaysAgo:  atoiOr(opts["daysAgo"], 0),
			PageSize: atoiOr(opts["pageSize"], 0),
		}
		base := cfg.BaseURL
		if src.URL != "" {
			base = src.URL
		}
		f, err := NewNewsAPIFetcher(src.Name, base, cfg.APIKey, q, client)
		if err != nil {
			return nil, err
		}
		return f.WithLogger(logger), nil
	}
}

// Name is the configured source name.
func (f *NewsAPIFetcher) Name() string { return f.name }

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Fetch performs one request. A top-headlines source without any selector
// returns nothing instead of querying the API.
func (f *NewsAPIFetcher) Fetch(ctx context.Context) ([]domain.RawArticle, error) {
	params, ok := f.params()
	if !ok {
		return nil, nil
	}

	var resp newsAPIResponse
	if err := f.http.Get(ctx, f.baseURL+f.query.Endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", f.name, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi %s: %s: %s", f.name, resp.Code, resp.Message)
	}

	articles := make([]domain.RawArticle, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		if item.URL == "" {
			continue
		}
		published, ok := optionalTimestamp(item.PublishedAt)
		if !ok {
			f.logger.Warn("skip article with invalid timestamp", "title", item.Title, "published_at", item.PublishedAt)
			continue
		}
		sourceName := item.Source.Name
		if sourceName == "" {
			sourceName = f.name
		}
		articles = append(articles, domain.RawArticle{
			Title:          item.Title,
			URL:            item.URL,
			Description:    item.Description,
			ContentSnippet: item.Content,
			PublishedAt:    published,
			SourceName:     sourceName,
			SourceID:       item.Source.ID,
		})
	}
	return articles, nil
}

func (f *NewsAPIFetcher) params() (url.Values, bool) {
	q := f.query
	params := url.Values{}
	params.Set("apiKey", f.apiKey)
	params.Set("pageSize", strconv.Itoa(q.PageSize))

	switch q.Endpoint {
	case NewsAPIEverything:
		if q.Query != "" {
			params.Set("q", q.Query)
		}
		if q.Language != "" {
			params.Set("language", q.Language)
		}
		if q.DaysAgo > 0 {
			params.Set("from", f.now().UTC().AddDate(0, 0, -q.DaysAgo).Format("2006-01-02"))
		}
		params.Set("sortBy", "publishedAt")
	case NewsAPITopHeadlines:
		// sources cannot be combined with country or category
		switch {
		case q.Sources != "":
			params.Set("sources", q.Sources)
		case q.Country != "":
			params.Set("country", q.Country)
			if q.Category != "" {
				params.Set("category", q.Category)
			}
		case q.Category != "":
			params.Set("category", q.Category)
		}
		if q.Query != "" {
			params.Set("q", q.Query)
		}
		if q.Sources == "" && q.Country == "" && q.Category == "" && q.Query == "" {
			return nil, false
		}
	}
	return params, true
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}
