package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/infrastructure/httpjson"
	"NewsletterBuilder/internal/ports"
)

const (
	zenQuotesTodayURL = "https://zenquotes.io/api/today"
	todoistTasksURL   = "https://api.todoist.com/rest/v2/tasks"
)

// ZenQuotesFetcher returns the quote of the day.
type ZenQuotesFetcher struct {
	endpoint string
	http     *httpjson.Client
}

var _ ports.QuoteFetcher = (*ZenQuotesFetcher)(nil)

// NewZenQuotesFetcher uses endpoint or the public "today" API when empty.
func NewZenQuotesFetcher(endpoint string, client *http.Client) *ZenQuotesFetcher {
	if endpoint == "" {
		endpoint = zenQuotesTodayURL
	}
	return &ZenQuotesFetcher{endpoint: endpoint, http: httpjson.New(client)}
}

// Name implements ports.Fetcher.
func (f *ZenQuotesFetcher) Name() string { return "ZenQuotes" }

// Fetch returns the quote of the day.
func (f *ZenQuotesFetcher) Fetch(ctx context.Context) ([]domain.Quote, error) {
	var resp []struct {
		Q string `json:"q"`
		A string `json:"a"`
	}
	if err := f.http.Get(ctx, f.endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("zenquotes: %w", err)
	}
	if len(resp) == 0 || strings.TrimSpace(resp[0].Q) == "" {
		return nil, nil
	}
	return []domain.Quote{{Text: strings.TrimSpace(resp[0].Q), Author: strings.TrimSpace(resp[0].A)}}, nil
}

// TodoistFetcher lists open tasks, optionally limited to one project.
type TodoistFetcher struct {
	endpoint  string
	projectID string
	http      *httpjson.Client
}

var _ ports.TodoFetcher = (*TodoistFetcher)(nil)

// NewTodoistFetcher requires an API token.
func NewTodoistFetcher(cfg config.TodoistConfig, client *http.Client) (*TodoistFetcher, error) {
	if cfg.Token == "" {
		return nil, errors.New("todoist: api token is not configured")
	}
	return &TodoistFetcher{
		endpoint:  todoistTasksURL,
		projectID: cfg.ProjectID,
		http:      httpjson.New(client).WithBearer(cfg.Token),
	}, nil
}

// Name implements ports.Fetcher.
func (f *TodoistFetcher) Name() string { return "Todoist" }

// Fetch lists open tasks, limited to the configured project when one is set.
func (f *TodoistFetcher) Fetch(ctx context.Context) ([]domain.TodoItem, error) {
	params := url.Values{}
	if f.projectID != "" {
		params.Set("project_id", f.projectID)
	}

	var resp []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Due     *struct {
			Date     string `json:"date"`
			Datetime string `json:"datetime"`
		} `json:"due"`
	}
	if err := f.http.Get(ctx, f.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("todoist: %w", err)
	}

	items := make([]domain.TodoItem, 0, len(resp))
	for _, task := range resp {
		if strings.TrimSpace(task.Content) == "" {
			continue
		}
		item := domain.TodoItem{ID: task.ID, Content: task.Content}
		if task.Due != nil {
			raw := task.Due.Datetime
			if raw == "" {
				raw = task.Due.Date
			}
			item.Due, _ = domain.ParseTimestamp(raw)
		}
		items = append(items, item)
	}
	return items, nil
}
