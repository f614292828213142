package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/source"
)

// RSSFetcher reads RSS, Atom and JSON feeds.
type RSSFetcher struct {
	name   string
	url    string
	limit  int
	parser *gofeed.Parser
}

var _ ports.ArticleFetcher = (*RSSFetcher)(nil)

// NewRSSFetcher wires a feed parser; limit <= 0 keeps every item.
func NewRSSFetcher(name, feedURL string, limit int, client *http.Client) (*RSSFetcher, error) {
	if feedURL == "" {
		return nil, errors.New("rss: feed url is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	fp := gofeed.NewParser()
	fp.Client = client
	fp.UserAgent = "NewsletterBuilder/1.0"
	if name == "" {
		name = feedURL
	}
	return &RSSFetcher{name: name, url: feedURL, limit: limit, parser: fp}, nil
}

// RSSFactory builds feed sources; the optional "limit" caps items per fetch.
func RSSFactory(client *http.Client) source.Factory {
	return func(src config.SourceConfig) (ports.ArticleFetcher, error) {
		return NewRSSFetcher(src.Name, src.URL, atoiOr(src.Options["limit"], 0), client)
	}
}

// Name returns the configured feed name.
func (f *RSSFetcher) Name() string { return f.name }

// Fetch downloads and parses the feed.
func (f *RSSFetcher) Fetch(ctx context.Context) ([]domain.RawArticle, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", f.name, err)
	}

	sourceName := f.name
	if sourceName == f.url && feed.Title != "" {
		sourceName = feed.Title
	}

	articles := make([]domain.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if f.limit > 0 && len(articles) >= f.limit {
			break
		}
		if item == nil || item.Link == "" {
			continue
		}
		articles = append(articles, domain.RawArticle{
			Title:          item.Title,
			URL:            item.Link,
			Description:    item.Description,
			ContentSnippet: item.Content,
			PublishedAt:    itemTime(item),
			SourceName:     sourceName,
			SourceID:       item.GUID,
		})
	}
	return articles, nil
}

func itemTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	}
	if t, ok := domain.ParseTimestamp(item.Published); ok {
		return t
	}
	return time.Time{}
}
