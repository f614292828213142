package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
	"NewsletterBuilder/internal/source"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivCategory is one listing page, e.g. https://arxiv.org/list/cs.AI/pastweek.
type ArxivCategory struct {
	Name string
	URL  string
}

// ArxivFetcher crawls category listings and keeps entries dated inside the
// lookback window.
type ArxivFetcher struct {
	name       string
	categories []ArxivCategory
	client     *http.Client
	pageSize   int
	lookback   int
	limit      int
	now        func() time.Time
}

var _ ports.ArticleFetcher = (*ArxivFetcher)(nil)

// NewArxivFetcher wires an HTTP client; pageSize defaults to 200 and the
// lookback window to one day before today.
func NewArxivFetcher(name string, categories []ArxivCategory, client *http.Client) (*ArxivFetcher, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", name)
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if name == "" {
		name = "arxiv"
	}
	return &ArxivFetcher{
		name:       name,
		categories: categories,
		client:     client,
		pageSize:   200,
		lookback:   1,
		now:        time.Now,
	}, nil
}

// ArxivFactory builds arxiv sources. Options: "lookbackDays", "limit".
func ArxivFactory(client *http.Client) source.Factory {
	return func(src config.SourceConfig) (ports.ArticleFetcher, error) {
		cats := make([]ArxivCategory, 0, len(src.Categories))
		for _, c := range src.Categories {
			cats = append(cats, ArxivCategory{Name: c.Name, URL: c.URL})
		}
		if len(cats) == 0 && src.URL != "" {
			cats = append(cats, ArxivCategory{URL: src.URL})
		}

		f, err := NewArxivFetcher(src.Name, cats, client)
		if err != nil {
			return nil, err
		}
		if n, err := strconv.Atoi(src.Options["lookbackDays"]); err == nil && n >= 0 {
			f.lookback = n
		}
		if n, err := strconv.Atoi(src.Options["limit"]); err == nil && n > 0 {
			f.limit = n
		}
		return f, nil
	}
}

// Name identifies the source in logs and metrics.
func (a *ArxivFetcher) Name() string {
	return a.name
}

// Fetch walks through each category URL and returns the entries of the window.
func (a *ArxivFetcher) Fetch(ctx context.Context) ([]domain.RawArticle, error) {
	today := a.now().UTC().Truncate(24 * time.Hour)
	oldest := today.AddDate(0, 0, -a.lookback)

	results := make([]domain.RawArticle, 0)
	seen := map[string]struct{}{}

	for _, cat := range a.categories {
		skip := 0
		taken := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			entries, shouldContinue := a.extractEntries(doc, oldest, cat.Name)
			for _, e := range entries {
				if a.limit > 0 && taken >= a.limit {
					shouldContinue = false
					break
				}
				if _, ok := seen[e.id]; ok {
					continue
				}
				seen[e.id] = struct{}{}
				results = append(results, e.article)
				taken++
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return results, nil
}

func (a *ArxivFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

type arxivEntry struct {
	id      string
	article domain.RawArticle
}

// extractEntries stops the scan at the first entry older than the window;
// listings are ordered newest first.
func (a *ArxivFetcher) extractEntries(doc *goquery.Document, oldest time.Time, category string) ([]arxivEntry, bool) {
	var (
		collected    []arxivEntry
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		entry, err := parseEntry(dt, dd, a.name, category, a.now().UTC())
		if err != nil {
			return true
		}

		day := entry.article.PublishedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(oldest) {
			continueScan = false
			return false
		}
		collected = append(collected, entry)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, siteName, category string, fallback time.Time) (arxivEntry, error) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")
	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href == "" {
		return arxivEntry{}, fmt.Errorf("entry without abstract link")
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := fallback
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	if id == "" {
		id = href
	}

	sourceName := siteName
	if category != "" {
		sourceName = fmt.Sprintf("%s/%s", siteName, category)
	}

	return arxivEntry{
		id: id,
		article: domain.RawArticle{
			Title:          collapse(title),
			URL:            href,
			ContentSnippet: collapse(abstract),
			PublishedAt:    publishedAt,
			SourceName:     sourceName,
			SourceID:       id,
		},
	}, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
