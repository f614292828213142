package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"NewsletterBuilder/internal/ports"
)

const userAgent = "NewsletterBuilder/1.0"

// PlainText strips markup from an HTML fragment and collapses whitespace.
// Input without tags is only whitespace-normalized.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageExtractor downloads a page and returns its readable body text.
type PageExtractor struct {
	client  *http.Client
	maxBody int64
}

var _ ports.PageExtractor = (*PageExtractor)(nil)

// NewPageExtractor wires an HTTP client; a nil client gets a 20s timeout.
func NewPageExtractor(client *http.Client) *PageExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageExtractor{client: client, maxBody: 4 << 20}
}

// Extract fetches pageURL and runs readability over it.
func (p *PageExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("invalid page url %q", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, p.maxBody), parsed)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
