// Package httpjson is the JSON-over-HTTP plumbing shared by API adapters.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout applies to clients built without an explicit http.Client.
const DefaultTimeout = 20 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status string
	Code   int
	Body   string
}

// Error includes the response body when one was captured.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// Client talks to JSON APIs with a fixed set of default headers.
type Client struct {
	http    *http.Client
	headers http.Header
}

// New creates a reusable client; a nil http.Client gets DefaultTimeout.
func New(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{http: client, headers: http.Header{}}
}

// WithHeader returns a copy of the client that sends the header on every call.
func (c *Client) WithHeader(key, value string) *Client {
	clone := &Client{http: c.http, headers: c.headers.Clone()}
	clone.headers.Set(key, value)
	return clone
}

// WithBearer is a shorthand for an Authorization bearer header.
func (c *Client) WithBearer(token string) *Client {
	return c.WithHeader("Authorization", "Bearer "+token)
}

// HTTP exposes the underlying client for non-JSON calls.
func (c *Client) HTTP() *http.Client { return c.http }

// Get fetches base?query and decodes the JSON body into v.
func (c *Client) Get(ctx context.Context, base string, query url.Values, v any) error {
	target := base
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		target = base + sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return c.do(req, v)
}

// Post sends payload as JSON and decodes the response into v (if non-nil).
func (c *Client) Post(ctx context.Context, target string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Status: resp.Status, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
