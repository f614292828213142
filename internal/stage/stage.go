// Package stage holds the LLM-backed enrichment steps applied to a batch of
// articles or events. Every stage absorbs its own failures and always hands
// a batch to the next one.
package stage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"NewsletterBuilder/internal/ports"
)

// DefaultCallTimeout bounds a single LLM call.
const DefaultCallTimeout = 20 * time.Second

// Observer is told whenever a stage substitutes a fallback for an item.
type Observer interface {
	Fallback(stage string)
}

// Options are shared by all stage constructors.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Observer Observer
}

func (o Options) withDefaults(component string) Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	o.Logger = o.Logger.With("component", component)
	if o.Timeout <= 0 {
		o.Timeout = DefaultCallTimeout
	}
	return o
}

func (o Options) fallback(stage string) {
	if o.Observer != nil {
		o.Observer.Fallback(stage)
	}
}

func complete(ctx context.Context, llm ports.Completer, timeout time.Duration, prompt ports.Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := llm.Complete(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func runeLen(s string) int {
	return len([]rune(s))
}
