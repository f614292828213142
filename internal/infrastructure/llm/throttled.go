package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"NewsletterBuilder/internal/ports"
)

// Throttled limits how fast prompts reach the wrapped completer.
type Throttled struct {
	next    ports.Completer
	limiter *rate.Limiter
}

var _ ports.Completer = (*Throttled)(nil)

// NewThrottled allows rps requests per second; non-positive rps disables limiting.
func NewThrottled(next ports.Completer, rps float64) *Throttled {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Model reports the wrapped model.
func (t *Throttled) Model() string { return t.next.Model() }

// Complete waits for the rate limiter before delegating.
func (t *Throttled) Complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.Complete(ctx, prompt)
}
