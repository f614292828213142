package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsletterBuilder/internal/ports"
)

const cacheKeyPrefix = "newsletter:llm:"

// CachedCompleter memoizes completions in Redis so reruns on the same day do
// not pay for identical prompts twice. Cache failures never fail a call.
type CachedCompleter struct {
	next   ports.Completer
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Completer = (*CachedCompleter)(nil)

// NewCachedCompleter caches completions in Redis for ttl. A nil logger discards.
func NewCachedCompleter(next ports.Completer, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedCompleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedCompleter{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// Model reports the wrapped model.
func (c *CachedCompleter) Model() string { return c.next.Model() }

// Complete serves a cached answer when one exists. Cache errors fall through
// to the wrapped completer.
func (c *CachedCompleter) Complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	key := CacheKey(c.next.Model(), prompt)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.logger.Debug("llm cache hit", "key", key)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("llm cache read failed", "error", err)
	}

	answer, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer != "" {
		if err := c.rdb.Set(ctx, key, answer, c.ttl).Err(); err != nil {
			c.logger.Warn("llm cache write failed", "error", err)
		}
	}
	return answer, nil
}

// CacheKey hashes everything that influences a completion.
func CacheKey(model string, prompt ports.Prompt) string {
	h := sha256.New()
	for _, part := range []string{model, prompt.System, prompt.User, strconv.FormatFloat(float64(prompt.Temperature), 'f', -1, 32)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
