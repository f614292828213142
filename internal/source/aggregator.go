package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsletterBuilder/internal/ports"
)

// DefaultTimeout bounds a single fetch call.
const DefaultTimeout = 20 * time.Second

// ErrNoFetcher is returned by Collect for an absent collaborator.
var ErrNoFetcher = errors.New("fetcher is not configured")

// Observer receives per-adapter outcomes, typically a metrics recorder.
type Observer interface {
	Fetched(kind, source string, count int)
	Failed(kind, source string)
}

// Options tune how adapters are invoked.
type Options struct {
	Kind     string
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer Observer
}

// Collect invokes a single fetcher under a timeout. A panic inside the
// fetcher is converted into an error; any error comes with a nil batch.
func Collect[T any](ctx context.Context, fetcher ports.Fetcher[T], opts Options) (items []T, err error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			items = nil
			err = fmt.Errorf("fetcher %s panicked: %v", fetcher.Name(), rec)
		}
	}()

	items, err = fetcher.Fetch(callCtx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Aggregate concatenates the batches of all fetchers in list order. Failing
// adapters are logged and contribute nothing; the call itself never fails.
func Aggregate[T any](ctx context.Context, fetchers []ports.Fetcher[T], opts Options) []T {
	var aggregated []T
	for _, fetcher := range fetchers {
		if fetcher == nil {
			continue
		}
		name := fetcher.Name()

		items, err := Collect(ctx, fetcher, opts)
		if err != nil {
			logWarn(opts.Logger, "fetch failed", "kind", opts.Kind, "source", name, "error", err)
			if opts.Observer != nil {
				opts.Observer.Failed(opts.Kind, name)
			}
			continue
		}

		if len(items) == 0 {
			logInfo(opts.Logger, "source returned no items", "kind", opts.Kind, "source", name)
		} else {
			logInfo(opts.Logger, "source fetched", "kind", opts.Kind, "source", name, "count", len(items))
		}
		if opts.Observer != nil {
			opts.Observer.Fetched(opts.Kind, name, len(items))
		}
		aggregated = append(aggregated, items...)
	}

	logDebug(opts.Logger, "aggregation done", "kind", opts.Kind, "adapters", len(fetchers), "total", len(aggregated))
	return aggregated
}

func logInfo(l *slog.Logger, msg string, args ...any) {
	if l != nil {
		l.Info(msg, args...)
	}
}

func logWarn(l *slog.Logger, msg string, args ...any) {
	if l != nil {
		l.Warn(msg, args...)
	}
}

func logDebug(l *slog.Logger, msg string, args ...any) {
	if l != nil {
		l.Debug(msg, args...)
	}
}
