package source

import (
	"fmt"
	"log/slog"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/ports"
)

// Factory builds an article fetcher from one configured source entry.
type Factory func(cfg config.SourceConfig) (ports.ArticleFetcher, error)

// Registry keeps a mapping from source kinds to their factories.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{factories: map[string]Factory{}, logger: logger}
}

// Register adds or replaces a factory for the given kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Resolve returns a factory by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Factory, error) {
	if factory, ok := r.factories[kind]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("source kind %s is not registered", kind)
}

// Build turns the configured sources into fetchers, preserving config order.
// Entries that cannot be built are logged and skipped.
func (r *Registry) Build(sources []config.SourceConfig) []ports.ArticleFetcher {
	fetchers := make([]ports.ArticleFetcher, 0, len(sources))
	for _, src := range sources {
		factory, err := r.Resolve(src.Kind)
		if err != nil {
			r.warn("skip source", "source", src.Name, "error", err)
			continue
		}

		fetcher, err := factory(src)
		if err != nil {
			r.warn("skip source", "source", src.Name, "kind", src.Kind, "error", err)
			continue
		}
		r.debug("source ready", "source", src.Name, "kind", src.Kind)
		fetchers = append(fetchers, fetcher)
	}
	return fetchers
}

func (r *Registry) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Registry) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
