package stage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

// DefaultEventThreshold is the mid-scale interest cut-off.
const DefaultEventThreshold = 5.0

// EventFilter keeps events the LLM rates at or above the threshold.
type EventFilter struct {
	llm       ports.Completer
	threshold float64
	opts      Options
}

var _ ports.EventFilter = (*EventFilter)(nil)

// NewEventFilter keeps events scored at or above threshold. Without a
// language model every event is kept.
func NewEventFilter(llm ports.Completer, threshold float64, opts Options) *EventFilter {
	return &EventFilter{llm: llm, threshold: threshold, opts: opts.withDefaults("stage.event_filter")}
}

// Name identifies the stage in logs and metrics.
func (f *EventFilter) Name() string { return "event_filter" }

// ProcessBatch preserves the relative order of kept events.
func (f *EventFilter) ProcessBatch(ctx context.Context, events []domain.Event) []domain.Event {
	if f.llm == nil {
		f.opts.Logger.Warn("llm unavailable, keeping all events", "count", len(events))
		return events
	}

	kept := make([]domain.Event, 0, len(events))
	for _, evt := range events {
		if f.score(ctx, evt) >= f.threshold {
			kept = append(kept, evt)
		}
	}
	f.opts.Logger.Info("filtered events", "kept", len(kept), "total", len(events), "threshold", f.threshold)
	return kept
}

func (f *EventFilter) score(ctx context.Context, evt domain.Event) float64 {
	answer, err := complete(ctx, f.llm, f.opts.Timeout, ports.Prompt{
		User: fmt.Sprintf(
			"Rate from 1 (boring) to 10 (exciting) how interesting this event is for a local tech newsletter.\nReturn only the number.\nEVENT:\nTitle: %s\nDescription: %s\nLocation: %s",
			evt.Title, evt.Description, evt.Location,
		),
	})
	if err != nil {
		f.opts.Logger.Warn("event scoring failed", "event", evt.Title, "error", err)
		f.opts.fallback(f.Name())
		return 0
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		f.opts.Logger.Debug("unparseable event score", "event", evt.Title, "answer", answer)
		f.opts.fallback(f.Name())
		return 0
	}
	return score
}
