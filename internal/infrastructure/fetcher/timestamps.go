package fetcher

import (
	"log/slog"
	"strings"
	"time"

	"NewsletterBuilder/internal/domain"
)

// optionalTimestamp parses an upstream timestamp that may be absent. An empty
// value is the zero time; a non-empty value that does not parse is invalid.
func optionalTimestamp(raw string) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, true
	}
	return domain.ParseTimestamp(raw)
}

// eventWindow parses both ends of an event. ok is false when either one is
// present but unparseable.
func eventWindow(start, end string) (time.Time, time.Time, bool) {
	s, ok := optionalTimestamp(start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	e, ok := optionalTimestamp(end)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

// SerpAPI usually reports "Mar 14" style dates without a year.
var shortDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan 2006",
	"Jan 2",
	"2 Jan",
}

// shortDate accepts the timestamps optionalTimestamp does plus month-day
// dates. A yearless date more than 30 days behind now belongs to next year.
func shortDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, ok := optionalTimestamp(raw); ok {
		return t, true
	}
	for _, layout := range shortDateLayouts {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err != nil {
			continue
		}
		if strings.Contains(layout, "2006") {
			return t, true
		}
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.Before(now.AddDate(0, 0, -30)) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
