// Package birthday orders recurring birthdays by their next occurrence.
package birthday

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"NewsletterBuilder/internal/domain"
)

// Never is the distance reported for dates that do not exist in the
// resolved year; such birthdays sort after every valid one.
const Never = math.MaxInt32

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"02.01.",
	"02.01",
	"01/02/2006",
	"01/02",
}

// DaysUntil returns the whole days from reference to the next occurrence of b.
// The second result is false when the date is invalid for the year it
// resolves to (e.g. Feb 29 in a non-leap year).
func DaysUntil(b domain.Birthday, reference time.Time) (int, bool) {
	ref := truncate(reference)

	next, ok := occurrence(ref.Year(), b)
	if !ok {
		return Never, false
	}
	if next.Before(ref) {
		if next, ok = occurrence(ref.Year()+1, b); !ok {
			return Never, false
		}
	}
	return int(next.Sub(ref).Hours() / 24), true
}

// Upcoming returns at most count birthdays ordered by ascending distance.
// Ties keep their input order. The input slice is not modified.
func Upcoming(birthdays []domain.Birthday, count int, reference time.Time) []domain.Birthday {
	if count <= 0 || len(birthdays) == 0 {
		return nil
	}

	type ranked struct {
		b    domain.Birthday
		days int
	}
	list := make([]ranked, len(birthdays))
	for i, b := range birthdays {
		days, _ := DaysUntil(b, reference)
		list[i] = ranked{b: b, days: days}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].days < list[j].days })

	if count > len(list) {
		count = len(list)
	}
	out := make([]domain.Birthday, count)
	for i := range out {
		out[i] = list[i].b
	}
	return out
}

// ParseDate extracts month and day from the free-form date cell of a sheet.
func ParseDate(raw string) (time.Month, int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, 0, fmt.Errorf("empty birthday date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Month(), t.Day(), nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognized birthday date %q", raw)
}

func occurrence(year int, b domain.Birthday) (time.Time, bool) {
	t := time.Date(year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
	if t.Month() != b.Month || t.Day() != b.Day {
		return time.Time{}, false
	}
	return t, true
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
