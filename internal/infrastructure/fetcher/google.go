package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"NewsletterBuilder/internal/birthday"
	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/ports"
)

// GoogleCalendarFetcher lists upcoming events of one calendar.
type GoogleCalendarFetcher struct {
	svc        *calendar.Service
	calendarID string
	maxResults int64
	now        func() time.Time
	logger     *slog.Logger
}

var _ ports.EventFetcher = (*GoogleCalendarFetcher)(nil)

// NewGoogleCalendarFetcher creates the API service; opts carry credentials.
func NewGoogleCalendarFetcher(ctx context.Context, cfg config.GoogleCalendarConfig, opts ...option.ClientOption) (*GoogleCalendarFetcher, error) {
	opts = append([]option.ClientOption{option.WithScopes(calendar.CalendarReadonlyScope)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	id := cfg.CalendarID
	if id == "" {
		id = "primary"
	}
	maxResults := int64(cfg.MaxResults)
	if maxResults <= 0 {
		maxResults = 3
	}
	return &GoogleCalendarFetcher{svc: svc, calendarID: id, maxResults: maxResults, now: time.Now, logger: orDiscard(nil)}, nil
}

// WithLogger sets where skipped events are reported.
func (f *GoogleCalendarFetcher) WithLogger(logger *slog.Logger) *GoogleCalendarFetcher {
	f.logger = orDiscard(logger).With("component", "google_calendar")
	return f
}

// Name identifies the provider in logs and metrics.
func (f *GoogleCalendarFetcher) Name() string { return "Google Calendar" }

// Fetch lists the next events from now on, expanding recurring ones.
func (f *GoogleCalendarFetcher) Fetch(ctx context.Context) ([]domain.Event, error) {
	resp, err := f.svc.Events.List(f.calendarID).
		TimeMin(f.now().UTC().Format(time.RFC3339)).
		MaxResults(f.maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", f.calendarID, err)
	}

	events := make([]domain.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Summary == "" {
			continue
		}
		evt := domain.Event{
			Title:       item.Summary,
			Location:    item.Location,
			Description: item.Description,
			URL:         item.HtmlLink,
			Source:      "Google Calendar",
		}
		start, end, ok := eventWindow(eventTime(item.Start), eventTime(item.End))
		if !ok {
			f.logger.Warn("skip event with invalid time", "title", evt.Title)
			continue
		}
		evt.Start, evt.End = start, end
		events = append(events, evt)
	}
	return events, nil
}

// eventTime prefers the timed value over an all-day date.
func eventTime(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

const birthdaySheetSource = "Google Sheets"

// BirthdaySheetFetcher reads "name, date" rows from a spreadsheet.
type BirthdaySheetFetcher struct {
	svc     *sheets.Service
	sheetID string
	rng     string
	logger  *slog.Logger
}

var _ ports.BirthdayFetcher = (*BirthdaySheetFetcher)(nil)

// NewBirthdaySheetFetcher opens a Sheets client for the configured birthday sheet.
func NewBirthdaySheetFetcher(ctx context.Context, cfg config.BirthdaysConfig, logger *slog.Logger, opts ...option.ClientOption) (*BirthdaySheetFetcher, error) {
	if cfg.SheetID == "" {
		return nil, errors.New("birthday sheet: sheet id is not configured")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	rng := cfg.Range
	if rng == "" {
		rng = "A2:B"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BirthdaySheetFetcher{
		svc:     svc,
		sheetID: cfg.SheetID,
		rng:     rng,
		logger:  logger.With("component", "birthday_sheet"),
	}, nil
}

// Name identifies the provider in logs and metrics.
func (f *BirthdaySheetFetcher) Name() string { return birthdaySheetSource }

// Fetch skips rows missing a name or date and drops dates it cannot parse.
func (f *BirthdaySheetFetcher) Fetch(ctx context.Context) ([]domain.Birthday, error) {
	resp, err := f.svc.Spreadsheets.Values.Get(f.sheetID, f.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("birthday sheet: %w", err)
	}
	return f.parseRows(resp.Values), nil
}

func (f *BirthdaySheetFetcher) parseRows(rows [][]interface{}) []domain.Birthday {
	out := make([]domain.Birthday, 0, len(rows))
	for _, row := range rows {
		name := cell(row, 0)
		raw := cell(row, 1)
		if name == "" || raw == "" {
			continue
		}
		month, day, err := birthday.ParseDate(raw)
		if err != nil {
			f.logger.Warn("unparseable birthday", "name", name, "date", raw)
			continue
		}
		b, err := domain.NewBirthday(name, int(month), day, raw, birthdaySheetSource)
		if err != nil {
			f.logger.Warn("invalid birthday", "name", name, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
