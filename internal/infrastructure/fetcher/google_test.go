package fetcher

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"NewsletterBuilder/internal/config"
)

func testGoogleOptions(url string, client *http.Client) []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(url + "/"),
		option.WithHTTPClient(client),
		option.WithoutAuthentication(),
	}
}

func TestGoogleCalendarFetcher(t *testing.T) {
	t.Parallel()

	server := jsonServer(t, func(r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2025-03-10T12:00:00Z", q.Get("timeMin"))
		assert.Equal(t, "3", q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
	}, `{"items":[
		{"summary":"Standup","start":{"dateTime":"2025-03-11T09:00:00+01:00"},"end":{"dateTime":"2025-03-11T09:15:00+01:00"},"location":"Office","htmlLink":"https://cal/1"},
		{"summary":"Holiday","start":{"date":"2025-03-12"},"end":{"date":"2025-03-13"}},
		{"summary":""}
	]}`)

	f, err := NewGoogleCalendarFetcher(context.Background(), config.GoogleCalendarConfig{}, testGoogleOptions(server.URL, server.Client())...)
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	events, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Title)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://cal/1", events[0].URL)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), events[1].Start)
	assert.Equal(t, "Google Calendar", events[1].Source)
}

func TestBirthdaySheetFetcher(t *testing.T) {
	t.Parallel()

	server := jsonServer(t, func(r *http.Request) {
		assert.Contains(t, r.URL.Path, "/spreadsheets/sheet-1/values/")
	}, `{"range":"Sheet1!A2:B","values":[
		["Anna","1990-05-17"],
		["Ben","17.05."],
		["","01.01.2000"],
		["Carl"],
		["Dora","someday"],
		["Eve","02/29"]
	]}`)

	f, err := NewBirthdaySheetFetcher(context.Background(), config.BirthdaysConfig{SheetID: "sheet-1"}, nil, testGoogleOptions(server.URL, server.Client())...)
	require.NoError(t, err)

	birthdays, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, birthdays, 3)
	assert.Equal(t, "Anna", birthdays[0].Name)
	assert.Equal(t, time.May, birthdays[0].Month)
	assert.Equal(t, 17, birthdays[0].Day)
	assert.Equal(t, "17.05.", birthdays[1].RawDate)
	assert.Equal(t, "Eve", birthdays[2].Name)
	assert.Equal(t, 29, birthdays[2].Day)
	assert.Equal(t, "Google Sheets", birthdays[2].Source)
}

func TestBirthdaySheetFetcherRequiresSheet(t *testing.T) {
	t.Parallel()

	_, err := NewBirthdaySheetFetcher(context.Background(), config.BirthdaysConfig{}, nil)
	require.Error(t, err)
}
