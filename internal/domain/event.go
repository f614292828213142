package domain

import (
	"fmt"
	"time"
)

// Event is a dated happening gathered from calendars or event APIs.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
	URL         string
	Source      string
}

// Birthday is a yearly recurring date for a person.
type Birthday struct {
	Name    string
	Month   time.Month
	Day     int
	RawDate string
	Source  string
}

// NewBirthday validates the month/day range. Combinations such as Feb 30 pass
// here and are rejected only when resolved against a concrete year.
func NewBirthday(name string, month, day int, rawDate, source string) (Birthday, error) {
	if month < 1 || month > 12 {
		return Birthday{}, fmt.Errorf("birthday %q: month %d out of range", name, month)
	}
	if day < 1 || day > 31 {
		return Birthday{}, fmt.Errorf("birthday %q: day %d out of range", name, day)
	}
	return Birthday{
		Name:    name,
		Month:   time.Month(month),
		Day:     day,
		RawDate: rawDate,
		Source:  source,
	}, nil
}

// WeatherInfo is one forecast entry.
type WeatherInfo struct {
	Location        string
	Date            string
	TemperatureC    float64
	Condition       string
	HumidityPercent float64
	WindSpeedKMH    float64
	IconURL         string
	ForecastSnippet string
}

// Quote is the quote of the day.
type Quote struct {
	Text   string
	Author string
}

// TodoItem is a single open task.
type TodoItem struct {
	ID      string
	Content string
	Due     time.Time
}
