package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/domain"
	"NewsletterBuilder/internal/infrastructure/httpjson"
	"NewsletterBuilder/internal/ports"
)

const (
	openWeatherForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	openWeatherIconURL     = "https://openweathermap.org/img/wn/%s@2x.png"
	forecastDays           = 5
)

// OpenWeatherFetcher returns a short daily forecast from OpenWeatherMap.
type OpenWeatherFetcher struct {
	endpoint string
	apiKey   string
	city     string
	units    string
	http     *httpjson.Client
}

var _ ports.WeatherFetcher = (*OpenWeatherFetcher)(nil)

// NewOpenWeatherFetcher requires an API key and a city.
func NewOpenWeatherFetcher(cfg config.WeatherConfig, client *http.Client) (*OpenWeatherFetcher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openweather: api key is not configured")
	}
	if cfg.City == "" {
		return nil, errors.New("openweather: city is not configured")
	}
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	return &OpenWeatherFetcher{
		endpoint: openWeatherForecastURL,
		apiKey:   cfg.APIKey,
		city:     cfg.City,
		units:    units,
		http:     httpjson.New(client),
	}, nil
}

// Name includes the city so logs tell forecasts apart.
func (f *OpenWeatherFetcher) Name() string { return "OpenWeatherMap " + f.city }

type forecastResponse struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

// Fetch keeps the first forecast slot of each day, for at most five days.
func (f *OpenWeatherFetcher) Fetch(ctx context.Context) ([]domain.WeatherInfo, error) {
	params := url.Values{}
	params.Set("q", f.city)
	params.Set("appid", f.apiKey)
	params.Set("units", f.units)

	var resp forecastResponse
	if err := f.http.Get(ctx, f.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("openweather %s: %w", f.city, err)
	}

	infos := make([]domain.WeatherInfo, 0, forecastDays)
	seen := map[string]struct{}{}
	for _, entry := range resp.List {
		day, _, _ := strings.Cut(entry.DtTxt, " ")
		if day == "" {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}

		var condition, icon string
		if len(entry.Weather) > 0 {
			condition = entry.Weather[0].Description
			icon = entry.Weather[0].Icon
		}
		info := domain.WeatherInfo{
			Location:        f.city,
			Date:            day,
			TemperatureC:    entry.Main.Temp,
			Condition:       condition,
			HumidityPercent: entry.Main.Humidity,
			WindSpeedKMH:    f.windKMH(entry.Wind.Speed),
			ForecastSnippet: fmt.Sprintf("%s: %.1f°C, %s", day, entry.Main.Temp, condition),
		}
		if icon != "" {
			info.IconURL = fmt.Sprintf(openWeatherIconURL, icon)
		}
		infos = append(infos, info)
		if len(infos) == forecastDays {
			break
		}
	}
	return infos, nil
}

// metric reports m/s and imperial mph.
func (f *OpenWeatherFetcher) windKMH(speed float64) float64 {
	switch f.units {
	case "imperial":
		return speed * 1.609344
	default:
		return speed * 3.6
	}
}
