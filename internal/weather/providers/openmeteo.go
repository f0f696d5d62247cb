package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// Field lists requested on every forecast call.
var (
	currentFields = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"apparent_temperature",
		"is_day",
		"precipitation",
		"weather_code",
		"wind_speed_10m",
		"wind_direction_10m",
		"surface_pressure",
		"visibility",
	}
	hourlyFields = []string{
		"temperature_2m",
		"precipitation_probability",
		"precipitation",
		"weather_code",
		"wind_speed_10m",
		"visibility",
	}
	dailyFields = []string{
		"weather_code",
		"temperature_2m_max",
		"temperature_2m_min",
		"precipitation_sum",
		"precipitation_probability_max",
		"wind_speed_10m_max",
		"sunrise",
		"sunset",
	}
)

// OpenMeteoProvider implements weather.Forecaster for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("openmeteo-forecast"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch requests the fixed field set in the given units with automatic
// timezone resolution. One request per call.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64, units weather.UnitPreferences) (*weather.ForecastSnapshot, error) {
	start := time.Now()
	snap, err := p.fetch(ctx, lat, lon, units)
	p.httpCfg.Metrics.ObserveUpstream("forecast", outcome(err), time.Since(start))
	return snap, err
}

func (p *OpenMeteoProvider) fetch(ctx context.Context, lat, lon float64, units weather.UnitPreferences) (*weather.ForecastSnapshot, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("current", strings.Join(currentFields, ","))
	values.Set("hourly", strings.Join(hourlyFields, ","))
	values.Set("daily", strings.Join(dailyFields, ","))
	values.Set("temperature_unit", string(units.Temperature))
	values.Set("wind_speed_unit", string(units.WindSpeed))
	values.Set("precipitation_unit", string(units.Precipitation))
	values.Set("timezone", "auto")

	var payload struct {
		Latitude     float64                    `json:"latitude"`
		Longitude    float64                    `json:"longitude"`
		Timezone     string                     `json:"timezone"`
		CurrentUnits map[string]string          `json:"current_units"`
		Current      map[string]json.RawMessage `json:"current"`
		HourlyUnits  map[string]string          `json:"hourly_units"`
		Hourly       map[string]json.RawMessage `json:"hourly"`
		DailyUnits   map[string]string          `json:"daily_units"`
		Daily        map[string]json.RawMessage `json:"daily"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	return &weather.ForecastSnapshot{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Units:     units,
		Current:   decodeConditions(payload.Current, payload.CurrentUnits),
		Hourly:    decodeSeries(payload.Hourly, payload.HourlyUnits),
		Daily:     decodeSeries(payload.Daily, payload.DailyUnits),
	}, nil
}

// decodeConditions keeps the time stamp and every numeric field.
func decodeConditions(raw map[string]json.RawMessage, units map[string]string) weather.Conditions {
	c := weather.Conditions{
		Values: make(map[string]float64, len(raw)),
		Units:  withoutTime(units),
	}
	for k, v := range raw {
		if k == "time" {
			_ = json.Unmarshal(v, &c.Time)
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			c.Values[k] = f
		}
	}
	return c
}

// decodeSeries splits parallel arrays into numeric (null-preserving) and
// textual series.
func decodeSeries(raw map[string]json.RawMessage, units map[string]string) weather.Series {
	s := weather.Series{
		Values: make(map[string][]*float64),
		Units:  withoutTime(units),
	}
	for k, v := range raw {
		if k == "time" {
			_ = json.Unmarshal(v, &s.Time)
			continue
		}
		var nums []*float64
		if err := json.Unmarshal(v, &nums); err == nil {
			s.Values[k] = nums
			continue
		}
		var text []string
		if err := json.Unmarshal(v, &text); err == nil {
			if s.Text == nil {
				s.Text = make(map[string][]string)
			}
			s.Text[k] = text
		}
	}
	return s
}

func withoutTime(units map[string]string) map[string]string {
	if len(units) == 0 {
		return nil
	}
	out := make(map[string]string, len(units))
	for k, v := range units {
		if k != "time" {
			out[k] = v
		}
	}
	return out
}
