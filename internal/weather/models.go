package weather

import (
	"fmt"
	"time"
)

type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

type WindSpeedUnit string

const (
	KilometresPerHour WindSpeedUnit = "kmh"
	MilesPerHour      WindSpeedUnit = "mph"
)

type PrecipitationUnit string

const (
	Millimetres PrecipitationUnit = "mm"
	Inches      PrecipitationUnit = "inch"
)

// UnitPreferences is the unit system requested from the forecast API.
// It is replaced wholesale; a forecast is only valid for the preferences
// it was fetched with.
type UnitPreferences struct {
	Temperature   TemperatureUnit   `json:"temperature"`
	WindSpeed     WindSpeedUnit     `json:"windSpeed"`
	Precipitation PrecipitationUnit `json:"precipitation"`
}

// DefaultUnits returns the metric preferences used before the user picks any.
func DefaultUnits() UnitPreferences {
	return UnitPreferences{
		Temperature:   Celsius,
		WindSpeed:     KilometresPerHour,
		Precipitation: Millimetres,
	}
}

// Merge returns p with every non-empty field of patch applied.
func (p UnitPreferences) Merge(patch UnitPreferences) UnitPreferences {
	if patch.Temperature != "" {
		p.Temperature = patch.Temperature
	}
	if patch.WindSpeed != "" {
		p.WindSpeed = patch.WindSpeed
	}
	if patch.Precipitation != "" {
		p.Precipitation = patch.Precipitation
	}
	return p
}

// Validate reports whether every field holds a known unit.
func (p UnitPreferences) Validate() error {
	switch p.Temperature {
	case Celsius, Fahrenheit:
	default:
		return fmt.Errorf("%w: temperature %q", ErrInvalidUnits, p.Temperature)
	}
	switch p.WindSpeed {
	case KilometresPerHour, MilesPerHour:
	default:
		return fmt.Errorf("%w: wind speed %q", ErrInvalidUnits, p.WindSpeed)
	}
	switch p.Precipitation {
	case Millimetres, Inches:
	default:
		return fmt.Errorf("%w: precipitation %q", ErrInvalidUnits, p.Precipitation)
	}
	return nil
}

func (p UnitPreferences) MetricTemperature() bool   { return p.Temperature != Fahrenheit }
func (p UnitPreferences) MetricWindSpeed() bool     { return p.WindSpeed != MilesPerHour }
func (p UnitPreferences) MetricPrecipitation() bool { return p.Precipitation != Inches }

// Coordinates is a single position fix.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a resolved place. State and Timezone are optional.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// DisplayName joins name, state and country, skipping empty parts.
func (l Location) DisplayName() string {
	out := l.Name
	for _, part := range []string{l.State, l.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// ForecastSnapshot is the current/hourly/daily bundle for one location at one
// point in time. The store passes it through without interpreting it.
type ForecastSnapshot struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timezone  string          `json:"timezone"`
	Units     UnitPreferences `json:"units"`
	FetchedAt time.Time       `json:"fetchedAt"`

	Current Conditions `json:"current"`
	Hourly  Series     `json:"hourly"`
	Daily   Series     `json:"daily"`
}

// Conditions holds instant metrics keyed by API field name.
type Conditions struct {
	Time   string             `json:"time"`
	Values map[string]float64 `json:"values"`
	Units  map[string]string  `json:"units,omitempty"`
}

// Series holds parallel arrays aligned with Time. Numeric series keep nulls
// as nil entries.
type Series struct {
	Time   []string              `json:"time"`
	Values map[string][]*float64 `json:"values"`
	Text   map[string][]string   `json:"text,omitempty"`
	Units  map[string]string     `json:"units,omitempty"`
}

// RequestStatus is the shared status flag for every store operation.
type RequestStatus string

const (
	StatusIdle    RequestStatus = "idle"
	StatusPending RequestStatus = "pending"
	StatusReady   RequestStatus = "ready"
	StatusFailed  RequestStatus = "failed"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// ConditionFromCode maps a WMO weather code to a Condition.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
