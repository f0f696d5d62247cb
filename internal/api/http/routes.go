package httpapi

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/units"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// Store is the set of weather.Service operations exposed over HTTP.
type Store interface {
	State() weather.State
	Search(ctx context.Context, query string) weather.State
	Suggest(ctx context.Context, query string) weather.State
	SelectCandidate(ctx context.Context, loc weather.Location) weather.State
	SearchAndSelectFirst(ctx context.Context, query string) weather.State
	UseCurrentPosition(ctx context.Context, coords weather.Coordinates) weather.State
	UseMyLocation(ctx context.Context) weather.State
	Refresh(ctx context.Context) weather.State
	SetUnits(ctx context.Context, patch weather.UnitPreferences) (weather.State, error)
	Clear(ctx context.Context) weather.State
	ClearError(ctx context.Context) weather.State
	ClearSearchResults(ctx context.Context) weather.State
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, store Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.State()))
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		var req queryRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return c.JSON(newStateResponse(store.Search(c.UserContext(), req.Query)))
	})

	v1.Get("/suggest", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.Suggest(c.UserContext(), c.Query("q"))))
	})

	v1.Delete("/search", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.ClearSearchResults(c.UserContext())))
	})

	v1.Post("/weather", func(c *fiber.Ctx) error {
		var req queryRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return c.JSON(newStateResponse(store.SearchAndSelectFirst(c.UserContext(), req.Query)))
	})

	v1.Post("/weather/select", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return c.JSON(newStateResponse(store.SelectCandidate(c.UserContext(), req.toLocation())))
	})

	v1.Post("/weather/position", func(c *fiber.Ctx) error {
		var req positionRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		coords := weather.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
		return c.JSON(newStateResponse(store.UseCurrentPosition(c.UserContext(), coords)))
	})

	v1.Post("/weather/locate", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.UseMyLocation(c.UserContext())))
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.Refresh(c.UserContext())))
	})

	v1.Delete("/weather", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.Clear(c.UserContext())))
	})

	v1.Delete("/error", func(c *fiber.Ctx) error {
		return c.JSON(newStateResponse(store.ClearError(c.UserContext())))
	})

	v1.Patch("/units", func(c *fiber.Ctx) error {
		var req unitsRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		st, err := store.SetUnits(c.UserContext(), req.toPreferences())
		if err != nil {
			if errors.Is(err, weather.ErrInvalidUnits) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to update units")
		}
		return c.JSON(newStateResponse(st))
	})

	v1.Get("/summary", func(c *fiber.Ctx) error {
		st := store.State()
		if st.Location == nil || st.WeatherData == nil {
			return fiber.NewError(fiber.StatusNotFound, "no weather data for the current location")
		}
		return c.JSON(newSummary(*st.Location, st.WeatherData))
	})

	v1.Get("/convert", func(c *fiber.Ctx) error {
		q := convertQuery{
			Kind:   c.Query("kind"),
			Value:  c.Query("value"),
			System: c.Query("system", "metric"),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		value, err := strconv.ParseFloat(q.Value, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return fiber.NewError(fiber.StatusBadRequest, "value must be a finite number")
		}
		return c.JSON(convert(q.Kind, value, q.System == "metric"))
	})
}

func bindJSON(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// stateResponse is weather.State plus the derived flags clients poll for.
type stateResponse struct {
	weather.State
	IsFetching bool `json:"isFetching"`
	IsError    bool `json:"isError"`
}

func newStateResponse(st weather.State) stateResponse {
	return stateResponse{
		State:      st,
		IsFetching: st.IsFetching(),
		IsError:    st.IsError(),
	}
}

// queryRequest carries a free-text location query. A blank query is passed
// through; the store treats it as a no-op.
type queryRequest struct {
	Query string `json:"query"`
}

type locationRequest struct {
	Name      string   `json:"name" validate:"required"`
	Country   string   `json:"country"`
	State     string   `json:"state"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Timezone  string   `json:"timezone"`
}

func (r locationRequest) toLocation() weather.Location {
	return weather.Location{
		Name:      r.Name,
		Country:   r.Country,
		State:     r.State,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Timezone:  r.Timezone,
	}
}

type positionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type unitsRequest struct {
	Temperature   string `json:"temperature" validate:"omitempty,oneof=celsius fahrenheit"`
	WindSpeed     string `json:"windSpeed" validate:"omitempty,oneof=kmh mph"`
	Precipitation string `json:"precipitation" validate:"omitempty,oneof=mm inch"`
}

func (r unitsRequest) toPreferences() weather.UnitPreferences {
	return weather.UnitPreferences{
		Temperature:   weather.TemperatureUnit(r.Temperature),
		WindSpeed:     weather.WindSpeedUnit(r.WindSpeed),
		Precipitation: weather.PrecipitationUnit(r.Precipitation),
	}
}

type convertQuery struct {
	Kind   string `validate:"required,oneof=temperature windSpeed precipitation visibility"`
	Value  string `validate:"required"`
	System string `validate:"oneof=metric imperial"`
}

type conversion struct {
	Kind   string  `json:"kind"`
	Input  float64 `json:"input"`
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
	System string  `json:"system"`
}

// convert runs one of the unit converters. The input is always the metric
// measurement (°C, km/h, mm or metres).
func convert(kind string, value float64, isMetric bool) conversion {
	out := conversion{Kind: kind, Input: value, System: "imperial"}
	if isMetric {
		out.System = "metric"
	}
	switch kind {
	case "temperature":
		out.Value, out.Label = units.ToTemperature(value, isMetric), units.TemperatureLabel(isMetric)
	case "windSpeed":
		out.Value, out.Label = units.ToWindSpeed(value, isMetric), units.WindSpeedLabel(isMetric)
	case "precipitation":
		out.Value, out.Label = units.ToPrecipitation(value, isMetric), units.PrecipitationLabel(isMetric)
	case "visibility":
		out.Value, out.Label = units.ToVisibility(value, isMetric), units.VisibilityLabel(isMetric)
	}
	return out
}

type measurement struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type summary struct {
	Location  string                  `json:"location"`
	Timezone  string                  `json:"timezone"`
	Time      string                  `json:"time"`
	Condition weather.Condition       `json:"condition"`
	IsDay     bool                    `json:"isDay"`
	Metrics   map[string]measurement  `json:"metrics"`
	Units     weather.UnitPreferences `json:"units"`
	FetchedAt time.Time               `json:"fetchedAt"`
}

// newSummary renders the current conditions of snap. Forecast values already
// arrive in the requested units so only labels are attached; visibility is
// always reported in metres and is converted here.
func newSummary(loc weather.Location, snap *weather.ForecastSnapshot) summary {
	cur := snap.Current
	u := snap.Units
	out := summary{
		Location:  loc.DisplayName(),
		Timezone:  snap.Timezone,
		Time:      cur.Time,
		Condition: weather.ConditionUnknown,
		Metrics:   map[string]measurement{},
		Units:     u,
		FetchedAt: snap.FetchedAt,
	}

	if code, ok := cur.Values["weather_code"]; ok {
		out.Condition = weather.ConditionFromCode(int(code))
	}
	out.IsDay = cur.Values["is_day"] == 1

	add := func(field, name, label string) {
		if v, ok := cur.Values[field]; ok {
			out.Metrics[name] = measurement{Value: v, Label: label}
		}
	}
	add("temperature_2m", "temperature", units.TemperatureLabel(u.MetricTemperature()))
	add("apparent_temperature", "feelsLike", units.TemperatureLabel(u.MetricTemperature()))
	add("wind_speed_10m", "windSpeed", units.WindSpeedLabel(u.MetricWindSpeed()))
	add("precipitation", "precipitation", units.PrecipitationLabel(u.MetricPrecipitation()))
	add("relative_humidity_2m", "humidity", "%")
	add("surface_pressure", "pressure", "hPa")
	add("wind_direction_10m", "windDirection", "°")

	if v, ok := cur.Values["visibility"]; ok {
		// Visibility follows the distance system implied by the wind unit.
		metric := u.MetricWindSpeed()
		out.Metrics["visibility"] = measurement{
			Value: units.ToVisibility(v, metric),
			Label: units.VisibilityLabel(metric),
		}
	}
	return out
}
