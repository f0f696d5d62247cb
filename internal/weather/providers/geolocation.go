package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const DefaultIPGeolocationURL = "http://ip-api.com/json/"

// DeniedPositioner refuses every position request.
type DeniedPositioner struct{}

func (DeniedPositioner) CurrentPosition(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates{}, weather.ErrPermissionDenied
}

// StaticPositioner returns a fixed, configured position.
type StaticPositioner struct {
	coords *weather.Coordinates
}

// NewStaticPositioner returns a positioner for coords; nil means no position
// is configured and every request reports ErrUnsupportedCapability.
func NewStaticPositioner(coords *weather.Coordinates) *StaticPositioner {
	return &StaticPositioner{coords: coords}
}

func (p *StaticPositioner) CurrentPosition(context.Context) (weather.Coordinates, error) {
	if p.coords == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: no position configured", weather.ErrUnsupportedCapability)
	}
	return *p.coords, nil
}

// IPPositioner approximates the caller's position from its public IP address.
type IPPositioner struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIPPositioner(cfg HTTPClientConfig, baseURL string) *IPPositioner {
	if baseURL == "" {
		baseURL = DefaultIPGeolocationURL
	}
	return &IPPositioner{
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("ip-geolocation"),
	}
}

func (p *IPPositioner) CurrentPosition(ctx context.Context) (weather.Coordinates, error) {
	start := time.Now()
	coords, err := p.currentPosition(ctx)
	p.httpCfg.Metrics.ObserveUpstream("position", outcome(err), time.Since(start))
	return coords, err
}

func (p *IPPositioner) currentPosition(ctx context.Context) (weather.Coordinates, error) {
	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, &payload); err != nil {
		return weather.Coordinates{}, err
	}
	if payload.Status != "success" {
		return weather.Coordinates{}, fmt.Errorf("%w: ip lookup: %s", weather.ErrUnsupportedCapability, payload.Message)
	}

	return weather.Coordinates{Latitude: payload.Lat, Longitude: payload.Lon}, nil
}
