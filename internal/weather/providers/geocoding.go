package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	DefaultGeocodingURL        = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultReverseGeocodingURL = "https://nominatim.openstreetmap.org/reverse"
)

// OpenMeteoGeocoder implements weather.Geocoder. Name searches go to the
// Open-Meteo geocoding API; Open-Meteo has no reverse endpoint, so
// coordinates are resolved through Nominatim.
type OpenMeteoGeocoder struct {
	searchURL  string
	reverseURL string
	count      int
	httpCfg    HTTPClientConfig
	search     *gobreaker.CircuitBreaker
	reverse    *gobreaker.CircuitBreaker
}

// NewOpenMeteoGeocoder creates a geocoder returning up to count candidates per search.
func NewOpenMeteoGeocoder(cfg HTTPClientConfig, searchURL, reverseURL string, count int) *OpenMeteoGeocoder {
	if searchURL == "" {
		searchURL = DefaultGeocodingURL
	}
	if reverseURL == "" {
		reverseURL = DefaultReverseGeocodingURL
	}
	if count <= 0 {
		count = 5
	}
	return &OpenMeteoGeocoder{
		searchURL:  searchURL,
		reverseURL: reverseURL,
		count:      count,
		httpCfg:    cfg,
		search:     newCircuitBreaker("openmeteo-geocoding"),
		reverse:    newCircuitBreaker("nominatim-reverse"),
	}
}

// ResolveByName returns candidates in the provider's relevance order.
func (g *OpenMeteoGeocoder) ResolveByName(ctx context.Context, query string) ([]weather.Location, error) {
	start := time.Now()
	locs, err := g.resolveByName(ctx, query)
	g.httpCfg.Metrics.ObserveUpstream("geocode_forward", outcome(err), time.Since(start))
	return locs, err
}

func (g *OpenMeteoGeocoder) resolveByName(ctx context.Context, query string) ([]weather.Location, error) {
	params := url.Values{
		"name":     {query},
		"count":    {strconv.Itoa(g.count)},
		"language": {"en"},
		"format":   {"json"},
	}

	var payload searchResponse
	if err := getJSON(ctx, g.httpCfg, g.search, g.searchURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", weather.ErrNotFound, query)
	}

	locs := make([]weather.Location, 0, len(payload.Results))
	for _, r := range payload.Results {
		locs = append(locs, weather.Location{
			Name:      r.Name,
			Country:   r.Country,
			State:     r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  r.Timezone,
		})
	}
	return locs, nil
}

// ResolveByCoordinates reverse-geocodes a point. A response without an
// address is ErrNotFound; an address without a usable place name yields an
// empty Name.
func (g *OpenMeteoGeocoder) ResolveByCoordinates(ctx context.Context, lat, lon float64) (weather.Location, error) {
	start := time.Now()
	loc, err := g.resolveByCoordinates(ctx, lat, lon)
	g.httpCfg.Metrics.ObserveUpstream("geocode_reverse", outcome(err), time.Since(start))
	return loc, err
}

func (g *OpenMeteoGeocoder) resolveByCoordinates(ctx context.Context, lat, lon float64) (weather.Location, error) {
	params := url.Values{
		"lat":    {fmt.Sprintf("%.6f", lat)},
		"lon":    {fmt.Sprintf("%.6f", lon)},
		"format": {"jsonv2"},
	}

	var payload reverseResponse
	if err := getJSON(ctx, g.httpCfg, g.reverse, g.reverseURL+"?"+params.Encode(), &payload); err != nil {
		return weather.Location{}, err
	}

	if payload.Address == nil {
		return weather.Location{}, fmt.Errorf("%w: no address at %.4f,%.4f", weather.ErrNotFound, lat, lon)
	}

	a := payload.Address
	return weather.Location{
		Name:      common.FirstNonEmpty(a.City, a.Town, a.Village, a.County),
		Country:   a.Country,
		State:     a.State,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// Open-Meteo geocoding response types.

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Timezone  string  `json:"timezone"`
}

// Nominatim reverse response types.

type reverseResponse struct {
	Address *address `json:"address"`
}

type address struct {
	City    string `json:"city,omitempty"`
	Town    string `json:"town,omitempty"`
	Village string `json:"village,omitempty"`
	County  string `json:"county,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}
