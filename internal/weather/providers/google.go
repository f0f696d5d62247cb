package providers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
// Google returns a single best match per name search.
//
// The underlying library keeps its key in a package variable and takes no
// context, so only one GoogleGeocoder should exist per process. Calls run in
// their own goroutine and are abandoned when ctx ends.
type GoogleGeocoder struct {
	timeout time.Duration
	metrics *observability.Metrics

	// inflight counts library calls, including abandoned ones.
	inflight sync.WaitGroup
}

// NewGoogleGeocoder sets the library's API key. Each lookup is bounded by
// timeout in addition to the caller's context; zero means no extra bound.
func NewGoogleGeocoder(apiKey string, timeout time.Duration, metrics *observability.Metrics) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{timeout: timeout, metrics: metrics}
}

func (g *GoogleGeocoder) ResolveByName(ctx context.Context, query string) ([]weather.Location, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	locs, err := g.resolveByName(ctx, query)
	g.metrics.ObserveUpstream("geocode_forward", outcome(err), time.Since(start))
	return locs, err
}

func (g *GoogleGeocoder) resolveByName(ctx context.Context, query string) ([]weather.Location, error) {
	subject := fmt.Sprintf("%q", query)

	// The library concatenates the address into the URL as is.
	point, err := callGoogle(ctx, &g.inflight, subject, func() (geocoder.Location, error) {
		return geocoder.Geocoding(geocoder.Address{City: url.QueryEscape(query)})
	})
	if err != nil {
		return nil, err
	}

	loc := weather.Location{
		Name:      query,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
	}
	addrs, err := callGoogle(ctx, &g.inflight, subject, func() ([]geocoder.Address, error) {
		return geocoder.GeocodingReverse(point)
	})
	if err == nil && len(addrs) > 0 {
		a := addrs[0]
		if a.City != "" {
			loc.Name = a.City
		}
		loc.State = a.State
		loc.Country = a.Country
	}
	return []weather.Location{loc}, nil
}

func (g *GoogleGeocoder) ResolveByCoordinates(ctx context.Context, lat, lon float64) (weather.Location, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	loc, err := g.resolveByCoordinates(ctx, lat, lon)
	g.metrics.ObserveUpstream("geocode_reverse", outcome(err), time.Since(start))
	return loc, err
}

func (g *GoogleGeocoder) resolveByCoordinates(ctx context.Context, lat, lon float64) (weather.Location, error) {
	subject := fmt.Sprintf("%.4f,%.4f", lat, lon)

	addrs, err := callGoogle(ctx, &g.inflight, subject, func() ([]geocoder.Address, error) {
		return geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	})
	if err != nil {
		return weather.Location{}, err
	}
	if len(addrs) == 0 {
		return weather.Location{}, fmt.Errorf("%w: no address at %s", weather.ErrNotFound, subject)
	}

	a := addrs[0]
	return weather.Location{
		Name:      common.FirstNonEmpty(a.City, a.County),
		Country:   a.Country,
		State:     a.State,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

func (g *GoogleGeocoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// callGoogle runs fn in its own goroutine and waits for it or for ctx.
// Library errors are classified with mapGoogleError. The library indexes
// into result slices without checking them, so a panic is reported as
// weather.ErrTransport.
func callGoogle[T any](ctx context.Context, inflight *sync.WaitGroup, subject string, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %v", weather.ErrTransport, err)
	}

	done := make(chan result, 1)
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: unexpected geocoder response: %v", weather.ErrTransport, r)}
			}
		}()
		v, err := fn()
		if err != nil {
			err = mapGoogleError(err, subject)
		}
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %s: %v", weather.ErrTransport, subject, ctx.Err())
	}
}

// mapGoogleError classifies the library's status errors.
func mapGoogleError(err error, subject string) error {
	if common.ContainsAnyFold(err.Error(), "no results", "zero_results") {
		return fmt.Errorf("%w: %s", weather.ErrNotFound, subject)
	}
	return fmt.Errorf("%w: %v", weather.ErrTransport, err)
}
