package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const googleLyon = `{
	"status": "OK",
	"results": [{
		"formatted_address": "Lyon, France",
		"types": ["locality", "political"],
		"geometry": {"location": {"lat": 45.764, "lng": 4.8357}},
		"address_components": [
			{"long_name": "Lyon", "types": ["locality", "political"]},
			{"long_name": "Auvergne-Rhône-Alpes", "types": ["administrative_area_level_1", "political"]},
			{"long_name": "France", "types": ["country", "political"]}
		]
	}]
}`

// useGoogleServer points the geocoder library at handler for the duration of
// the test.
func useGoogleServer(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *GoogleGeocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prevURL, prevKey := geocoder.ApiUrl, geocoder.ApiKey
	t.Cleanup(func() {
		geocoder.ApiUrl, geocoder.ApiKey = prevURL, prevKey
	})
	geocoder.ApiUrl = srv.URL + "/geocode/json?"

	return NewGoogleGeocoder("test-key", timeout, observability.NewMetricsForTesting())
}

func TestGoogleGeocoder_ResolveByName_EscapesQuery(t *testing.T) {
	var (
		mu      sync.Mutex
		address string
		key     string
	)
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		if addr := r.URL.Query().Get("address"); addr != "" {
			mu.Lock()
			address, key = addr, r.URL.Query().Get("key")
			mu.Unlock()
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(googleLyon))
	})

	locs, err := g.ResolveByName(context.Background(), "Saint-Louis & Co #2 a=b+c")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Lyon", locs[0].Name)
	assert.Equal(t, "France", locs[0].Country)
	assert.Equal(t, "Auvergne-Rhône-Alpes", locs[0].State)
	assert.InDelta(t, 45.764, locs[0].Latitude, 1e-9)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Saint-Louis & Co #2 a=b+c", address)
	assert.Equal(t, "test-key", key)
}

func TestGoogleGeocoder_ResolveByName_ZeroResults(t *testing.T) {
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	_, err := g.ResolveByName(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestGoogleGeocoder_UnrecognisedStatus(t *testing.T) {
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status": "OVER_DAILY_LIMIT", "results": []}`))
	})

	_, err := g.ResolveByName(context.Background(), "Paris")
	assert.ErrorIs(t, err, weather.ErrTransport)
}

func TestGoogleGeocoder_ResolveByCoordinates_ResultWithoutTypes(t *testing.T) {
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status": "OK", "results": [{"formatted_address": "somewhere"}]}`))
	})

	_, err := g.ResolveByCoordinates(context.Background(), 45.76, 4.83)
	assert.ErrorIs(t, err, weather.ErrTransport)
}

func TestGoogleGeocoder_ResolveByCoordinates(t *testing.T) {
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "45.76400000,4.83570000", r.URL.Query().Get("latlng"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(googleLyon))
	})

	loc, err := g.ResolveByCoordinates(context.Background(), 45.764, 4.8357)
	require.NoError(t, err)
	assert.Equal(t, weather.Location{
		Name:      "Lyon",
		Country:   "France",
		State:     "Auvergne-Rhône-Alpes",
		Latitude:  45.764,
		Longitude: 4.8357,
	}, loc)
}

func TestGoogleGeocoder_HonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() {
		close(release)
		g.inflight.Wait()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.ResolveByName(ctx, "Paris")
	assert.ErrorIs(t, err, weather.ErrTransport)
	assert.Less(t, time.Since(start), time.Second)

	// A hung call must not hold up the next one.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()

	start = time.Now()
	_, err = g.ResolveByCoordinates(ctx2, 45.76, 4.83)
	assert.ErrorIs(t, err, weather.ErrTransport)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGoogleGeocoder_CancelledContext(t *testing.T) {
	g := useGoogleServer(t, 5*time.Second, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a cancelled context")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.ResolveByName(ctx, "Paris")
	assert.ErrorIs(t, err, weather.ErrTransport)
}

func TestGoogleGeocoder_Timeout(t *testing.T) {
	release := make(chan struct{})
	g := useGoogleServer(t, 100*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() {
		close(release)
		g.inflight.Wait()
	})

	start := time.Now()
	_, err := g.ResolveByCoordinates(context.Background(), 45.76, 4.83)
	assert.ErrorIs(t, err, weather.ErrTransport)
	assert.ErrorContains(t, err, context.DeadlineExceeded.Error())
	assert.Less(t, time.Since(start), time.Second)
}
