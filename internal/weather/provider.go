package weather

import "context"

// Geocoder resolves place names to locations and back.
type Geocoder interface {
	// ResolveByName returns candidates in provider relevance order.
	ResolveByName(ctx context.Context, query string) ([]Location, error)

	// ResolveByCoordinates reverse-geocodes a point.
	ResolveByCoordinates(ctx context.Context, lat, lon float64) (Location, error)
}

// Forecaster fetches a forecast expressed in the requested units.
type Forecaster interface {
	Fetch(ctx context.Context, lat, lon float64, units UnitPreferences) (*ForecastSnapshot, error)
}

// Positioner supplies a one-shot position fix for "use my location".
type Positioner interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// KV is the key/value contract used to persist store state.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
