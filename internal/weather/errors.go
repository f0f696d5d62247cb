package weather

import "errors"

var (
	// ErrNotFound is returned when a lookup yields no result.
	ErrNotFound = errors.New("location not found")

	// ErrTransport covers non-2xx responses and requests that could not complete.
	ErrTransport = errors.New("request failed")

	// ErrUnsupportedCapability is returned when no position source is available.
	ErrUnsupportedCapability = errors.New("geolocation is not supported")

	// ErrPermissionDenied is returned when position lookups are disabled.
	ErrPermissionDenied = errors.New("geolocation permission denied, please search for a location")

	ErrInvalidUnits = errors.New("invalid unit preference")
)
