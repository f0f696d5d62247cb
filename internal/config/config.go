package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

const (
	GeocoderOpenMeteo = "openmeteo"
	GeocoderGoogle    = "google"

	GeolocationOff    = "off"
	GeolocationStatic = "static"
	GeolocationIP     = "ip"
)

var validate = validator.New()

type AppConfig struct {
	Port            string        `validate:"required,numeric"`
	HTTPTimeout     time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=json text"`
	UserAgent       string        `validate:"required"`

	GeocoderProvider    string `validate:"oneof=openmeteo google"`
	GeocoderAPIKey      string `validate:"required_if=GeocoderProvider google"`
	GeocodingURL        string `validate:"required,url"`
	ReverseGeocodingURL string `validate:"required,url"`
	ForecastURL         string `validate:"required,url"`
	SearchResultCount   int    `validate:"min=1,max=100"`
	MinQueryLength      int    `validate:"min=1"`

	// StoragePath is the SQLite file holding persisted state; empty keeps
	// state in memory only.
	StoragePath string
	StorageKey  string `validate:"required"`

	// RefreshInterval re-fetches the current location periodically (0 = disabled).
	RefreshInterval time.Duration `validate:"gte=0"`

	// StaleGuard drops completions of superseded operations.
	StaleGuard bool

	GeolocationMode  string `validate:"oneof=off static ip"`
	GeolocationCoord *weather.Coordinates
	IPGeolocationURL string `validate:"required,url"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                getenvDefault("PORT", "8080"),
		LogLevel:            strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getenvDefault("LOG_FORMAT", "json")),
		UserAgent:           getenvDefault("USER_AGENT", "weather-lookup/1.0"),
		GeocoderProvider:    strings.ToLower(getenvDefault("GEOCODER_PROVIDER", GeocoderOpenMeteo)),
		GeocoderAPIKey:      os.Getenv("GEOCODER_API_KEY"),
		GeocodingURL:        getenvDefault("GEOCODING_URL", providers.DefaultGeocodingURL),
		ReverseGeocodingURL: getenvDefault("REVERSE_GEOCODING_URL", providers.DefaultReverseGeocodingURL),
		ForecastURL:         getenvDefault("FORECAST_URL", providers.DefaultForecastURL),
		SearchResultCount:   getenvInt("SEARCH_RESULT_COUNT", 5),
		MinQueryLength:      getenvInt("MIN_QUERY_LENGTH", weather.DefaultMinQueryLength),
		StoragePath:         getenvDefault("STORAGE_PATH", "weather-lookup.db"),
		StorageKey:          getenvDefault("STORAGE_KEY", weather.DefaultStorageKey),
		GeolocationMode:     strings.ToLower(getenvDefault("GEOLOCATION_MODE", GeolocationStatic)),
		IPGeolocationURL:    getenvDefault("IP_GEOLOCATION_URL", providers.DefaultIPGeolocationURL),
	}
	if v, ok := os.LookupEnv("STORAGE_PATH"); ok {
		cfg.StoragePath = v
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	if cfg.StaleGuard, err = getenvBool("STALE_GUARD", false); err != nil {
		return nil, err
	}
	if cfg.GeolocationCoord, err = loadGeolocationCoord(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadGeolocationCoord reads the fixed position used by the static
// geolocation mode. Both coordinates must be set together.
func loadGeolocationCoord() (*weather.Coordinates, error) {
	latStr := os.Getenv("GEOLOCATION_LAT")
	lonStr := os.Getenv("GEOLOCATION_LON")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("GEOLOCATION_LAT and GEOLOCATION_LON must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid GEOLOCATION_LAT: %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid GEOLOCATION_LON: %q", lonStr)
	}
	return &weather.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
