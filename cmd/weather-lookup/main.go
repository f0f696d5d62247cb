package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

type kvStore interface {
	weather.KV
	Close() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logr)
	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound geocoding and forecast calls.
	httpCfg := providers.HTTPClientConfig{
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent: cfg.UserAgent,
		Metrics:   metrics,
	}

	kv, err := openStore(cfg, logr)
	if err != nil {
		logr.Error("failed to open store", "path", cfg.StoragePath, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	service := weather.NewService(weather.Options{
		Geocoder:       newGeocoder(cfg, httpCfg, metrics),
		Forecaster:     providers.NewOpenMeteoProvider(httpCfg, cfg.ForecastURL),
		Positioner:     newPositioner(cfg, httpCfg),
		KV:             kv,
		StorageKey:     cfg.StorageKey,
		StaleGuard:     cfg.StaleGuard,
		MinQueryLength: cfg.MinQueryLength,
		Logger:         logr,
		Metrics:        metrics,
	})
	if err := service.Restore(context.Background()); err != nil {
		logr.Warn("failed to restore persisted state", "error", err)
	}

	// Scheduler that periodically refreshes the selected location.
	sched := scheduler.New(cfg.RefreshInterval, cfg.HTTPTimeout*3, service, logr)
	if err := sched.Start(); err != nil {
		logr.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout * 3,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	go func() {
		logr.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logr.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error("error during shutdown", "error", err)
	}
}

// openStore picks SQLite when a path is configured and memory otherwise.
func openStore(cfg *config.AppConfig, logr *slog.Logger) (kvStore, error) {
	if cfg.StoragePath == "" {
		logr.Info("persisting state in memory only")
		return store.NewMemoryStore(), nil
	}
	db, err := store.NewSQLite(cfg.StoragePath, logr)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newGeocoder(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig, metrics *observability.Metrics) weather.Geocoder {
	if cfg.GeocoderProvider == config.GeocoderGoogle {
		return providers.NewGoogleGeocoder(cfg.GeocoderAPIKey, cfg.HTTPTimeout, metrics)
	}
	return providers.NewOpenMeteoGeocoder(httpCfg, cfg.GeocodingURL, cfg.ReverseGeocodingURL, cfg.SearchResultCount)
}

func newPositioner(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig) weather.Positioner {
	switch cfg.GeolocationMode {
	case config.GeolocationOff:
		return providers.DeniedPositioner{}
	case config.GeolocationIP:
		return providers.NewIPPositioner(httpCfg, cfg.IPGeolocationURL)
	default:
		return providers.NewStaticPositioner(cfg.GeolocationCoord)
	}
}
