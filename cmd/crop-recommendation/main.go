package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/crop-recommendation/internal/api/http"
	"github.com/i474232898/crop-recommendation/internal/classifier"
	"github.com/i474232898/crop-recommendation/internal/config"
	"github.com/i474232898/crop-recommendation/internal/events"
	"github.com/i474232898/crop-recommendation/internal/logging"
	"github.com/i474232898/crop-recommendation/internal/recommend"
	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/scheduler"
	"github.com/i474232898/crop-recommendation/internal/scoring"
	"github.com/i474232898/crop-recommendation/internal/store"
	"github.com/i474232898/crop-recommendation/internal/trend"
	"github.com/i474232898/crop-recommendation/internal/weather"
	"github.com/i474232898/crop-recommendation/internal/weather/providers"
)

func main() {
	// Load configuration.
	log := logging.Component("main")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log = logging.Component("main")

	// Static reference tables, embedded unless a path is configured.
	var tables *reference.Tables
	if cfg.Reference.Path != "" {
		tables, err = reference.Load(cfg.Reference.Path)
	} else {
		tables, err = reference.Default()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load reference data")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.Weather.HTTPTimeout,
	}

	httpCfg := providers.HTTPClientConfig{
		Client:  httpClient,
		Backoff: providers.DefaultBackoff,
	}
	if cfg.Weather.RatePerSecond > 0 {
		httpCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.Weather.RatePerSecond), cfg.Weather.Burst)
	}

	// Providers with resilience (backoff + circuit breaker). Keyed providers are
	// skipped when their key is missing.
	var provs []weather.Provider
	if cfg.OpenWeather.APIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeather.APIKey))
	}
	if cfg.WeatherAPI.APIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPI.APIKey))
	}
	// Open-Meteo does not require an API key, but geocoding requires a Google API key.
	if cfg.Geocoder.APIKey != "" {
		provs = append(provs, providers.NewOpenMeteoProvider(httpCfg, providers.NewGoogleGeocoder(cfg.Geocoder.APIKey)))
	}
	if len(provs) == 0 {
		log.Warn().Msg("no weather providers configured; predictions will fail with 502")
	}

	weatherSvc := weather.NewService(cfg.Country, provs, logging.Component("weather"))

	// Market board fed by the scheduler; requests fall back to live simulated
	// quotes for anything missing or stale.
	seed := cfg.Market.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := trend.NewSource(seed)
	simulated := trend.NewSimulatedFeed(tables, src)
	board := store.NewMemoryStore[trend.Quote](cfg.Market.History, cfg.Market.MaxAge)

	market := trend.NewMarketProvider(tables, trend.NewBoardFeed(board, simulated), logging.Component("trend"))
	demand := trend.NewDemandProvider(tables, src, logging.Component("trend"))

	sched := scheduler.New(trend.NewRefresher(tables, simulated, board), cfg.Market.RefreshInterval, logging.Component("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Classifier: remote model service when configured, local nearest neighbour otherwise.
	local, err := classifier.NewNearestNeighbor(tables.Samples())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build local classifier")
	}
	clf := &classifier.Fallback{Secondary: local, Logger: logging.Component("classifier")}
	if cfg.Classifier.URL != "" {
		clf.Primary = classifier.NewRemote(cfg.Classifier.URL, &http.Client{}, cfg.Classifier.Timeout)
	}

	// Event publishing is optional.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(events.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		publisher = np
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	recommender := recommend.NewService(recommend.Deps{
		Tables:         tables,
		Weather:        weatherSvc,
		Classifier:     clf,
		Market:         market,
		Demand:         demand,
		Scorer:         scoring.NewEngine(tables),
		Publisher:      publisher,
		Logger:         logging.Logger(),
		WeatherTimeout: cfg.Weather.Timeout,
	})

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "crop-recommendation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "ok",
			"service":           "crop-recommendation",
			"weather_providers": len(provs),
			"remote_classifier": cfg.Classifier.URL != "",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Handlers{
		Recommender:    recommender,
		Weather:        weatherSvc,
		Market:         market,
		Demand:         demand,
		History:        board,
		Tables:         tables,
		WeatherTimeout: cfg.Weather.Timeout,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Int("weather_providers", len(provs)).Msg("crop recommendation service started")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
