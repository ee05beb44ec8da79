package main

import (
	"net/http"

	"github.com/kelvins/geocoder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/i474232898/skycast/internal/config"
	"github.com/i474232898/skycast/internal/geolocation"
	"github.com/i474232898/skycast/internal/logger"
	"github.com/i474232898/skycast/internal/metrics"
	"github.com/i474232898/skycast/internal/weather"
	"github.com/i474232898/skycast/internal/weather/providers"
)

// deps is everything the commands share.
type deps struct {
	cfg        *config.AppConfig
	log        *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	aggregator *weather.Aggregator
	locator    geolocation.Locator
}

func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Shared HTTP client for outbound provider calls.
	httpCfg := providers.HTTPClientConfig{
		Client:  &http.Client{Timeout: cfg.HTTPTimeout},
		Metrics: m,
	}

	owm := providers.NewOpenWeatherProvider(httpCfg, cfg.WeatherAPIKey, cfg.WeatherBaseURL)
	unsplash := providers.NewUnsplashProvider(httpCfg, cfg.UnsplashAccessKey, cfg.UnsplashBaseURL)

	agg := weather.NewAggregator(owm, owm, unsplash, log.Named("aggregator"), weather.WithRecorder(m))

	userCoords, err := cfg.UserCoords()
	if err != nil {
		return nil, err
	}
	locator := geolocation.Chain{
		geolocation.NewStaticLocator(userCoords),
		geolocation.NewAddressLocator(cfg.GeocodingAPIKey, geocoder.Address{
			Street:  cfg.HomeStreet,
			City:    cfg.HomeCity,
			State:   cfg.HomeState,
			Country: cfg.HomeCountry,
		}),
	}

	return &deps{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		metrics:    m,
		aggregator: agg,
		locator:    locator,
	}, nil
}
