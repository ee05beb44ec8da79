package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/skycast/internal/weather"
)

type AppConfig struct {
	WeatherAPIKey     string `envconfig:"WEATHER_API_KEY"`
	WeatherBaseURL    string `envconfig:"WEATHER_API_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
	UnsplashAccessKey string `envconfig:"UNSPLASH_ACCESS_KEY"`
	UnsplashBaseURL   string `envconfig:"UNSPLASH_API_BASE_URL" default:"https://api.unsplash.com"`

	// HTTPTimeout applies to every outbound provider call.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	// RefreshInterval controls how often shown dashboards are refetched (0 = never).
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"15m"`

	// Session retention.
	SessionMaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"24h"` // idle time before eviction (0 = never)
	MaxSessions   int           `envconfig:"MAX_SESSIONS" default:"1000"`   // 0 = unlimited

	// QuickPicks are the one-click places offered next to the search box.
	QuickPicks []string `envconfig:"QUICK_PICKS" default:"London,New York,Tokyo,Pune"`

	// UserCoordinates ("lat,lon") pins the user's position for distance badges.
	UserCoordinates string `envconfig:"USER_COORDINATES"`

	// Home address geocoding, used when UserCoordinates is empty.
	GeocodingAPIKey string `envconfig:"GOOGLE_GEOCODING_API_KEY"`
	HomeStreet      string `envconfig:"USER_HOME_STREET"`
	HomeCity        string `envconfig:"USER_HOME_CITY"`
	HomeState       string `envconfig:"USER_HOME_STATE"`
	HomeCountry     string `envconfig:"USER_HOME_COUNTRY"`

	Port           string `envconfig:"PORT" default:"8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// Load reads configuration from the environment (and .env, when present)
// and validates it.
func Load() (*AppConfig, error) {
	// .env is optional; real environment variables always take precedence.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrConfiguration, err)
	}
	cfg.QuickPicks = cleanList(cfg.QuickPicks)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings that would otherwise produce malformed requests.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.WeatherAPIKey) == "" {
		return fmt.Errorf("%w: WEATHER_API_KEY is not set", weather.ErrConfiguration)
	}
	if strings.TrimSpace(c.UnsplashAccessKey) == "" {
		return fmt.Errorf("%w: UNSPLASH_ACCESS_KEY is not set", weather.ErrConfiguration)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: HTTP_TIMEOUT must not be negative", weather.ErrConfiguration)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%w: REFRESH_INTERVAL must not be negative", weather.ErrConfiguration)
	}
	if c.SessionMaxAge < 0 {
		return fmt.Errorf("%w: SESSION_MAX_AGE must not be negative", weather.ErrConfiguration)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: MAX_SESSIONS must not be negative", weather.ErrConfiguration)
	}
	if _, err := c.UserCoords(); err != nil {
		return err
	}
	return nil
}

// UserCoords parses UserCoordinates; nil means not configured.
func (c *AppConfig) UserCoords() (*weather.Coordinates, error) {
	raw := strings.TrimSpace(c.UserCoordinates)
	if raw == "" {
		return nil, nil
	}
	latStr, lonStr, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, fmt.Errorf("%w: USER_COORDINATES must be \"lat,lon\"", weather.ErrConfiguration)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid USER_COORDINATES latitude: %v", weather.ErrConfiguration, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid USER_COORDINATES longitude: %v", weather.ErrConfiguration, err)
	}
	coords := weather.Coordinates{Latitude: lat, Longitude: lon}
	if err := coords.Validate(); err != nil {
		return nil, fmt.Errorf("%w: USER_COORDINATES: %v", weather.ErrConfiguration, err)
	}
	return &coords, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
