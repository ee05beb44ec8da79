package weather

import (
	"context"
)

// ForecastReading is one raw reading from a provider's 3-hour forecast series.
type ForecastReading struct {
	TimestampUnix        int64
	DateText             string // provider-local "YYYY-MM-DD hh:mm:ss"
	TemperatureC         float64
	ConditionDescription string
}

// WeatherProvider abstracts the current-conditions and forecast source (e.g. OpenWeatherMap).
type WeatherProvider interface {
	Name() string
	CurrentByName(ctx context.Context, place string) (CurrentConditions, error)
	CurrentByCoordinates(ctx context.Context, coords Coordinates) (CurrentConditions, error)
	Forecast(ctx context.Context, place string) ([]ForecastReading, error)
}

// AirQualityProvider returns the air quality index at a coordinate pair.
type AirQualityProvider interface {
	AirQuality(ctx context.Context, coords Coordinates) (AirQualityReading, error)
}

// ImageProvider finds a representative photo for a search phrase.
// An empty URL with a nil error means the search had no results.
type ImageProvider interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// Recorder receives aggregation outcomes; implemented by the metrics package.
type Recorder interface {
	ObserveAggregation(outcome string, seconds float64)
}
