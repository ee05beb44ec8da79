package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/skycast/internal/common"
)

// imageQuerySuffix biases photo search toward a recognizable view of the place.
const imageQuerySuffix = "landmark city skyline"

// Aggregator runs the city-weather pipeline:
// resolve -> current conditions -> enrichment (air quality, photo) -> forecast.
type Aggregator struct {
	weather  WeatherProvider
	air      AirQualityProvider
	images   ImageProvider
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithRecorder reports aggregation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

// WithClock overrides the time source used for cache busting and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates a new Aggregator. air and images may be nil, in which
// case the corresponding enrichment is skipped.
func NewAggregator(wp WeatherProvider, air AirQualityProvider, images ImageProvider, log *zap.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Aggregator{
		weather: wp,
		air:     air,
		images:  images,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolution is the canonical place a query resolved to.
type Resolution struct {
	PlaceName string
	// Current is set when resolving already fetched current conditions
	// (coordinate queries go through the provider's by-coordinates lookup).
	Current *CurrentConditions
}

// Resolve normalizes a query into a place name usable for forecast lookup.
func (a *Aggregator) Resolve(ctx context.Context, q PlaceQuery) (Resolution, error) {
	if q.Coordinates == nil {
		name := strings.TrimSpace(q.Name)
		if name == "" {
			return Resolution{}, ErrEmptyQuery
		}
		return Resolution{PlaceName: name}, nil
	}

	if err := q.Coordinates.Validate(); err != nil {
		return Resolution{}, err
	}
	cur, err := a.weather.CurrentByCoordinates(ctx, *q.Coordinates)
	if err != nil {
		return Resolution{}, err
	}
	if strings.TrimSpace(cur.PlaceName) == "" {
		return Resolution{}, fmt.Errorf("%w: no place at %s", ErrCityNotFound, q.Coordinates)
	}
	return Resolution{PlaceName: cur.PlaceName, Current: &cur}, nil
}

// Aggregate runs the full pipeline for q. Current conditions and forecast are
// required; air quality and the background photo are best-effort.
func (a *Aggregator) Aggregate(ctx context.Context, q PlaceQuery) (Snapshot, error) {
	if a.weather == nil {
		return Snapshot{}, fmt.Errorf("%w: no weather provider configured", ErrConfiguration)
	}

	start := a.now()
	log := a.log.With(zap.String("request_id", uuid.NewString()), zap.String("query", q.String()))

	snap, err := a.aggregate(ctx, q, log)

	outcome := "success"
	switch {
	case errors.Is(err, ErrEmptyQuery):
		outcome = "empty"
	case err != nil:
		outcome = "failure"
		log.Warn("aggregation failed", zap.Error(err))
	default:
		log.Debug("aggregation completed",
			zap.String("place", snap.Current.PlaceName),
			zap.Int("forecast_days", len(snap.Forecast)),
		)
	}
	if a.recorder != nil {
		a.recorder.ObserveAggregation(outcome, a.now().Sub(start).Seconds())
	}
	return snap, err
}

func (a *Aggregator) aggregate(ctx context.Context, q PlaceQuery, log *zap.Logger) (Snapshot, error) {
	res, err := a.Resolve(ctx, q)
	if err != nil {
		return Snapshot{}, err
	}

	var current CurrentConditions
	if res.Current != nil {
		current = *res.Current
	} else {
		current, err = a.weather.CurrentByName(ctx, res.PlaceName)
		if err != nil {
			return Snapshot{}, err
		}
	}

	aq, imageURL := a.enrich(ctx, current, log)

	readings, err := a.weather.Forecast(ctx, res.PlaceName)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Query:              q.String(),
		Current:            current,
		Forecast:           SelectDailyForecast(readings),
		AirQuality:         aq,
		BackgroundImageURL: imageURL,
		FetchedAt:          a.now().UTC(),
	}, nil
}

// enrich fetches air quality and the background photo concurrently; both only
// depend on the current conditions. Failures are logged and leave the field empty.
func (a *Aggregator) enrich(ctx context.Context, current CurrentConditions, log *zap.Logger) (*AirQualityReading, string) {
	var (
		wg       sync.WaitGroup
		aq       *AirQualityReading
		imageURL string
	)

	if a.air != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := a.air.AirQuality(ctx, current.Coordinates)
			if err != nil {
				log.Warn("air quality lookup failed", zap.Error(err))
				return
			}
			aq = &r
		}()
	}

	if a.images != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := a.images.SearchImage(ctx, ImageQuery(current.PlaceName))
			if err != nil {
				log.Warn("image search failed", zap.Error(err))
				return
			}
			if u == "" {
				log.Debug("image search returned no results")
				return
			}
			imageURL = common.WithCacheBuster(u, a.now())
		}()
	}

	wg.Wait()
	return aq, imageURL
}

// ImageQuery builds the photo search phrase for a place.
func ImageQuery(place string) string {
	return strings.TrimSpace(place) + " " + imageQuerySuffix
}
