// Package geolocation finds out where the dashboard user is, so the
// dashboard can show how far away the searched place is.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/skycast/internal/weather"
)

// Locator produces the user's current coordinates.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// StaticLocator returns fixed, configured coordinates.
type StaticLocator struct {
	coords *weather.Coordinates
}

// NewStaticLocator returns a locator for c; a nil c always reports unavailable.
func NewStaticLocator(c *weather.Coordinates) StaticLocator {
	return StaticLocator{coords: c}
}

func (l StaticLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	if l.coords == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: no static coordinates configured", weather.ErrLocationUnavailable)
	}
	if err := l.coords.Validate(); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrLocationUnavailable, err)
	}
	return *l.coords, nil
}

// geocodeFunc matches geocoder.Geocoding.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// AddressLocator geocodes a configured home address through the Google
// Geocoding API.
type AddressLocator struct {
	address geocoder.Address
	enabled bool
	geocode geocodeFunc
}

// NewAddressLocator configures the geocoder with apiKey. The locator is
// disabled when the key or the address is empty.
func NewAddressLocator(apiKey string, address geocoder.Address) *AddressLocator {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &AddressLocator{
		address: address,
		enabled: apiKey != "" && (address.City != "" || address.Street != "" || address.PostalCode != ""),
		geocode: geocoder.Geocoding,
	}
}

func (l *AddressLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	if !l.enabled {
		return weather.Coordinates{}, fmt.Errorf("%w: home address geocoding not configured", weather.ErrLocationUnavailable)
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.geocode(l.address)
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrLocationUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("%w: geocoding: %v", weather.ErrLocationUnavailable, r.err)
		}
		c := weather.Coordinates{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude}
		if err := c.Validate(); err != nil {
			return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrLocationUnavailable, err)
		}
		return c, nil
	}
}

// Chain tries each locator in order and returns the first success.
type Chain []Locator

func (c Chain) Locate(ctx context.Context) (weather.Coordinates, error) {
	var errs []error
	for _, l := range c {
		coords, err := l.Locate(ctx)
		if err == nil {
			return coords, nil
		}
		// A denial is final; other failures fall through to the next source.
		if errors.Is(err, weather.ErrPermissionDenied) {
			return weather.Coordinates{}, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: no locators configured", weather.ErrLocationUnavailable)
	}
	return weather.Coordinates{}, errors.Join(errs...)
}

// Once runs a locator at most once per process, in the background, and keeps
// the result as the default user position for new sessions.
type Once struct {
	locator Locator
	log     *zap.Logger

	once   sync.Once
	done   chan struct{}
	mu     sync.RWMutex
	coords *weather.Coordinates
}

func NewOnce(l Locator, log *zap.Logger) *Once {
	if log == nil {
		log = zap.NewNop()
	}
	return &Once{locator: l, log: log, done: make(chan struct{})}
}

// Start launches the lookup without blocking. Later calls do nothing.
func (o *Once) Start(ctx context.Context) {
	o.once.Do(func() {
		go func() {
			defer close(o.done)
			c, err := o.locator.Locate(ctx)
			if err != nil {
				o.log.Info("user location not available; distance badge disabled", zap.Error(err))
				return
			}
			o.mu.Lock()
			o.coords = &c
			o.mu.Unlock()
			o.log.Info("user location resolved", zap.String("coordinates", c.String()))
		}()
	})
}

// Done is closed once the lookup has finished, successfully or not.
func (o *Once) Done() <-chan struct{} {
	return o.done
}

// Coordinates returns the located position, or nil if unknown.
func (o *Once) Coordinates() *weather.Coordinates {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.coords == nil {
		return nil
	}
	c := *o.coords
	return &c
}
