package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Searcher runs one aggregation; *Aggregator is the production implementation.
type Searcher interface {
	Aggregate(ctx context.Context, q PlaceQuery) (Snapshot, error)
}

// Dashboard owns a session's PresentationState. State only changes through
// its transition methods, and results of superseded searches are dropped.
type Dashboard struct {
	mu         sync.Mutex
	state      PresentationState
	generation uint64
	lastActive time.Time
	now        func() time.Time
}

// NewDashboard creates an idle dashboard. user may be nil when the user's
// position is not known yet.
func NewDashboard(user *Coordinates) *Dashboard {
	d := &Dashboard{now: time.Now}
	if user != nil {
		c := *user
		d.state.UserCoordinates = &c
	}
	d.lastActive = d.now()
	return d
}

// State returns a copy of the current PresentationState.
func (d *Dashboard) State() PresentationState {
	return d.snapshot(true)
}

func (d *Dashboard) snapshot(touch bool) PresentationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touchLocked(touch)
	return d.state.clone()
}

func (d *Dashboard) touchLocked(touch bool) {
	if touch {
		d.lastActive = d.now()
	}
}

// LastActive reports when the dashboard was last read or changed.
func (d *Dashboard) LastActive() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActive
}

// Begin moves the dashboard into Loading and returns the token that the
// matching Complete or Fail call must present.
func (d *Dashboard) Begin() uint64 {
	return d.begin(true)
}

func (d *Dashboard) begin(touch bool) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.state.Loading = true
	d.touchLocked(touch)
	return d.generation
}

// Complete replaces the state with snap. It returns false, leaving state
// untouched, when token belongs to a superseded search.
func (d *Dashboard) Complete(token uint64, snap Snapshot) bool {
	return d.complete(token, snap, true)
}

func (d *Dashboard) complete(token uint64, snap Snapshot, touch bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if token != d.generation {
		return false
	}

	cur := snap.Current
	next := PresentationState{
		Query:              snap.Query,
		Current:            &cur,
		Forecast:           append(ForecastSeries(nil), snap.Forecast...),
		AirQuality:         snap.AirQuality,
		BackgroundImageURL: snap.BackgroundImageURL,
		UserCoordinates:    d.state.UserCoordinates,
		UpdatedAt:          snap.FetchedAt,
	}
	if next.UserCoordinates != nil {
		km := DistanceKm(*next.UserCoordinates, cur.Coordinates)
		next.DistanceKm = &km
	}
	d.state = next
	d.touchLocked(touch)
	return true
}

// Fail ends a search without touching the previous snapshot.
func (d *Dashboard) Fail(token uint64) bool {
	return d.fail(token, true)
}

func (d *Dashboard) fail(token uint64, touch bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if token != d.generation {
		return false
	}
	d.state.Loading = false
	d.touchLocked(touch)
	return true
}

// Dismiss returns the dashboard to its home view. The user's coordinates and
// the last computed distance are session-scoped and survive.
func (d *Dashboard) Dismiss() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.state = PresentationState{
		UserCoordinates: d.state.UserCoordinates,
		DistanceKm:      d.state.DistanceKm,
	}
	d.lastActive = d.now()
}

// SetUserCoordinates records where the user is and refreshes the distance badge.
func (d *Dashboard) SetUserCoordinates(c Coordinates) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setUserCoordinatesLocked(c)
	d.lastActive = d.now()
}

// SetUserCoordinatesIfUnset records c only when the session has no position
// yet, and reports whether it did. It is not user activity.
func (d *Dashboard) SetUserCoordinatesIfUnset(c Coordinates) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.UserCoordinates != nil {
		return false
	}
	d.setUserCoordinatesLocked(c)
	return true
}

func (d *Dashboard) setUserCoordinatesLocked(c Coordinates) {
	d.state.UserCoordinates = &c
	if d.state.Current != nil {
		km := DistanceKm(c, d.state.Current.Coordinates)
		d.state.DistanceKm = &km
	}
}

// Search runs one aggregation and folds the result into the state.
// An empty query is a no-op and returns ErrEmptyQuery without calling s.
// Every other failure is reported as ErrSearchFailed and keeps the previous state.
func (d *Dashboard) Search(ctx context.Context, s Searcher, q PlaceQuery) (PresentationState, error) {
	return d.search(ctx, s, q, true)
}

func (d *Dashboard) search(ctx context.Context, s Searcher, q PlaceQuery, touch bool) (PresentationState, error) {
	if q.IsEmpty() {
		return d.snapshot(touch), ErrEmptyQuery
	}

	token := d.begin(touch)
	snap, err := s.Aggregate(ctx, q)
	if err != nil {
		d.fail(token, touch)
		if errors.Is(err, ErrEmptyQuery) {
			return d.snapshot(touch), ErrEmptyQuery
		}
		return d.snapshot(touch), fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	d.complete(token, snap, touch)
	return d.snapshot(touch), nil
}

// Refresh re-runs the search for the place currently shown, by its resolved name.
// It reports false when no place is shown. A refresh does not count as user
// activity, so idle sessions still expire.
func (d *Dashboard) Refresh(ctx context.Context, s Searcher) (bool, error) {
	d.mu.Lock()
	if d.state.Current == nil || d.state.Loading {
		d.mu.Unlock()
		return false, nil
	}
	q := NewNameQuery(d.state.Current.PlaceName)
	d.mu.Unlock()

	_, err := d.search(ctx, s, q, false)
	return true, err
}
