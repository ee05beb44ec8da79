package weather

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searcherFunc func(ctx context.Context, q PlaceQuery) (Snapshot, error)

func (f searcherFunc) Aggregate(ctx context.Context, q PlaceQuery) (Snapshot, error) {
	return f(ctx, q)
}

func TestDashboard_SearchShowsRoundedTemperature(t *testing.T) {
	p := newFakeProvider()
	d := NewDashboard(nil)

	state, err := d.Search(context.Background(), newTestAggregator(p), NewNameQuery("Pune"))
	require.NoError(t, err)
	require.True(t, state.HasPlace())
	assert.False(t, state.Loading)

	v := BuildView(state, fixedNow)
	assert.False(t, v.Home)
	assert.Equal(t, "Pune", v.PlaceName)
	assert.Equal(t, "28°", v.Temperature)
	assert.Equal(t, "Good", v.AQILabel)
	assert.Equal(t, "Low", v.UVLabel)
	assert.Len(t, v.Forecast, 5)
	assert.Nil(t, v.DistanceKm)
}

func TestDashboard_AQIDrivesLabels(t *testing.T) {
	p := newFakeProvider()
	p.aqi = 3
	d := NewDashboard(nil)

	state, err := d.Search(context.Background(), newTestAggregator(p), NewNameQuery("Pune"))
	require.NoError(t, err)

	v := BuildView(state, fixedNow)
	assert.Equal(t, "Moderate", v.AQILabel)
	assert.Equal(t, "High", v.UVLabel)
}

func TestDashboard_DistanceToSamePlaceIsZero(t *testing.T) {
	p := newFakeProvider()
	here := p.current["pune"].Coordinates
	d := NewDashboard(&here)

	state, err := d.Search(context.Background(), newTestAggregator(p), NewNameQuery("Pune"))
	require.NoError(t, err)
	require.NotNil(t, state.DistanceKm)
	assert.Equal(t, 0, *state.DistanceKm)
}

func TestDashboard_EmptySearchIsNoop(t *testing.T) {
	p := newFakeProvider()
	agg := newTestAggregator(p)
	d := NewDashboard(nil)

	before, err := d.Search(context.Background(), agg, NewNameQuery("Pune"))
	require.NoError(t, err)
	calls := len(p.Calls())

	after, err := d.Search(context.Background(), agg, NewNameQuery("   "))
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, calls, len(p.Calls()), "no provider call for an empty query")
	assert.Equal(t, before, after)
}

func TestDashboard_MissingImageStillSucceeds(t *testing.T) {
	p := newFakeProvider()
	p.imageURL = ""
	d := NewDashboard(nil)

	state, err := d.Search(context.Background(), newTestAggregator(p), NewNameQuery("Pune"))
	require.NoError(t, err)
	assert.Empty(t, state.BackgroundImageURL)
	assert.Equal(t, "28°", BuildView(state, fixedNow).Temperature)
}

func TestDashboard_FailureKeepsPreviousSnapshot(t *testing.T) {
	p := newFakeProvider()
	agg := newTestAggregator(p)
	d := NewDashboard(nil)

	_, err := d.Search(context.Background(), agg, NewNameQuery("Pune"))
	require.NoError(t, err)

	state, err := d.Search(context.Background(), agg, NewNameQuery("Atlantis"))
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.ErrorIs(t, err, ErrCityNotFound)
	assert.Equal(t, "place not found / check input", ErrSearchFailed.Error())
	assert.False(t, state.Loading)
	require.NotNil(t, state.Current)
	assert.Equal(t, "Pune", state.Current.PlaceName)
}

func TestDashboard_StaleResultIsDropped(t *testing.T) {
	d := NewDashboard(nil)

	first := d.Begin()
	second := d.Begin()

	stale := Snapshot{Query: "Tokyo", Current: CurrentConditions{PlaceName: "Tokyo"}}
	fresh := Snapshot{Query: "Pune", Current: puneConditions(28.4)}

	assert.True(t, d.Complete(second, fresh))
	assert.False(t, d.Complete(first, stale))
	assert.False(t, d.Fail(first))

	state := d.State()
	assert.Equal(t, "Pune", state.Current.PlaceName)
	assert.False(t, state.Loading)
}

func TestDashboard_ResultAfterDismissIsDropped(t *testing.T) {
	d := NewDashboard(nil)
	token := d.Begin()
	d.Dismiss()

	assert.False(t, d.Complete(token, Snapshot{Current: puneConditions(28.4)}))
	state := d.State()
	assert.False(t, state.HasPlace())
	assert.False(t, state.Loading)
}

func TestDashboard_ConcurrentSearchLastWins(t *testing.T) {
	release := make(chan struct{})
	slow := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		<-release
		return Snapshot{Query: q.String(), Current: CurrentConditions{PlaceName: q.String()}}, nil
	})
	fast := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		return Snapshot{Query: q.String(), Current: CurrentConditions{PlaceName: q.String()}}, nil
	})

	d := NewDashboard(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Search(context.Background(), slow, NewNameQuery("Tokyo"))
	}()

	require.Eventually(t, func() bool { return d.State().Loading }, time.Second, time.Millisecond)

	_, err := d.Search(context.Background(), fast, NewNameQuery("London"))
	require.NoError(t, err)

	close(release)
	<-done
	assert.Equal(t, "London", d.State().Current.PlaceName)
}

func TestDashboard_DismissKeepsUserContext(t *testing.T) {
	p := newFakeProvider()
	user := pune
	d := NewDashboard(&user)

	_, err := d.Search(context.Background(), newTestAggregator(p), NewNameQuery("Pune"))
	require.NoError(t, err)

	d.Dismiss()
	state := d.State()
	assert.False(t, state.HasPlace())
	assert.Empty(t, state.Forecast)
	assert.Nil(t, state.AirQuality)
	assert.Empty(t, state.BackgroundImageURL)
	require.NotNil(t, state.UserCoordinates)
	assert.Equal(t, pune, *state.UserCoordinates)
	require.NotNil(t, state.DistanceKm)
	assert.True(t, BuildView(state, fixedNow).Home)
}

func TestDashboard_SetUserCoordinatesUpdatesDistance(t *testing.T) {
	d := NewDashboard(nil)
	token := d.Begin()
	require.True(t, d.Complete(token, Snapshot{Current: CurrentConditions{PlaceName: "Mumbai", Coordinates: mumbai}}))
	assert.Nil(t, d.State().DistanceKm)

	d.SetUserCoordinates(pune)
	state := d.State()
	require.NotNil(t, state.DistanceKm)
	assert.Equal(t, 120, *state.DistanceKm)
}

func TestDashboard_StateIsACopy(t *testing.T) {
	d := NewDashboard(&pune)
	token := d.Begin()
	d.Complete(token, Snapshot{
		Current:    puneConditions(28.4),
		Forecast:   ForecastSeries{{TimestampUnix: 1, TemperatureC: 20}},
		AirQuality: &AirQualityReading{AQIIndex: 2},
	})

	state := d.State()
	state.Current.PlaceName = "changed"
	state.Forecast[0].TemperatureC = 99
	state.AirQuality.AQIIndex = 5
	state.UserCoordinates.Latitude = 0

	again := d.State()
	assert.Equal(t, "Pune", again.Current.PlaceName)
	assert.Equal(t, 20.0, again.Forecast[0].TemperatureC)
	assert.Equal(t, 2, again.AirQuality.AQIIndex)
	assert.Equal(t, pune.Latitude, again.UserCoordinates.Latitude)
}

func TestDashboard_Refresh(t *testing.T) {
	var queries []string
	s := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		queries = append(queries, q.String())
		c := puneConditions(float64(20 + len(queries)))
		return Snapshot{Query: q.String(), Current: c}, nil
	})

	d := NewDashboard(nil)
	refreshed, err := d.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, refreshed, "nothing to refresh on the home view")

	_, err = d.Search(context.Background(), s, NewCoordinatesQuery(Coordinates{Latitude: 18.52, Longitude: 73.85}))
	require.NoError(t, err)

	lastActive := d.LastActive()
	d.now = func() time.Time { return lastActive.Add(time.Hour) }

	refreshed, err = d.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, []string{"18.5200,73.8500", "Pune"}, queries)
	assert.Equal(t, lastActive, d.LastActive(), "refresh is not user activity")
	assert.Equal(t, 22.0, d.State().Current.TemperatureC)
}

func TestDashboard_RefreshFailure(t *testing.T) {
	ok := true
	s := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: 503", ErrNetwork)
		}
		return Snapshot{Current: puneConditions(28.4)}, nil
	})

	d := NewDashboard(nil)
	_, err := d.Search(context.Background(), s, NewNameQuery("Pune"))
	require.NoError(t, err)

	ok = false
	refreshed, err := d.Refresh(context.Background(), s)
	assert.True(t, refreshed)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, 28.4, d.State().Current.TemperatureC)
}

func TestDashboard_RefreshKeepsConcurrentActivity(t *testing.T) {
	var d *Dashboard
	var seen time.Time
	refreshing := false
	s := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		if refreshing {
			// The user reads the dashboard while the refresh is in flight.
			d.State()
			seen = d.LastActive()
		}
		return Snapshot{Current: puneConditions(22)}, nil
	})

	d = NewDashboard(nil)
	_, err := d.Search(context.Background(), s, NewNameQuery("Pune"))
	require.NoError(t, err)

	before := d.LastActive()
	d.now = func() time.Time { return before.Add(time.Hour) }
	refreshing = true

	refreshed, err := d.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, before.Add(time.Hour), seen)
	assert.Equal(t, before.Add(time.Hour), d.LastActive())
}

func TestDashboard_SetUserCoordinatesIfUnset(t *testing.T) {
	s := searcherFunc(func(ctx context.Context, q PlaceQuery) (Snapshot, error) {
		return Snapshot{Current: puneConditions(28.4)}, nil
	})

	d := NewDashboard(nil)
	_, err := d.Search(context.Background(), s, NewNameQuery("Pune"))
	require.NoError(t, err)
	before := d.LastActive()
	d.now = func() time.Time { return before.Add(time.Hour) }

	home := puneConditions(0).Coordinates
	assert.True(t, d.SetUserCoordinatesIfUnset(home))
	assert.Equal(t, before, d.LastActive(), "adopting a default is not user activity")

	state := d.State()
	require.NotNil(t, state.DistanceKm)
	assert.Zero(t, *state.DistanceKm)

	// A position the session already has is kept.
	assert.False(t, d.SetUserCoordinatesIfUnset(Coordinates{Latitude: 51.5, Longitude: -0.12}))
	assert.Equal(t, home, *d.State().UserCoordinates)
}
