package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/skycast/internal/store"
	"github.com/i474232898/skycast/internal/weather"
)

// stubSearcher answers from a fixed table of places.
type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	places  map[string]weather.CurrentConditions
}

func (s *stubSearcher) Aggregate(ctx context.Context, q weather.PlaceQuery) (weather.Snapshot, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q.String())
	s.mu.Unlock()

	if q.IsEmpty() {
		return weather.Snapshot{}, weather.ErrEmptyQuery
	}
	key := q.Name
	if q.Coordinates != nil {
		key = q.Coordinates.String()
	}
	cur, ok := s.places[key]
	if !ok {
		return weather.Snapshot{}, fmt.Errorf("%w: %s", weather.ErrCityNotFound, key)
	}
	return weather.Snapshot{
		Query:      q.String(),
		Current:    cur,
		AirQuality: &weather.AirQualityReading{AQIIndex: 2},
	}, nil
}

func (s *stubSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

var puneNow = weather.CurrentConditions{
	PlaceName:            "Pune",
	Country:              "IN",
	TemperatureC:         28.4,
	HumidityPct:          62,
	ConditionDescription: "broken clouds",
	Coordinates:          weather.Coordinates{Latitude: 18.5204, Longitude: 73.8567},
}

func newTestApp(t *testing.T) (*fiber.App, *stubSearcher, *store.SessionStore) {
	t.Helper()
	searcher := &stubSearcher{places: map[string]weather.CurrentConditions{
		"Pune":            puneNow,
		"18.5204,73.8567": puneNow,
		"Tokyo":           {PlaceName: "Tokyo", Coordinates: weather.Coordinates{Latitude: 35.6762, Longitude: 139.6503}},
	}}
	sessions := store.NewSessionStore(10, 0, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, NewHandler(sessions, searcher, []string{"Tokyo", "Pune"}, nil))
	return app, searcher, sessions
}

func do(t *testing.T, app *fiber.App, method, path, session, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) dashboardResponse {
	t.Helper()
	defer resp.Body.Close()
	var out dashboardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var out struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Error)
	return out.Message
}

func TestGetDashboard_CreatesSession(t *testing.T) {
	app, _, sessions := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/dashboard", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get(sessionHeader)
	assert.NotEmpty(t, id)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, id, cookie.Value)

	body := decode(t, resp)
	assert.Equal(t, id, body.SessionID)
	assert.True(t, body.View.Home)
	assert.Equal(t, 1, sessions.Len())

	// The same session is reused.
	resp = do(t, app, http.MethodGet, "/api/v1/dashboard", id, "")
	assert.Equal(t, id, decode(t, resp).SessionID)
	assert.Equal(t, 1, sessions.Len())
}

func TestSearch_ByCity(t *testing.T) {
	app, searcher, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"city":"  Pune "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	assert.False(t, body.Skipped)
	require.NotNil(t, body.State.Current)
	assert.Equal(t, "Pune", body.View.PlaceName)
	assert.Equal(t, "28°", body.View.Temperature)
	assert.Equal(t, "Good", body.View.AQILabel)
	assert.Equal(t, []string{"Pune"}, searcher.Queries())

	// The result is kept for the session.
	resp = do(t, app, http.MethodGet, "/api/v1/dashboard", body.SessionID, "")
	assert.Equal(t, "Pune", decode(t, resp).View.PlaceName)
}

func TestSearch_ByCoordinates(t *testing.T) {
	app, searcher, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"lat":18.5204,"lon":73.8567}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Pune", decode(t, resp).View.PlaceName)
	assert.Equal(t, []string{"18.5204,73.8567"}, searcher.Queries())
}

func TestSearch_EmptyIsSkipped(t *testing.T) {
	app, searcher, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"city":"   "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.True(t, body.Skipped)
	assert.True(t, body.View.Home)
	assert.Empty(t, searcher.Queries())
}

func TestSearch_NotFoundKeepsPreviousPlace(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"city":"Pune"}`)
	session := decode(t, resp).SessionID

	resp = do(t, app, http.MethodPost, "/api/v1/search", session, `{"city":"Atlantis"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "place not found / check input", errorMessage(t, resp))

	resp = do(t, app, http.MethodGet, "/api/v1/dashboard", session, "")
	body := decode(t, resp)
	assert.Equal(t, "Pune", body.View.PlaceName)
	assert.False(t, body.State.Loading)
}

func TestSearch_Validation(t *testing.T) {
	app, searcher, _ := newTestApp(t)

	for _, payload := range []string{
		`{"lat":18.5}`,
		`{"lat":95,"lon":0}`,
		`{"lat":0,"lon":-190}`,
		`{"city":"` + strings.Repeat("x", 201) + `"}`,
		`{"city":`,
	} {
		resp := do(t, app, http.MethodPost, "/api/v1/search", "", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, payload)
	}
	assert.Empty(t, searcher.Queries())
}

func TestQuickPicks(t *testing.T) {
	app, searcher, _ := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/quickpicks", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Places []string `json:"places"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"Tokyo", "Pune"}, list.Places)

	resp = do(t, app, http.MethodPost, "/api/v1/quickpicks/0", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tokyo", decode(t, resp).View.PlaceName)

	resp = do(t, app, http.MethodPost, "/api/v1/quickpicks/2", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/api/v1/quickpicks/first", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, []string{"Tokyo"}, searcher.Queries())
}

func TestReportLocation(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"city":"Pune"}`)
	session := decode(t, resp).SessionID

	resp = do(t, app, http.MethodPost, "/api/v1/location", session, `{"coords":{"latitude":18.5204,"longitude":73.8567}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.False(t, body.Skipped)
	require.NotNil(t, body.View.DistanceKm)
	assert.Equal(t, 0, *body.View.DistanceKm)
}

func TestReportLocation_DeniedIsSilent(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/location", "", `{"error":{"code":1,"message":"User denied Geolocation"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.True(t, body.Skipped)
	assert.Nil(t, body.State.UserCoordinates)

	resp = do(t, app, http.MethodPost, "/api/v1/location", "", `{"lat":18.5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDismiss(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/search", "", `{"city":"Pune"}`)
	session := decode(t, resp).SessionID

	resp = do(t, app, http.MethodDelete, "/api/v1/dashboard", session, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.True(t, body.View.Home)
	assert.Nil(t, body.State.Current)
	assert.Empty(t, body.State.Forecast)
}
