package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/skycast/internal/geolocation"
	"github.com/i474232898/skycast/internal/store"
	"github.com/i474232898/skycast/internal/weather"
)

const (
	sessionCookie = "skycast_session"
	sessionHeader = "X-Session-ID"

	localDashboard = "dashboard"
	localSession   = "session"
)

var validate = validator.New()

// Handler serves the dashboard API for all sessions.
type Handler struct {
	sessions   *store.SessionStore
	searcher   weather.Searcher
	quickPicks []string
	log        *zap.Logger
	now        func() time.Time
}

func NewHandler(sessions *store.SessionStore, searcher weather.Searcher, quickPicks []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions:   sessions,
		searcher:   searcher,
		quickPicks: quickPicks,
		log:        log,
		now:        time.Now,
	}
}

// ErrorHandler renders every handler error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	v1 := app.Group("/api/v1", h.withSession)

	v1.Get("/dashboard", h.getDashboard)
	v1.Delete("/dashboard", h.dismiss)
	v1.Post("/search", h.search)
	v1.Get("/quickpicks", h.listQuickPicks)
	v1.Post("/quickpicks/:index", h.searchQuickPick)
	v1.Post("/location", h.reportLocation)
}

// withSession attaches the caller's dashboard, creating a session on first use.
func (h *Handler) withSession(c *fiber.Ctx) error {
	id := c.Get(sessionHeader)
	if id == "" {
		id = c.Cookies(sessionCookie)
	}

	id, d := h.sessions.GetOrCreate(id)
	c.Locals(localSession, id)
	c.Locals(localDashboard, d)

	c.Set(sessionHeader, id)
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Next()
}

// dashboardResponse is the body of every dashboard endpoint.
type dashboardResponse struct {
	SessionID string                    `json:"sessionId"`
	State     weather.PresentationState `json:"state"`
	View      weather.View              `json:"view"`
	// Skipped is set when the request was a no-op (e.g. an empty search).
	Skipped bool `json:"skipped,omitempty"`
}

func (h *Handler) respond(c *fiber.Ctx, state weather.PresentationState, skipped bool) error {
	return c.JSON(dashboardResponse{
		SessionID: sessionID(c),
		State:     state,
		View:      weather.BuildView(state, h.now()),
		Skipped:   skipped,
	})
}

func (h *Handler) getDashboard(c *fiber.Ctx) error {
	return h.respond(c, dashboard(c).State(), false)
}

func (h *Handler) dismiss(c *fiber.Ctx) error {
	d := dashboard(c)
	d.Dismiss()
	return h.respond(c, d.State(), false)
}

// searchRequest holds the body of POST /search: a city name or a lat/lon pair.
type searchRequest struct {
	City string   `json:"city" validate:"max=200"`
	Lat  *float64 `json:"lat" validate:"required_with=Lon,omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"required_with=Lat,omitempty,longitude"`
}

func (r searchRequest) toQuery() weather.PlaceQuery {
	if r.Lat != nil && r.Lon != nil {
		return weather.NewCoordinatesQuery(weather.Coordinates{Latitude: *r.Lat, Longitude: *r.Lon})
	}
	return weather.NewNameQuery(r.City)
}

func (h *Handler) search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return h.runSearch(c, req.toQuery())
}

func (h *Handler) listQuickPicks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"places": h.quickPicks,
	})
}

func (h *Handler) searchQuickPick(c *fiber.Ctx) error {
	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "quick pick index must be an integer")
	}
	if idx < 0 || idx >= len(h.quickPicks) {
		return fiber.NewError(fiber.StatusNotFound, "no such quick pick")
	}
	return h.runSearch(c, weather.NewNameQuery(h.quickPicks[idx]))
}

func (h *Handler) runSearch(c *fiber.Ctx, q weather.PlaceQuery) error {
	state, err := dashboard(c).Search(c.UserContext(), h.searcher, q)
	switch {
	case errors.Is(err, weather.ErrEmptyQuery):
		return h.respond(c, state, true)
	case err != nil:
		h.log.Info("search failed",
			zap.String("session", sessionID(c)),
			zap.String("query", q.String()),
			zap.Error(err),
		)
		return fiber.NewError(fiber.StatusNotFound, weather.ErrSearchFailed.Error())
	}
	return h.respond(c, state, false)
}

// reportLocation accepts the browser's geolocation result. A denied or
// unavailable position is not an error for the client; the dashboard simply
// shows no distance.
func (h *Handler) reportLocation(c *fiber.Ctx) error {
	raw := map[string]any{}
	if err := c.BodyParser(&raw); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	d := dashboard(c)
	coords, err := geolocation.DecodeReportedPosition(raw)
	switch {
	case errors.Is(err, weather.ErrPermissionDenied), errors.Is(err, weather.ErrLocationUnavailable):
		h.log.Info("client location not shared", zap.String("session", sessionID(c)), zap.Error(err))
		return h.respond(c, d.State(), true)
	case err != nil:
		return fiber.NewError(fiber.StatusBadRequest, strings.TrimSpace(err.Error()))
	}

	d.SetUserCoordinates(coords)
	return h.respond(c, d.State(), false)
}

func dashboard(c *fiber.Ctx) *weather.Dashboard {
	return c.Locals(localDashboard).(*weather.Dashboard)
}

func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(localSession).(string)
	return id
}
