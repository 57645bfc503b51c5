package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
	"saferoute/internal/service/hosted"
	"saferoute/internal/service/session"
	"saferoute/internal/util"
)

// defaultTapToleranceMeters is used when a tap-to-select request names no tolerance
const defaultTapToleranceMeters = 25.0

// SessionHandler exposes route sessions over HTTP
type SessionHandler struct {
	registry        *session.Registry
	defaultPlatform model.Platform
	logger          *zap.Logger
}

func NewSessionHandler(registry *session.Registry, defaultPlatform model.Platform, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{registry: registry, defaultPlatform: defaultPlatform, logger: logger}
}

// SetupSessionHandlers registers the session endpoints
func SetupSessionHandlers(router *gin.RouterGroup, h *SessionHandler) {
	sessions := router.Group("/sessions")

	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.PUT("/:id/origin", h.SetOrigin)
	sessions.PUT("/:id/destination", h.SetDestination)
	sessions.DELETE("/:id/destination", h.Clear)
	sessions.POST("/:id/refetch", h.Refetch)
	sessions.PUT("/:id/selected-route", h.SelectRoute)
	sessions.GET("/:id/routes.geojson", h.RoutesGeoJSON)
	sessions.POST("/:id/hosted/:requestId", h.AnswerHosted)
	sessions.GET("/:id/ws", h.Stream)
}

type createSessionRequest struct {
	Platform string `json:"platform"`
}

type coordinateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (r coordinateRequest) coordinate() model.Coordinate {
	return model.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

type destinationRequest struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name"`
}

type selectRouteRequest struct {
	ID              string   `json:"id"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ToleranceMeters float64  `json:"tolerance_meters"`
}

type hostedAnswerRequest struct {
	Result  json.RawMessage `json:"result"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// selectedRouteView is the summary a client shows for the highlighted route
type selectedRouteView struct {
	ID              string  `json:"id"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int64   `json:"duration_seconds"`
	DistanceText    string  `json:"distance_text"`
	DurationText    string  `json:"duration_text"`
}

type sessionView struct {
	ID       string             `json:"id"`
	Platform model.Platform     `json:"platform"`
	State    session.State      `json:"state"`
	Selected *selectedRouteView `json:"selected_route,omitempty"`
}

func viewOf(entry *session.Entry) sessionView {
	view := sessionView{ID: entry.ID, Platform: entry.Platform, State: entry.Session.State()}
	if route, ok := view.State.SelectedRoute(); ok {
		view.Selected = &selectedRouteView{
			ID:              route.ID,
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
			DistanceText:    util.FormatDistance(route.DistanceMeters),
			DurationText:    util.FormatDuration(route.DurationSeconds),
		}
	}
	return view
}

// StatusForKind maps an error kind to the HTTP status it is reported with
func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindLocationUnavailable:
		return http.StatusConflict
	case apperr.KindGeocodingNoResults, apperr.KindRouteNotFound:
		return http.StatusNotFound
	case apperr.KindGeocodingFailed:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidRouteID:
		return http.StatusBadRequest
	case apperr.KindNetwork:
		return http.StatusBadGateway
	case apperr.KindConfigMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"kind": "BAD_REQUEST", "message": message}})
}

func respond(c *gin.Context, status int, entry *session.Entry) {
	c.JSON(status, gin.H{"success": true, "data": viewOf(entry)})
}

func respondError(c *gin.Context, entry *session.Entry, err error) {
	appErr := apperr.As(err)
	body := gin.H{"success": false, "error": appErr}
	if entry != nil {
		body["data"] = viewOf(entry)
	}
	c.JSON(StatusForKind(appErr.Kind), body)
}

// lookup loads the session named in the path, answering 404 when it is gone
func (h *SessionHandler) lookup(c *gin.Context) (*session.Entry, bool) {
	entry, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"kind": "SESSION_NOT_FOUND", "message": "session not found"}})
		return nil, false
	}
	return entry, true
}

// CreateSession starts a new session for the requested platform
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	platform := h.defaultPlatform
	if req.Platform != "" {
		platform = model.ParsePlatform(req.Platform)
	}

	entry := h.registry.Create(platform)
	respond(c, http.StatusCreated, entry)
}

// GetSession returns the current snapshot
func (h *SessionHandler) GetSession(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, entry)
}

// DeleteSession ends a session
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if !h.registry.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"kind": "SESSION_NOT_FOUND", "message": "session not found"}})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOrigin reports a new position fix
func (h *SessionHandler) SetOrigin(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var req coordinateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := entry.Session.SetOrigin(c.Request.Context(), req.coordinate()); err != nil {
		respondError(c, entry, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// SetDestination accepts either a typed address or a tapped coordinate
func (h *SessionHandler) SetDestination(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var err error
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		coordinate := model.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
		err = entry.Session.SetDestinationByCoordinate(c.Request.Context(), coordinate, req.Name)
	case req.Address != "":
		err = entry.Session.SetDestinationByAddress(c.Request.Context(), req.Address)
	default:
		badRequest(c, "either address or latitude and longitude is required")
		return
	}

	if err != nil {
		respondError(c, entry, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// Clear drops the destination and routes
func (h *SessionHandler) Clear(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	entry.Session.Clear()
	respond(c, http.StatusOK, entry)
}

// Refetch fetches routes again for the current origin and destination
func (h *SessionHandler) Refetch(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := entry.Session.Refetch(c.Request.Context()); err != nil {
		respondError(c, entry, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// SelectRoute selects by id, or by the point the user tapped on the map
func (h *SessionHandler) SelectRoute(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var req selectRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var err error
	switch {
	case req.ID != "":
		err = entry.Session.SelectRoute(req.ID)
	case req.Latitude != nil && req.Longitude != nil:
		tolerance := req.ToleranceMeters
		if tolerance <= 0 {
			tolerance = defaultTapToleranceMeters
		}
		point := model.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
		_, err = entry.Session.SelectRouteNear(point, tolerance)
	default:
		badRequest(c, "either id or latitude and longitude is required")
		return
	}

	if err != nil {
		respondError(c, entry, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// RoutesGeoJSON exports the current route set for map rendering
func (h *SessionHandler) RoutesGeoJSON(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	st := entry.Session.State()
	fc := util.RoutesFeatureCollection(st.Routes, st.SelectedRouteID)
	raw, err := fc.MarshalJSON()
	if err != nil {
		respondError(c, entry, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", raw)
}

// AnswerHosted receives the browser's answer to a bridge request
func (h *SessionHandler) AnswerHosted(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	if entry.Bridge == nil {
		badRequest(c, "session does not use browser-hosted maps")
		return
	}

	var req hostedAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := answerBridge(entry.Bridge, c.Param("requestId"), req); err != nil {
		if errors.Is(err, hosted.ErrUnknownRequest) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"kind": "REQUEST_NOT_FOUND", "message": err.Error()}})
			return
		}
		badRequest(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// answerBridge rejects when a status is given, otherwise fulfils with the result
func answerBridge(bridge *hosted.Bridge, requestID string, req hostedAnswerRequest) error {
	if req.Status != "" && req.Status != "OK" {
		return bridge.Reject(requestID, req.Status, req.Message)
	}
	if len(req.Result) == 0 {
		return errors.New("result is required")
	}
	return bridge.Fulfill(requestID, req.Result)
}
