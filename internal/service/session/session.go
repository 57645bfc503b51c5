package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

// Geocoder resolves a typed address to a destination
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Destination, error)
}

// Directions returns walking alternatives between two points
type Directions interface {
	WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error)
}

// State is a point-in-time copy of a session
type State struct {
	Origin          *model.Coordinate   `json:"origin"`
	Destination     *model.Destination  `json:"destination"`
	Routes          []model.RouteOption `json:"routes"`
	SelectedRouteID string              `json:"selected_route_id,omitempty"`
	Loading         bool                `json:"loading"`
	LastError       *apperr.Error       `json:"last_error,omitempty"`
}

// SelectedRoute returns the currently selected route, if any
func (s State) SelectedRoute() (model.RouteOption, bool) {
	for _, r := range s.Routes {
		if r.ID == s.SelectedRouteID {
			return r, true
		}
	}
	return model.RouteOption{}, false
}

// RouteSession holds origin, destination and candidate routes for one walker
// and keeps them consistent as the origin moves.
//
// The mutex is never held across collaborator calls. Every fetch takes a
// sequence number and a result older than the last committed one is dropped,
// so overlapping fetches cannot overwrite newer routes.
type RouteSession struct {
	mu         sync.Mutex
	geocoder   Geocoder
	directions Directions
	logger     *zap.Logger

	origin          *model.Coordinate
	destination     *model.Destination
	routes          []model.RouteOption
	index           *routeIndex
	selectedRouteID string
	inFlight        int
	lastError       *apperr.Error

	fetchIssued    uint64
	fetchCommitted uint64
	destIssued     uint64

	listeners    map[int]func(State)
	nextListener int
}

// New creates an empty session
func New(geocoder Geocoder, directions Directions, logger *zap.Logger) *RouteSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteSession{
		geocoder:   geocoder,
		directions: directions,
		logger:     logger,
		routes:     []model.RouteOption{},
		listeners:  make(map[int]func(State)),
	}
}

// State returns a snapshot of the session
func (s *RouteSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *RouteSession) snapshotLocked() State {
	st := State{
		Routes:          make([]model.RouteOption, len(s.routes)),
		SelectedRouteID: s.selectedRouteID,
		Loading:         s.inFlight > 0,
		LastError:       s.lastError,
	}
	copy(st.Routes, s.routes)
	if s.origin != nil {
		o := *s.origin
		st.Origin = &o
	}
	if s.destination != nil {
		d := *s.destination
		st.Destination = &d
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the listener.
func (s *RouteSession) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *RouteSession) notify() {
	s.mu.Lock()
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	st := s.snapshotLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// SetOrigin stores the walker's position. When a destination is set and the
// position changed by value, routes are fetched again.
func (s *RouteSession) SetOrigin(ctx context.Context, origin model.Coordinate) error {
	s.mu.Lock()
	changed := s.origin == nil || !s.origin.Equal(origin)
	s.origin = &origin
	refetch := changed && s.destination != nil
	s.mu.Unlock()

	if !changed {
		return nil
	}
	s.notify()

	if refetch {
		s.logger.Debug("origin moved, refetching routes",
			zap.Float64("lat", origin.Latitude),
			zap.Float64("lng", origin.Longitude),
		)
		return s.Refetch(ctx)
	}
	return nil
}

// SetDestinationByAddress geocodes address and fetches routes to it.
// A failed lookup records the error and keeps the previous destination and routes.
func (s *RouteSession) SetDestinationByAddress(ctx context.Context, address string) error {
	s.mu.Lock()
	if s.origin == nil {
		err := s.failLocked(apperr.New(apperr.KindLocationUnavailable, ""))
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.destIssued++
	ticket := s.destIssued
	s.inFlight++
	s.lastError = nil
	s.mu.Unlock()
	s.notify()

	dest, err := s.geocoder.Geocode(ctx, address)

	s.mu.Lock()
	s.inFlight--
	if ticket != s.destIssued {
		// A newer destination or a clear superseded this lookup
		s.mu.Unlock()
		s.notify()
		s.logger.Debug("discarding superseded geocode result", zap.String("address", address))
		return nil
	}
	if err != nil {
		appErr := s.failLocked(classifyGeocodeError(err))
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("geocoding failed", zap.String("address", address), zap.Error(err))
		return appErr
	}
	s.destination = &dest
	s.mu.Unlock()
	s.notify()

	s.logger.Info("destination set",
		zap.String("name", dest.Name),
		zap.Float64("lat", dest.Latitude),
		zap.Float64("lng", dest.Longitude),
	)
	return s.Refetch(ctx)
}

// SetDestinationByCoordinate stores a tapped destination verbatim and fetches routes to it
func (s *RouteSession) SetDestinationByCoordinate(ctx context.Context, coordinate model.Coordinate, name string) error {
	s.mu.Lock()
	if s.origin == nil {
		err := s.failLocked(apperr.New(apperr.KindLocationUnavailable, ""))
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.destIssued++
	s.destination = &model.Destination{Coordinate: coordinate, Name: name}
	s.mu.Unlock()
	s.notify()

	return s.Refetch(ctx)
}

// Refetch asks the directions collaborator for routes between the current
// origin and destination. It is a no-op while either is missing.
func (s *RouteSession) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.origin == nil || s.destination == nil {
		s.mu.Unlock()
		return nil
	}
	s.fetchIssued++
	seq := s.fetchIssued
	origin, destination := *s.origin, s.destination.Coordinate
	s.inFlight++
	s.lastError = nil
	s.mu.Unlock()
	s.notify()

	routes, err := s.directions.WalkingRoutes(ctx, origin, destination)
	if err == nil && len(routes) == 0 {
		err = apperr.New(apperr.KindRouteNotFound, "")
	}

	s.mu.Lock()
	s.inFlight--
	if seq <= s.fetchCommitted {
		s.mu.Unlock()
		s.notify()
		s.logger.Debug("discarding stale route fetch", zap.Uint64("seq", seq))
		return nil
	}
	s.fetchCommitted = seq

	if err != nil {
		s.routes = []model.RouteOption{}
		s.index = nil
		s.selectedRouteID = ""
		appErr := s.failLocked(apperr.As(err))
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("route fetch failed", zap.String("kind", string(appErr.Kind)), zap.Error(err))
		return appErr
	}

	s.routes = routes
	s.index = newRouteIndex(routes)
	s.selectedRouteID = routes[0].ID
	s.lastError = nil
	s.mu.Unlock()
	s.notify()

	s.logger.Info("routes updated", zap.Int("routes", len(routes)), zap.Uint64("seq", seq))
	return nil
}

// SelectRoute marks a route of the current set as selected.
// Ids outside the current set are rejected with INVALID_ROUTE_ID.
func (s *RouteSession) SelectRoute(id string) error {
	s.mu.Lock()
	if !s.hasRouteLocked(id) {
		s.mu.Unlock()
		return apperr.New(apperr.KindInvalidRouteID, "")
	}
	changed := s.selectedRouteID != id
	s.selectedRouteID = id
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// SelectRouteNear selects the route passing closest to a tapped point,
// provided it is within toleranceMeters.
func (s *RouteSession) SelectRouteNear(point model.Coordinate, toleranceMeters float64) (string, error) {
	s.mu.Lock()
	id, ok := s.index.nearest(point, toleranceMeters)
	s.mu.Unlock()

	if !ok {
		return "", apperr.New(apperr.KindInvalidRouteID, "No route passes close to that point.")
	}
	return id, s.SelectRoute(id)
}

// Clear drops the destination, routes, selection and error.
// Fetches still in flight are discarded when they complete.
func (s *RouteSession) Clear() {
	s.mu.Lock()
	s.destination = nil
	s.routes = []model.RouteOption{}
	s.index = nil
	s.selectedRouteID = ""
	s.lastError = nil
	s.fetchCommitted = s.fetchIssued
	s.destIssued++
	s.mu.Unlock()

	s.notify()
}

func (s *RouteSession) hasRouteLocked(id string) bool {
	for _, r := range s.routes {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (s *RouteSession) failLocked(err *apperr.Error) *apperr.Error {
	s.lastError = err
	return err
}

// classifyGeocodeError maps unclassified geocoder failures to GEOCODING_FAILED
func classifyGeocodeError(err error) *apperr.Error {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindUnknown {
		return apperr.Wrap(apperr.KindGeocodingFailed, err)
	}
	return appErr
}
