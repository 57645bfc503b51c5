package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

var (
	london = model.Coordinate{Latitude: 51.5, Longitude: -0.12}
	bigBen = model.Destination{
		Coordinate: model.Coordinate{Latitude: 51.5007, Longitude: -0.1246},
		Name:       "Big Ben",
	}
)

type fakeGeocoder struct {
	mu    sync.Mutex
	dest  model.Destination
	err   error
	calls []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (model.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	return f.dest, f.err
}

type fakeDirections struct {
	mu     sync.Mutex
	routes []model.RouteOption
	err    error
	calls  []model.Coordinate
	// blocking makes every call wait on its own gate until released
	blocking bool
	gates    []chan []model.RouteOption
}

func (f *fakeDirections) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	f.mu.Lock()
	f.calls = append(f.calls, origin)
	routes, err := f.routes, f.err
	var gate chan []model.RouteOption
	if f.blocking {
		gate = make(chan []model.RouteOption, 1)
		f.gates = append(f.gates, gate)
	}
	f.mu.Unlock()

	if gate != nil {
		return <-gate, nil
	}
	return routes, err
}

func (f *fakeDirections) release(call int, routes []model.RouteOption) {
	f.mu.Lock()
	gate := f.gates[call]
	f.mu.Unlock()
	gate <- routes
}

func (f *fakeDirections) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func twoRoutes() []model.RouteOption {
	return []model.RouteOption{
		{
			ID:              "route-1",
			DistanceMeters:  1200,
			DurationSeconds: 900,
			Path:            []model.Coordinate{london, {Latitude: 51.5004, Longitude: -0.122}, bigBen.Coordinate},
		},
		{
			ID:              "route-2",
			DistanceMeters:  1500,
			DurationSeconds: 1100,
			Path:            []model.Coordinate{london, {Latitude: 51.4995, Longitude: -0.1235}, bigBen.Coordinate},
		},
	}
}

type SessionSuite struct {
	suite.Suite
	geocoder   *fakeGeocoder
	directions *fakeDirections
	session    *RouteSession
	ctx        context.Context
}

func (s *SessionSuite) SetupTest() {
	s.geocoder = &fakeGeocoder{dest: bigBen}
	s.directions = &fakeDirections{routes: twoRoutes()}
	s.session = New(s.geocoder, s.directions, nil)
	s.ctx = context.Background()
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestBigBenScenario() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))

	st := s.session.State()
	s.Len(st.Routes, 2)
	s.Equal("route-1", st.SelectedRouteID)
	s.Equal(&bigBen, st.Destination)
	s.False(st.Loading)
	s.Nil(st.LastError)
	s.Equal([]string{"Big Ben"}, s.geocoder.calls)

	selected, ok := st.SelectedRoute()
	s.True(ok)
	s.Equal(1200.0, selected.DistanceMeters)
}

func (s *SessionSuite) TestAddressWithoutOriginNeverGeocodes() {
	err := s.session.SetDestinationByAddress(s.ctx, "Big Ben")

	s.Equal(apperr.KindLocationUnavailable, apperr.KindOf(err))
	s.Empty(s.geocoder.calls)
	s.Equal(apperr.KindLocationUnavailable, s.session.State().LastError.Kind)
}

func (s *SessionSuite) TestCoordinateWithoutOrigin() {
	err := s.session.SetDestinationByCoordinate(s.ctx, bigBen.Coordinate, "")

	s.Equal(apperr.KindLocationUnavailable, apperr.KindOf(err))
	s.Nil(s.session.State().Destination)
	s.Zero(s.directions.callCount())
}

func (s *SessionSuite) TestDestinationByCoordinateStoredVerbatim() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	tapped := model.Coordinate{Latitude: 51.501, Longitude: -0.125}
	s.Require().NoError(s.session.SetDestinationByCoordinate(s.ctx, tapped, "Dropped pin"))

	st := s.session.State()
	s.Equal(&model.Destination{Coordinate: tapped, Name: "Dropped pin"}, st.Destination)
	s.Empty(s.geocoder.calls)
	s.Equal("route-1", st.SelectedRouteID)
}

func (s *SessionSuite) TestGeocodeFailureKeepsPreviousState() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))
	before := s.session.State()

	s.geocoder.err = apperr.New(apperr.KindGeocodingNoResults, "")
	err := s.session.SetDestinationByAddress(s.ctx, "Nowhere at all")
	s.Equal(apperr.KindGeocodingNoResults, apperr.KindOf(err))

	after := s.session.State()
	s.Equal(before.Destination, after.Destination)
	s.Equal(before.Routes, after.Routes)
	s.Equal(before.SelectedRouteID, after.SelectedRouteID)
	s.Equal(apperr.KindGeocodingNoResults, after.LastError.Kind)
	s.False(after.Loading)
}

func (s *SessionSuite) TestUnclassifiedGeocodeFailure() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.geocoder.err = errors.New("boom")

	err := s.session.SetDestinationByAddress(s.ctx, "Big Ben")
	s.Equal(apperr.KindGeocodingFailed, apperr.KindOf(err))
}

func (s *SessionSuite) TestDirectionsFailureClearsRoutes() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))

	s.directions.err = apperr.New(apperr.KindNetwork, "")
	s.directions.routes = nil
	err := s.session.Refetch(s.ctx)
	s.Equal(apperr.KindNetwork, apperr.KindOf(err))

	st := s.session.State()
	s.Empty(st.Routes)
	s.Empty(st.SelectedRouteID)
	s.Equal(apperr.KindNetwork, st.LastError.Kind)
	s.NotNil(st.Destination)
}

func (s *SessionSuite) TestDirectionsFailureKinds() {
	tests := []struct {
		err  error
		kind apperr.Kind
	}{
		{apperr.New(apperr.KindConfigMissing, ""), apperr.KindConfigMissing},
		{errors.New("weird"), apperr.KindUnknown},
		{context.DeadlineExceeded, apperr.KindNetwork},
	}
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	for _, tt := range tests {
		s.directions.err = tt.err
		s.directions.routes = nil
		err := s.session.SetDestinationByCoordinate(s.ctx, bigBen.Coordinate, "")
		s.Equal(tt.kind, apperr.KindOf(err))
		s.Equal(tt.kind, s.session.State().LastError.Kind)
	}
}

func (s *SessionSuite) TestEmptyRouteSet() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.directions.routes = []model.RouteOption{}

	err := s.session.SetDestinationByCoordinate(s.ctx, bigBen.Coordinate, "")
	s.Equal(apperr.KindRouteNotFound, apperr.KindOf(err))

	st := s.session.State()
	s.Empty(st.Routes)
	s.Empty(st.SelectedRouteID)
}

func (s *SessionSuite) TestNewRouteSetResetsSelection() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))
	s.Require().NoError(s.session.SelectRoute("route-2"))

	s.Require().NoError(s.session.Refetch(s.ctx))
	s.Equal("route-1", s.session.State().SelectedRouteID)
}

func (s *SessionSuite) TestOriginChangeRefetches() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Zero(s.directions.callCount(), "no destination yet")

	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))
	s.Equal(1, s.directions.callCount())

	s.Require().NoError(s.session.SetOrigin(s.ctx, model.Coordinate{Latitude: 51.5, Longitude: -0.12}))
	s.Equal(1, s.directions.callCount(), "same origin by value")

	moved := model.Coordinate{Latitude: 51.5001, Longitude: -0.12}
	s.Require().NoError(s.session.SetOrigin(s.ctx, moved))
	s.Equal(2, s.directions.callCount())
	s.Equal(moved, s.directions.calls[1])
}

func (s *SessionSuite) TestSelectRoute() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))

	s.Require().NoError(s.session.SelectRoute("route-2"))
	first := s.session.State()
	s.Require().NoError(s.session.SelectRoute("route-2"))
	s.Equal(first, s.session.State())
	s.Equal("route-2", first.SelectedRouteID)
}

func (s *SessionSuite) TestSelectUnknownRouteRejected() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))
	before := s.session.State()

	err := s.session.SelectRoute("route-9")
	s.Equal(apperr.KindInvalidRouteID, apperr.KindOf(err))
	s.Equal(before, s.session.State())

	s.session.Clear()
	s.Equal(apperr.KindInvalidRouteID, apperr.KindOf(s.session.SelectRoute("route-1")))
}

func (s *SessionSuite) TestSelectRouteNear() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))

	id, err := s.session.SelectRouteNear(model.Coordinate{Latitude: 51.4996, Longitude: -0.1233}, 30)
	s.Require().NoError(err)
	s.Equal("route-2", id)
	s.Equal("route-2", s.session.State().SelectedRouteID)

	_, err = s.session.SelectRouteNear(model.Coordinate{Latitude: 51.6, Longitude: -0.2}, 30)
	s.Equal(apperr.KindInvalidRouteID, apperr.KindOf(err))
	s.Equal("route-2", s.session.State().SelectedRouteID)
}

func (s *SessionSuite) TestClear() {
	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByAddress(s.ctx, "Big Ben"))

	s.session.Clear()
	st := s.session.State()
	s.Nil(st.Destination)
	s.Empty(st.Routes)
	s.Empty(st.SelectedRouteID)
	s.Nil(st.LastError)
	s.Equal(&london, st.Origin)

	s.Require().NoError(s.session.SetOrigin(s.ctx, model.Coordinate{Latitude: 1, Longitude: 1}))
	s.Equal(1, s.directions.callCount(), "no refetch without destination")
}

func (s *SessionSuite) TestSubscribe() {
	var states []State
	unsubscribe := s.session.Subscribe(func(st State) { states = append(states, st) })

	s.Require().NoError(s.session.SetOrigin(s.ctx, london))
	s.Require().NoError(s.session.SetDestinationByCoordinate(s.ctx, bigBen.Coordinate, ""))
	s.Require().NotEmpty(states)

	last := states[len(states)-1]
	s.Equal("route-1", last.SelectedRouteID)
	s.False(last.Loading)

	sawLoading := false
	for _, st := range states {
		sawLoading = sawLoading || st.Loading
	}
	s.True(sawLoading)

	unsubscribe()
	count := len(states)
	s.session.Clear()
	s.Len(states, count)
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	directions := &fakeDirections{blocking: true}
	session := New(&fakeGeocoder{dest: bigBen}, directions, nil)
	ctx := context.Background()

	require.NoError(t, session.SetOrigin(ctx, london))

	older := make(chan error, 1)
	go func() { older <- session.SetDestinationByCoordinate(ctx, bigBen.Coordinate, "") }()
	require.Eventually(t, func() bool { return directions.callCount() == 1 }, time.Second, time.Millisecond)

	newer := make(chan error, 1)
	go func() { newer <- session.SetOrigin(ctx, model.Coordinate{Latitude: 51.501, Longitude: -0.12}) }()
	require.Eventually(t, func() bool { return directions.callCount() == 2 }, time.Second, time.Millisecond)
	assert.True(t, session.State().Loading)

	fresh := []model.RouteOption{{ID: "route-1", DistanceMeters: 999, Path: []model.Coordinate{}}}
	stale := []model.RouteOption{
		{ID: "route-1", DistanceMeters: 111, Path: []model.Coordinate{}},
		{ID: "route-2", DistanceMeters: 222, Path: []model.Coordinate{}},
	}

	// the newer fetch completes first, then the older one arrives late
	directions.release(1, fresh)
	require.NoError(t, <-newer)
	directions.release(0, stale)
	require.NoError(t, <-older)

	st := session.State()
	assert.False(t, st.Loading)
	require.Len(t, st.Routes, 1)
	assert.Equal(t, 999.0, st.Routes[0].DistanceMeters)
	assert.Equal(t, "route-1", st.SelectedRouteID)
}

func TestClearDiscardsInFlightFetch(t *testing.T) {
	directions := &fakeDirections{blocking: true}
	session := New(&fakeGeocoder{dest: bigBen}, directions, nil)
	ctx := context.Background()

	require.NoError(t, session.SetOrigin(ctx, london))

	done := make(chan error, 1)
	go func() { done <- session.SetDestinationByCoordinate(ctx, bigBen.Coordinate, "") }()
	require.Eventually(t, func() bool { return directions.callCount() == 1 }, time.Second, time.Millisecond)

	session.Clear()
	directions.release(0, twoRoutes())
	require.NoError(t, <-done)

	st := session.State()
	assert.Empty(t, st.Routes)
	assert.Empty(t, st.SelectedRouteID)
	assert.False(t, st.Loading)
}
