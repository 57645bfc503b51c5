package util

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saferoute/internal/model"
)

func TestRoutesFeatureCollection(t *testing.T) {
	routes := []model.RouteOption{
		{ID: "route-1", DistanceMeters: 1200, DurationSeconds: 900, Path: referencePath},
		{ID: "route-2", DistanceMeters: 1500, DurationSeconds: 1100},
	}

	fc := RoutesFeatureCollection(routes, "route-1")
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	ls, ok := first.Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, ls, 3)
	assert.Equal(t, orb.Point{-120.2, 38.5}, ls[0])
	assert.Equal(t, true, first.Properties["selected"])
	assert.Equal(t, "1.2 km", first.Properties["distance_text"])
	assert.Equal(t, "15 min", first.Properties["duration_text"])
	assert.Equal(t, false, fc.Features[1].Properties["selected"])

	require.Len(t, fc.BBox, 4)
	assert.InDelta(t, -126.453, fc.BBox[0], 1e-9)
	assert.InDelta(t, 43.252, fc.BBox[3], 1e-9)
}

func TestRoutesBoundEmpty(t *testing.T) {
	assert.Nil(t, RoutesBound(nil))
	assert.Nil(t, RoutesBound([]model.RouteOption{{ID: "route-1"}}))
}
