package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"saferoute/internal/model"
)

func TestDistanceMeters(t *testing.T) {
	london := model.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	paris := model.Coordinate{Latitude: 48.8566, Longitude: 2.3522}

	assert.InDelta(t, 343_500, DistanceMeters(london, paris), 1_500)
	assert.InDelta(t, 0, DistanceMeters(london, london), 1e-9)
}

func TestPathLengthMeters(t *testing.T) {
	assert.Equal(t, 0.0, PathLengthMeters(nil))
	assert.Equal(t, 0.0, PathLengthMeters(referencePath[:1]))

	total := PathLengthMeters(referencePath)
	expected := DistanceMeters(referencePath[0], referencePath[1]) +
		DistanceMeters(referencePath[1], referencePath[2])
	assert.InDelta(t, expected, total, 1e-6)
}

func TestDistanceToSegmentMeters(t *testing.T) {
	a := model.Coordinate{Latitude: 51.5, Longitude: -0.13}
	b := model.Coordinate{Latitude: 51.5, Longitude: -0.11}

	onSegment := model.Coordinate{Latitude: 51.5, Longitude: -0.12}
	assert.InDelta(t, 0, DistanceToSegmentMeters(onSegment, a, b), 1)

	north := model.Coordinate{Latitude: 51.501, Longitude: -0.12}
	assert.InDelta(t, 111, DistanceToSegmentMeters(north, a, b), 2)

	assert.InDelta(t, DistanceMeters(north, a), DistanceToSegmentMeters(north, a, a), 1e-9)
}
