package util

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"saferoute/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used for all distance conversions
const EarthRadiusMeters = 6371000.0

func toPoint(c model.Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Latitude, c.Longitude))
}

func angleToMeters(angle s1.Angle) float64 {
	return angle.Radians() * EarthRadiusMeters
}

// DistanceMeters returns the great-circle distance between two coordinates in meters
func DistanceMeters(a, b model.Coordinate) float64 {
	angle := s1.Angle(s2.ChordAngleBetweenPoints(toPoint(a), toPoint(b)).Angle())
	return angleToMeters(angle)
}

// PathLengthMeters sums the great-circle length of consecutive path segments
func PathLengthMeters(path []model.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += DistanceMeters(path[i-1], path[i])
	}
	return total
}

// DistanceToSegmentMeters returns the distance from p to the segment a-b
func DistanceToSegmentMeters(p, a, b model.Coordinate) float64 {
	if a.Equal(b) {
		return DistanceMeters(p, a)
	}
	return angleToMeters(s2.DistanceFromSegment(toPoint(p), toPoint(a), toPoint(b)))
}
