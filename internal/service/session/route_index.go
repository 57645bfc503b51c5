package session

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"saferoute/internal/model"
	"saferoute/internal/util"
)

const (
	metersPerDegree = 111320.0
	minRectSide     = 1e-9
)

// routeSegment is one leg of a route path, indexed by its bounding box
type routeSegment struct {
	routeIndex int
	routeID    string
	from, to   model.Coordinate
	bounds     rtreego.Rect
}

// Bounds implements the rtreego.Spatial interface
func (s *routeSegment) Bounds() rtreego.Rect {
	return s.bounds
}

// routeIndex answers "which route passes closest to this point"
type routeIndex struct {
	tree *rtreego.Rtree
}

func newRouteIndex(routes []model.RouteOption) *routeIndex {
	tree := rtreego.NewTree(2, 25, 50)
	for i, route := range routes {
		path := route.Path
		if len(path) == 1 {
			path = []model.Coordinate{path[0], path[0]}
		}
		for j := 1; j < len(path); j++ {
			seg := &routeSegment{routeIndex: i, routeID: route.ID, from: path[j-1], to: path[j]}
			rect, err := segmentRect(seg.from, seg.to)
			if err != nil {
				continue
			}
			seg.bounds = rect
			tree.Insert(seg)
		}
	}
	return &routeIndex{tree: tree}
}

func segmentRect(a, b model.Coordinate) (rtreego.Rect, error) {
	minLng, maxLng := math.Min(a.Longitude, b.Longitude), math.Max(a.Longitude, b.Longitude)
	minLat, maxLat := math.Min(a.Latitude, b.Latitude), math.Max(a.Latitude, b.Latitude)
	return rtreego.NewRect(
		rtreego.Point{minLng, minLat},
		[]float64{math.Max(maxLng-minLng, minRectSide), math.Max(maxLat-minLat, minRectSide)},
	)
}

// nearest returns the id of the route closest to p within toleranceMeters
func (idx *routeIndex) nearest(p model.Coordinate, toleranceMeters float64) (string, bool) {
	if idx == nil || toleranceMeters <= 0 {
		return "", false
	}

	latSpan := toleranceMeters / metersPerDegree
	lngSpan := toleranceMeters / (metersPerDegree * math.Max(math.Cos(p.Latitude*math.Pi/180), 1e-6))

	searchRect, err := rtreego.NewRect(
		rtreego.Point{p.Longitude - lngSpan, p.Latitude - latSpan},
		[]float64{2 * lngSpan, 2 * latSpan},
	)
	if err != nil {
		return "", false
	}

	bestID := ""
	bestIndex := math.MaxInt
	bestDistance := math.Inf(1)
	for _, item := range idx.tree.SearchIntersect(searchRect) {
		seg := item.(*routeSegment)
		d := util.DistanceToSegmentMeters(p, seg.from, seg.to)
		if d > toleranceMeters {
			continue
		}
		if d < bestDistance || (d == bestDistance && seg.routeIndex < bestIndex) {
			bestID, bestIndex, bestDistance = seg.routeID, seg.routeIndex, d
		}
	}
	return bestID, bestID != ""
}
