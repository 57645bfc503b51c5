package util

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"saferoute/internal/model"
)

// PathToLineString converts a path to an orb line string in [lng, lat] order
func PathToLineString(path []model.Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, c := range path {
		ls = append(ls, orb.Point{c.Longitude, c.Latitude})
	}
	return ls
}

// RoutesBound returns the box covering every route path, or nil when all paths are empty
func RoutesBound(routes []model.RouteOption) *orb.Bound {
	var bound *orb.Bound
	for _, route := range routes {
		if len(route.Path) == 0 {
			continue
		}
		b := PathToLineString(route.Path).Bound()
		if bound == nil {
			bound = &b
			continue
		}
		union := bound.Union(b)
		bound = &union
	}
	return bound
}

// RoutesFeatureCollection exports a route set as GeoJSON line features
func RoutesFeatureCollection(routes []model.RouteOption, selectedRouteID string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, route := range routes {
		f := geojson.NewFeature(PathToLineString(route.Path))
		f.ID = route.ID
		f.Properties["id"] = route.ID
		f.Properties["distance_meters"] = route.DistanceMeters
		f.Properties["duration_seconds"] = route.DurationSeconds
		f.Properties["distance_text"] = FormatDistance(route.DistanceMeters)
		f.Properties["duration_text"] = FormatDuration(route.DurationSeconds)
		f.Properties["selected"] = route.ID == selectedRouteID
		fc.Append(f)
	}

	if bound := RoutesBound(routes); bound != nil {
		fc.BBox = geojson.NewBBox(*bound)
	}
	return fc
}
