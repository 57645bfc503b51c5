package model

// Coordinate is a WGS84 position in degrees. Ranges are not validated.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Equal compares two coordinates by value.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

// Destination is the point the walker wants to reach.
type Destination struct {
	Coordinate
	Name string `json:"name,omitempty"`
}

// RouteOption is one walking alternative returned by a directions backend.
// Values are treated as immutable once built.
type RouteOption struct {
	ID              string       `json:"id"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds int64        `json:"duration_seconds"`
	Path            []Coordinate `json:"path"`
}

// Platform selects the directions and geocoding backends a session uses.
type Platform string

const (
	PlatformNative Platform = "native"
	PlatformWeb    Platform = "web"
)

// ParsePlatform maps free text to a Platform, defaulting to native.
func ParsePlatform(s string) Platform {
	if Platform(s) == PlatformWeb {
		return PlatformWeb
	}
	return PlatformNative
}
