package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strconv"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

const (
	computeRoutesPath = "/directions/v2:computeRoutes"
	routesFieldMask   = "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline,routes.legs.distanceMeters,routes.legs.duration"
)

type latLngJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypointJSON struct {
	Location struct {
		LatLng latLngJSON `json:"latLng"`
	} `json:"location"`
}

func newWaypoint(c model.Coordinate) waypointJSON {
	var w waypointJSON
	w.Location.LatLng = latLngJSON{Latitude: c.Latitude, Longitude: c.Longitude}
	return w
}

type computeRoutesRequest struct {
	Origin                   waypointJSON `json:"origin"`
	Destination              waypointJSON `json:"destination"`
	TravelMode               string       `json:"travelMode"`
	ComputeAlternativeRoutes bool         `json:"computeAlternativeRoutes"`
	PolylineEncoding         string       `json:"polylineEncoding"`
}

type computeRoutesLeg struct {
	DistanceMeters float64 `json:"distanceMeters"`
	Duration       string  `json:"duration"`
}

type computeRoutesRoute struct {
	DistanceMeters float64 `json:"distanceMeters"`
	Duration       string  `json:"duration"`
	Polyline       struct {
		EncodedPolyline string `json:"encodedPolyline"`
	} `json:"polyline"`
	Legs []computeRoutesLeg `json:"legs"`
}

type computeRoutesResponse struct {
	Routes []computeRoutesRoute `json:"routes"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// RoutesV2Backend talks to the Routes API computeRoutes endpoint
type RoutesV2Backend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewRoutesV2Backend creates a computeRoutes backend rooted at baseURL
func NewRoutesV2Backend(apiKey, baseURL string, client *http.Client) *RoutesV2Backend {
	return &RoutesV2Backend{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (b *RoutesV2Backend) Name() string {
	return "routes-v2"
}

func (b *RoutesV2Backend) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	if err := requireAPIKey(b.apiKey); err != nil {
		return nil, err
	}

	body, err := json.Marshal(computeRoutesRequest{
		Origin:                   newWaypoint(origin),
		Destination:              newWaypoint(destination),
		TravelMode:               "WALK",
		ComputeAlternativeRoutes: true,
		PolylineEncoding:         "ENCODED_POLYLINE",
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+computeRoutesPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", b.apiKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)

	var data computeRoutesResponse
	if err := doJSON(b.client, req, &data); err != nil {
		return nil, err
	}

	if len(data.Routes) == 0 {
		if data.Error != nil && data.Error.Message != "" {
			return nil, apperr.New(apperr.KindRouteNotFound, data.Error.Message)
		}
		return nil, apperr.New(apperr.KindRouteNotFound, "")
	}

	options := make([]model.RouteOption, len(data.Routes))
	for i, route := range data.Routes {
		options[i] = buildRouteOption(i, computeRoutesLegs(route), route.Polyline.EncodedPolyline)
	}
	return options, nil
}

// computeRoutesLegs falls back to the route totals when legs were not returned
func computeRoutesLegs(route computeRoutesRoute) []leg {
	if len(route.Legs) == 0 {
		return []leg{{
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: ParseDurationSeconds(route.Duration),
		}}
	}

	legs := make([]leg, len(route.Legs))
	for i, l := range route.Legs {
		legs[i] = leg{
			DistanceMeters:  l.DistanceMeters,
			DurationSeconds: ParseDurationSeconds(l.Duration),
		}
	}
	return legs
}

var durationPattern = regexp.MustCompile(`([0-9.]+)s`)

// ParseDurationSeconds parses protobuf-style durations such as "1234s" or
// "12.6s", rounding to the nearest second. Missing or malformed input is 0.
func ParseDurationSeconds(duration string) int64 {
	match := durationPattern.FindStringSubmatch(duration)
	if match == nil {
		return 0
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds))
}
