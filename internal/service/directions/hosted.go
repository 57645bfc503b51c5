package directions

import (
	"context"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
)

// HostedLeg mirrors a leg returned by the browser Maps JavaScript API
type HostedLeg struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// HostedRoute mirrors one DirectionsRoute returned by the browser Maps JavaScript API
type HostedRoute struct {
	Legs             []HostedLeg `json:"legs"`
	OverviewPolyline string      `json:"overview_polyline"`
}

// HostedRouter computes walking routes with alternatives in a browser-hosted maps SDK
type HostedRouter interface {
	HostedRoutes(ctx context.Context, origin, destination model.Coordinate) ([]HostedRoute, error)
}

// HostedBackend is the web-only backend delegating to a browser-hosted router
type HostedBackend struct {
	apiKey string
	router HostedRouter
}

// NewHostedBackend creates the web backend
func NewHostedBackend(apiKey string, router HostedRouter) *HostedBackend {
	return &HostedBackend{apiKey: apiKey, router: router}
}

func (b *HostedBackend) Name() string {
	return "hosted-js"
}

func (b *HostedBackend) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	if err := requireAPIKey(b.apiKey); err != nil {
		return nil, err
	}
	if b.router == nil {
		return nil, apperr.New(apperr.KindNetwork, "browser maps API is not ready")
	}

	routes, err := b.router.HostedRoutes(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	return MapHostedRoutes(routes)
}

// MapHostedRoutes converts browser-computed routes into route options
func MapHostedRoutes(routes []HostedRoute) ([]model.RouteOption, error) {
	if len(routes) == 0 {
		return nil, apperr.New(apperr.KindRouteNotFound, "")
	}

	options := make([]model.RouteOption, len(routes))
	for i, route := range routes {
		legs := make([]leg, len(route.Legs))
		for j, l := range route.Legs {
			legs[j] = leg{DistanceMeters: l.DistanceMeters, DurationSeconds: l.DurationSeconds}
		}
		options[i] = buildRouteOption(i, legs, route.OverviewPolyline)
	}
	return options, nil
}
