package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/model"
	"saferoute/internal/util"
)

// cachedRoute is the stored form of a route. Paths come from 1e-5 polylines,
// so storing them encoded is lossless.
type cachedRoute struct {
	ID              string  `json:"id"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int64   `json:"duration_seconds"`
	Polyline        string  `json:"polyline"`
}

// RouteCache keeps recent route sets keyed by rounded origin and destination.
// Entries expire after ttl so traffic-dependent durations do not go stale.
type RouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRouteCache(client *redis.Client, ttl time.Duration) *RouteCache {
	return &RouteCache{client: client, ttl: ttl}
}

// RouteKey builds the cache key. Coordinates are rounded to polyline precision
// so GPS jitter below a meter reuses the same entry.
func RouteKey(origin, destination model.Coordinate) string {
	return fmt.Sprintf("routes:%.5f,%.5f:%.5f,%.5f",
		origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)
}

func (c *RouteCache) GetRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, bool, error) {
	raw, err := c.client.Get(ctx, RouteKey(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	routes, err := decodeRoutes(raw)
	if err != nil {
		return nil, false, err
	}
	return routes, true, nil
}

func (c *RouteCache) SetRoutes(ctx context.Context, origin, destination model.Coordinate, routes []model.RouteOption) error {
	if len(routes) == 0 {
		return nil
	}
	raw, err := encodeRoutes(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, RouteKey(origin, destination), raw, c.ttl).Err()
}

func encodeRoutes(routes []model.RouteOption) ([]byte, error) {
	stored := make([]cachedRoute, len(routes))
	for i, r := range routes {
		stored[i] = cachedRoute{
			ID:              r.ID,
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
			Polyline:        util.EncodePolyline(r.Path),
		}
	}
	return json.Marshal(stored)
}

func decodeRoutes(raw []byte) ([]model.RouteOption, error) {
	var stored []cachedRoute
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode cached routes: %w", err)
	}

	routes := make([]model.RouteOption, len(stored))
	for i, r := range stored {
		routes[i] = model.RouteOption{
			ID:              r.ID,
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
			Path:            util.DecodePolyline(r.Polyline),
		}
		if routes[i].Path == nil {
			routes[i].Path = []model.Coordinate{}
		}
	}
	return routes, nil
}
