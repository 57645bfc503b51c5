package directions

import (
	"context"

	"go.uber.org/zap"

	"saferoute/internal/model"
)

// RouteCache stores route sets by origin and destination
type RouteCache interface {
	GetRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, bool, error)
	SetRoutes(ctx context.Context, origin, destination model.Coordinate, routes []model.RouteOption) error
}

// CachedBackend is a read-through cache in front of another backend.
// Cache failures never fail a request. The API key is checked before the
// cache is read, the same as every backend behind it.
type CachedBackend struct {
	inner  Backend
	cache  RouteCache
	apiKey string
	logger *zap.Logger
}

// NewCachedBackend wraps inner with cache
func NewCachedBackend(inner Backend, cache RouteCache, apiKey string, logger *zap.Logger) *CachedBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedBackend{inner: inner, cache: cache, apiKey: apiKey, logger: logger}
}

func (b *CachedBackend) Name() string {
	return "cached(" + b.inner.Name() + ")"
}

func (b *CachedBackend) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	if err := requireAPIKey(b.apiKey); err != nil {
		return nil, err
	}

	routes, ok, err := b.cache.GetRoutes(ctx, origin, destination)
	if err != nil {
		b.logger.Warn("route cache read failed", zap.Error(err))
	} else if ok && len(routes) > 0 {
		b.logger.Debug("route cache hit", zap.Int("routes", len(routes)))
		return routes, nil
	}

	routes, err = b.inner.WalkingRoutes(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	if err := b.cache.SetRoutes(ctx, origin, destination, routes); err != nil {
		b.logger.Warn("route cache write failed", zap.Error(err))
	}
	return routes, nil
}
