package geocoding

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"saferoute/internal/model"
)

// Store persists successful address lookups
type Store interface {
	LookupGeocode(ctx context.Context, address string) (model.Destination, bool, error)
	SaveGeocode(ctx context.Context, address string, destination model.Destination) error
}

// NormalizeAddress lower-cases, trims and collapses whitespace so equivalent
// queries share a cache entry
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Cached is a read-through cache in front of another geocoder.
// Store failures are logged and never fail the lookup.
type Cached struct {
	inner  Geocoder
	store  Store
	logger *zap.Logger
}

func NewCached(inner Geocoder, store Store, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, store: store, logger: logger}
}

func (c *Cached) Geocode(ctx context.Context, address string) (model.Destination, error) {
	key := NormalizeAddress(address)
	if key == "" {
		return c.inner.Geocode(ctx, address)
	}

	dest, ok, err := c.store.LookupGeocode(ctx, key)
	if err != nil {
		c.logger.Warn("geocode cache read failed", zap.Error(err))
	} else if ok {
		return dest, nil
	}

	dest, err = c.inner.Geocode(ctx, address)
	if err != nil {
		return model.Destination{}, err
	}

	if err := c.store.SaveGeocode(ctx, key, dest); err != nil {
		c.logger.Warn("geocode cache write failed", zap.Error(err))
	}
	return dest, nil
}
