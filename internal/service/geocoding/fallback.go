package geocoding

import (
	"context"

	"go.uber.org/zap"

	"saferoute/internal/model"
)

// Fallback tries primary and, on any failure, secondary
type Fallback struct {
	primary   Geocoder
	secondary Geocoder
	logger    *zap.Logger
}

func NewFallback(primary, secondary Geocoder, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Geocode(ctx context.Context, address string) (model.Destination, error) {
	dest, err := f.primary.Geocode(ctx, address)
	if err == nil {
		return dest, nil
	}
	if ctx.Err() != nil {
		return model.Destination{}, err
	}

	f.logger.Warn("hosted geocoding failed, falling back to REST", zap.Error(err))
	return f.secondary.Geocode(ctx, address)
}
