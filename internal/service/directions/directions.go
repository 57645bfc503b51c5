package directions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/apperr"
	"saferoute/internal/model"
	"saferoute/internal/util"
)

const (
	DefaultRoutesURL     = "https://routes.googleapis.com"
	DefaultDirectionsURL = "https://maps.googleapis.com"
)

// Backend is one wire-protocol implementation of "get walking directions"
type Backend interface {
	Name() string
	WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error)
}

// Options configures the backends built by ForPlatform
type Options struct {
	APIKey        string
	RoutesURL     string
	DirectionsURL string
	HTTPClient    *http.Client
	Hosted        HostedRouter
	Cache         RouteCache
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RoutesURL == "" {
		o.RoutesURL = DefaultRoutesURL
	}
	if o.DirectionsURL == "" {
		o.DirectionsURL = DefaultDirectionsURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.RoutesURL = strings.TrimRight(o.RoutesURL, "/")
	o.DirectionsURL = strings.TrimRight(o.DirectionsURL, "/")
	return o
}

// ForPlatform returns the backend chain for a platform: the browser-hosted
// API exclusively on web, Routes v2 then the legacy Directions API elsewhere.
// A configured cache wraps the whole chain.
func ForPlatform(platform model.Platform, opts Options) Backend {
	opts = opts.withDefaults()

	var backend Backend
	if platform == model.PlatformWeb {
		backend = NewChain(opts.Logger, NewHostedBackend(opts.APIKey, opts.Hosted))
	} else {
		backend = NewChain(opts.Logger,
			NewRoutesV2Backend(opts.APIKey, opts.RoutesURL, opts.HTTPClient),
			NewLegacyBackend(opts.APIKey, opts.DirectionsURL, opts.HTTPClient),
		)
	}

	if opts.Cache != nil {
		backend = NewCachedBackend(backend, opts.Cache, opts.APIKey, opts.Logger)
	}
	return backend
}

// Chain tries its backends in order and returns the first success
type Chain struct {
	backends []Backend
	logger   *zap.Logger
}

// NewChain creates a fallthrough chain of backends
func NewChain(logger *zap.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, ">")
}

func (c *Chain) WalkingRoutes(ctx context.Context, origin, destination model.Coordinate) ([]model.RouteOption, error) {
	if len(c.backends) == 0 {
		return nil, apperr.New(apperr.KindUnknown, "no directions backend configured")
	}

	var lastErr error
	for i, backend := range c.backends {
		routes, err := backend.WalkingRoutes(ctx, origin, destination)
		if err == nil {
			return routes, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if i < len(c.backends)-1 {
			c.logger.Warn("directions backend failed, falling back",
				zap.String("backend", backend.Name()),
				zap.String("next", c.backends[i+1].Name()),
				zap.Error(err),
			)
		}
	}
	return nil, lastErr
}

func requireAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return apperr.New(apperr.KindConfigMissing, apperr.MissingAPIKeyWarning)
	}
	return nil
}

func buildRouteID(index int) string {
	return fmt.Sprintf("route-%d", index+1)
}

// leg is the distance and duration of one leg of a candidate, in meters and seconds
type leg struct {
	DistanceMeters  float64
	DurationSeconds int64
}

// buildRouteOption sums every leg of a candidate and decodes its polyline.
// A candidate without leg distances is measured along its path.
func buildRouteOption(index int, legs []leg, encodedPolyline string) model.RouteOption {
	option := model.RouteOption{
		ID:   buildRouteID(index),
		Path: util.DecodePolyline(encodedPolyline),
	}
	for _, l := range legs {
		option.DistanceMeters += l.DistanceMeters
		option.DurationSeconds += l.DurationSeconds
	}
	if option.Path == nil {
		option.Path = []model.Coordinate{}
	}
	if option.DistanceMeters == 0 {
		option.DistanceMeters = util.PathLengthMeters(option.Path)
	}
	return option
}
