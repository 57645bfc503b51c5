package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saferoute/internal/api"
	routes "saferoute/internal/api/handlers"
	"saferoute/internal/apperr"
	"saferoute/internal/config"
	"saferoute/internal/logger"
	"saferoute/internal/model"
	"saferoute/internal/postgres"
	"saferoute/internal/redis"
	"saferoute/internal/service/directions"
	"saferoute/internal/service/geocoding"
	"saferoute/internal/service/hosted"
	"saferoute/internal/service/session"
	"saferoute/internal/service/storage"
	"saferoute/internal/worker"
)

// caches holds the optional persistence layers; nil fields are disabled
type caches struct {
	routes   directions.RouteCache
	geocodes geocoding.Store
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.Env, "saferoute")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting saferoute",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("default_platform", cfg.DefaultPlatform),
	)
	if !cfg.HasMapsKey() {
		log.Warn(apperr.MissingAPIKeyWarning)
	}

	c := initializeDatabaseAndCache(cfg, log)
	defer closeConnections(log)

	registry := session.NewRegistry(
		storage.NewMemoryStorage[string, *session.Entry](),
		newSessionFactory(cfg, c, log),
		cfg.HostedTimeout,
		log.Named("session"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.StartAllWorkers(ctx, registry, cfg.SessionIdleTimeout, log.Named("worker"))
	if cfg.Env == "development" {
		reportMemoryStats(ctx, registry, log)
	}

	runAPIServer(cfg, registry, c, log)
}

func initializeDatabaseAndCache(cfg config.Config, log *zap.Logger) caches {
	var c caches

	// Initialize PostgreSQL
	if cfg.DBUrl != "" {
		db, err := postgres.Init(cfg.DBUrl, log)
		if err != nil {
			log.Warn("geocode cache disabled", zap.Error(err))
		} else {
			c.geocodes = postgres.NewGeocodeStore(db)
		}
	}

	// Initialize Redis
	if cfg.RedisUrl != "" {
		client, err := redis.Init(cfg.RedisUrl, log)
		if err != nil {
			log.Warn("route cache disabled", zap.Error(err))
		} else {
			c.routes = redis.NewRouteCache(client, cfg.RouteCacheTTL)
		}
	}

	return c
}

// newSessionFactory builds the geocoder and directions chain for each new session
func newSessionFactory(cfg config.Config, c caches, log *zap.Logger) session.Factory {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	return func(platform model.Platform, bridge *hosted.Bridge) (session.Geocoder, session.Directions) {
		dirOpts := directions.Options{
			APIKey:        cfg.GoogleMapsKey,
			RoutesURL:     cfg.RoutesAPIURL,
			DirectionsURL: cfg.DirectionsAPIURL,
			HTTPClient:    httpClient,
			Cache:         c.routes,
			Logger:        log.Named("directions"),
		}
		geoOpts := geocoding.Options{
			APIKey:       cfg.GoogleMapsKey,
			GeocodingURL: cfg.GeocodingAPIURL,
			HTTPClient:   httpClient,
			Store:        c.geocodes,
			Logger:       log.Named("geocoding"),
		}
		// a nil *Bridge must not become a non-nil interface
		if bridge != nil {
			dirOpts.Hosted = bridge
			geoOpts.Hosted = bridge
		}

		return geocoding.ForPlatform(platform, geoOpts), directions.ForPlatform(platform, dirOpts)
	}
}

func runAPIServer(cfg config.Config, registry *session.Registry, c caches, log *zap.Logger) {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	api.SetupRouter(r, api.Deps{
		Registry:        registry,
		DefaultPlatform: model.ParsePlatform(cfg.DefaultPlatform),
		Info: routes.ServiceInfo{
			Env:             cfg.Env,
			DefaultPlatform: cfg.DefaultPlatform,
			HasMapsKey:      cfg.HasMapsKey(),
			RouteCache:      c.routes != nil,
			GeocodeCache:    c.geocodes != nil,
		},
		Logger: log,
	})

	// WriteTimeout stays unset: web sessions hold a request open while the
	// browser answers a hosted request, and websockets are long-lived
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down saferoute...")

	// pending browser requests fail before Shutdown waits on their handlers
	log.Info("sessions closed", zap.Int("count", registry.CloseAll()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("saferoute stopped")
}

func reportMemoryStats(ctx context.Context, registry *session.Registry, log *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)
				log.Debug("memory stats",
					zap.Uint64("alloc_mib", m.Alloc/1024/1024),
					zap.Uint64("sys_mib", m.Sys/1024/1024),
					zap.Uint32("num_gc", m.NumGC),
					zap.Int("sessions", registry.Count()),
				)
			}
		}
	}()
}

func closeConnections(log *zap.Logger) {
	if err := postgres.Close(); err != nil {
		log.Error("error closing postgres connection", zap.Error(err))
	}

	if err := redis.Close(log); err != nil {
		log.Error("error closing redis connection", zap.Error(err))
	}
}
