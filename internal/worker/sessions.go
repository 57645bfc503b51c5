package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/service/session"
)

// StartSessionSweeper evicts sessions idle for longer than idleTimeout every interval
func StartSessionSweeper(ctx context.Context, registry *session.Registry, idleTimeout, interval time.Duration, log *zap.Logger) {
	if idleTimeout <= 0 {
		log.Info("session sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := registry.EvictIdle(idleTimeout); n > 0 {
					log.Info("evicted idle sessions", zap.Int("evicted", n), zap.Int("live", registry.Count()))
				}
			}
		}
	}()

	log.Info("session sweeper started",
		zap.Duration("interval", interval),
		zap.Duration("idle_timeout", idleTimeout),
	)
}
