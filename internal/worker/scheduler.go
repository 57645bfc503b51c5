package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/config"
	"saferoute/internal/service/session"
)

// StartAllWorkers initializes and starts all background workers.
// They stop when ctx is cancelled.
func StartAllWorkers(ctx context.Context, registry *session.Registry, idleTimeout time.Duration, log *zap.Logger) {
	log.Info("starting all workers")

	StartSessionSweeper(ctx, registry, idleTimeout, config.SessionSweepInterval, log)

	log.Info("all workers started")
}
