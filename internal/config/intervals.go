package config

import "time"

// Worker intervals
const (
	// SessionSweepInterval defines how often idle sessions are evicted
	SessionSweepInterval = time.Minute

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 10 * time.Second
)
