package session

import (
	"time"

	"go.uber.org/zap"

	"saferoute/internal/model"
	"saferoute/internal/service/hosted"
	"saferoute/internal/service/storage"
	"saferoute/internal/util"
)

// Factory builds the collaborators of a new session. bridge is nil for
// platforms that do not use browser-hosted maps APIs.
type Factory func(platform model.Platform, bridge *hosted.Bridge) (Geocoder, Directions)

// Entry is a registered session
type Entry struct {
	ID        string
	Platform  model.Platform
	Session   *RouteSession
	Bridge    *hosted.Bridge
	CreatedAt time.Time
}

// Registry owns the live sessions of the service
type Registry struct {
	store         storage.Storage[string, *Entry]
	factory       Factory
	bridgeTimeout time.Duration
	logger        *zap.Logger
}

// NewRegistry creates a registry on top of store
func NewRegistry(store storage.Storage[string, *Entry], factory Factory, bridgeTimeout time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:         store,
		factory:       factory,
		bridgeTimeout: bridgeTimeout,
		logger:        logger,
	}
}

// Create registers a new session for platform
func (r *Registry) Create(platform model.Platform) *Entry {
	var bridge *hosted.Bridge
	if platform == model.PlatformWeb {
		bridge = hosted.NewBridge(r.bridgeTimeout)
	}

	id := util.ShortUUID()
	geocoder, directions := r.factory(platform, bridge)
	entry := &Entry{
		ID:        id,
		Platform:  platform,
		Session:   New(geocoder, directions, r.logger.With(zap.String("session", id))),
		Bridge:    bridge,
		CreatedAt: time.Now().UTC(),
	}
	r.store.Set(id, entry)

	r.logger.Info("session created", zap.String("session", id), zap.String("platform", string(platform)))
	return entry
}

// close releases what the session holds outside the registry
func (e *Entry) close() {
	if e.Bridge != nil {
		e.Bridge.Close()
	}
}

// Get returns a session and marks it as recently used
func (r *Registry) Get(id string) (*Entry, bool) {
	entry, ok := r.store.Get(id)
	if ok {
		r.store.Touch(id)
	}
	return entry, ok
}

// Delete removes a session and fails its pending browser requests
func (r *Registry) Delete(id string) bool {
	entry, ok := r.store.Get(id)
	if !ok || !r.store.Delete(id) {
		return false
	}
	entry.close()
	return true
}

// EvictIdle removes sessions unused for longer than maxIdle and returns how many were removed
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	removed := r.store.DeleteIdle(maxIdle)
	for _, entry := range removed {
		entry.close()
		r.logger.Info("session evicted", zap.String("session", entry.ID))
	}
	return len(removed)
}

// CloseAll removes every session. Used on shutdown.
func (r *Registry) CloseAll() int {
	closed := 0
	r.store.ForEach(func(id string, entry *Entry) bool {
		if r.store.Delete(id) {
			entry.close()
			closed++
		}
		return true
	})
	return closed
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	return r.store.Count()
}
