package cache

import (
	"context"
	"time"

	applog "txview/internal/log"
)

// Store is a context-aware snapshot store keyed by string. Implementations
// may live in process or behind the network.
type Store[T any] interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value, replacing any previous one.
	Set(ctx context.Context, key string, value T) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Cleaner is implemented by caches that need periodic expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for registered in-process caches.
type Manager struct {
	caches      []Cleaner
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// NewManager creates a cache manager. A nil logger disables sweep logging.
func NewManager(logger *applog.Logger) *Manager {
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins sweeping every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 && m.logger != nil {
				m.logger.Debug("Expired cache entries removed", "removed", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Sweep runs one cleanup pass over every registered cache and returns the
// number of removed entries.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine and waits for it to exit.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
}
