package cache

import (
	"log/slog"
	"time"
)

// Cleaner is any cache the Manager can sweep for expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on a timer, so entries that age out
// without being read still get released.
type Manager struct {
	registered []Cleaner
	stop       chan struct{}
	done       chan struct{}
}

// NewManager builds an empty manager. Register caches, then StartCleanup.
func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep set. Not safe to call after
// StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.registered = append(m.registered, cache)
}

// StartCleanup launches the sweep goroutine.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.sweepLoop(interval)
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, cache := range m.registered {
				cleaned += cache.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cleaned expired cache entries", "count", cleaned)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the sweep goroutine and waits for it to exit.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
