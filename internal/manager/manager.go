// Package manager owns the table of live generation sessions.
//
// Sessions themselves carry no locking, so the manager is the serializing
// caller: every session operation goes through a per-session FIFO queue
// with a single in-flight slot. Handles are opaque uuids and are never
// reused.
package manager

import (
	"sync"
	"time"

	"sessiond/internal/engine"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

type Manager struct {
	mu       sync.RWMutex
	eng      engine.Engine
	registry []types.Model
	sessions map[string]*entry

	defaultModel  string
	defaultWindow int
	gpuLayers     int
	batchSize     int
	threads       int

	maxSessions   int
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	publisher EventPublisher
	startTime time.Time

	createdTotal   uint64
	destroyedTotal uint64
	closed         bool
}

// entry pairs a session with its handle and queueing primitives.
type entry struct {
	id        string
	modelID   string
	sess      *session.Session
	createdAt time.Time
	lastUsed  time.Time
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight operation
	queueCh chan struct{} // buffered: queue slots
	// draining rejects new admissions while the session is torn down.
	draining bool
}

// New constructs a Manager with package defaults.
func New(eng engine.Engine, reg []types.Model, defaultModel string) *Manager {
	return NewWithConfig(eng, Config{Registry: reg, DefaultModel: defaultModel})
}

// ListModels returns the registry contents.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// Ready reports whether the manager accepts requests.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

// SetPublisher installs an event publisher (tests, ops tooling).
func (m *Manager) SetPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// Close destroys all sessions and marks the manager unavailable.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.destroy(id)
	}
	return nil
}
