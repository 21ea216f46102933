package manager

import (
	"context"
	"time"
)

// beginSessionOp reserves a queue slot and then the single in-flight slot
// for the session, serializing all operations on it (the session itself
// has no internal locking). Returns a release func to be deferred.
func (m *Manager) beginSessionOp(ctx context.Context, id string) (*entry, func(), error) {
	m.mu.RLock()
	e := m.sessions[id]
	draining := e != nil && e.draining
	m.mu.RUnlock()
	if e == nil || draining {
		return nil, func() {}, sessionNotFoundError{id: id}
	}

	// Try to reserve a queue slot with timeout
	select {
	case e.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-time.After(m.maxWait):
		return nil, func() {}, tooBusyError{sessionID: id}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-e.queueCh
		}
	}()
	select {
	case e.genCh <- struct{}{}:
		acquired = true
		m.mu.Lock()
		e.lastUsed = time.Now()
		m.mu.Unlock()
		return e, func() { <-e.genCh; <-e.queueCh }, nil
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-time.After(m.maxWait):
		return nil, func() {}, tooBusyError{sessionID: id}
	}
}
