package manager

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessiond/internal/engine"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// CreateSession loads a model into a fresh session and returns its status.
// A session whose load failed is still registered (loaded=false) so the
// caller can read its last error, unless the request asked to discard it.
func (m *Manager) CreateSession(ctx context.Context, req types.CreateSessionRequest) (types.SessionStatus, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = m.defaultModel
		if modelID == "" {
			return types.SessionStatus{}, modelNotFoundError{id: "(unspecified)"}
		}
	}
	mdl, ok := m.getModelByID(modelID)
	if !ok || strings.TrimSpace(mdl.Path) == "" {
		return types.SessionStatus{}, ErrModelNotFound(modelID)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return types.SessionStatus{}, ErrDependencyUnavailable("manager is shut down")
	}
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return types.SessionStatus{}, sessionLimitError{max: m.maxSessions}
	}
	m.mu.Unlock()

	window := req.ContextWindow
	if window <= 0 {
		window = m.defaultWindow
	}
	gpuLayers := req.GPULayers
	if gpuLayers <= 0 {
		gpuLayers = m.gpuLayers
	}

	// Model load is expensive; keep it outside the lock.
	sess := session.New(m.eng, session.Config{
		ModelPath:     mdl.Path,
		ContextWindow: window,
		GPULayers:     gpuLayers,
		BatchSize:     m.batchSize,
		Threads:       m.threads,
		Sampling:      samplingFromParams(req.Sampling),
	})

	if !sess.Loaded() && req.DiscardOnError {
		msg := sess.LastError()
		sess.Close()
		if !engine.Built() {
			return types.SessionStatus{}, ErrDependencyUnavailable(msg)
		}
		return types.SessionStatus{}, ErrLoadFailed(msg)
	}

	e := &entry{
		id:        uuid.NewString(),
		modelID:   modelID,
		sess:      sess,
		createdAt: time.Now(),
		lastUsed:  time.Now(),
		genCh:     make(chan struct{}, 1),
		queueCh:   make(chan struct{}, m.maxQueueDepth),
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	m.createdTotal++
	st := m.statusLocked(e)
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "session_create", SessionID: e.id, Fields: map[string]any{
		"model":  modelID,
		"loaded": sess.Loaded(),
	}})
	return st, nil
}

// GetSession returns the status of one session.
func (m *Manager) GetSession(id string) (types.SessionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.sessions[id]
	if e == nil {
		return types.SessionStatus{}, sessionNotFoundError{id: id}
	}
	return m.statusLocked(e), nil
}

// ListSessions returns the status of all live sessions.
func (m *Manager) ListSessions() []types.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.SessionStatus, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, m.statusLocked(e))
	}
	return out
}

// DestroySession drains in-flight work and releases the session's native
// handles. The handle is invalid afterwards and never reused.
func (m *Manager) DestroySession(ctx context.Context, id string) error {
	return m.destroy(id)
}

func (m *Manager) destroy(id string) error {
	m.mu.Lock()
	e := m.sessions[id]
	if e == nil {
		m.mu.Unlock()
		return sessionNotFoundError{id: id}
	}
	if e.draining {
		// Another destroy is already tearing this session down.
		m.mu.Unlock()
		return sessionNotFoundError{id: id}
	}
	e.draining = true
	m.mu.Unlock()

	// Wait for queued and in-flight operations to finish; new admissions
	// are rejected by the draining flag.
	deadline := time.Now().Add(m.drainTimeout)
	for {
		if len(e.genCh) == 0 && len(e.queueCh) == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publisher.Publish(Event{Name: "destroy_timeout", SessionID: id, Fields: map[string]any{
				"inflight": len(e.genCh), "queue": len(e.queueCh),
			}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.sess.Close()

	m.mu.Lock()
	delete(m.sessions, id)
	m.destroyedTotal++
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "session_destroy", SessionID: id, Fields: map[string]any{}})
	return nil
}

// statusLocked builds a status snapshot; callers hold at least m.mu.RLock.
func (m *Manager) statusLocked(e *entry) types.SessionStatus {
	return types.SessionStatus{
		ID:              e.id,
		ModelID:         e.modelID,
		Loaded:          e.sess.Loaded(),
		SeqLen:          e.sess.SeqLen(),
		ContextWindow:   e.sess.ContextWindow(),
		SystemPromptSet: e.sess.SystemPromptSet(),
		LastError:       e.sess.LastError(),
		CreatedUnix:     e.createdAt.Unix(),
		LastUsedUnix:    e.lastUsed.Unix(),
	}
}
