package manager

import (
	"time"

	"sessiond/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		MaxSessions:    m.maxSessions,
		CreatedTotal:   m.createdTotal,
		DestroyedTotal: m.destroyedTotal,
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	resp.Sessions = make([]types.SessionStatus, 0, len(m.sessions))
	for _, e := range m.sessions {
		resp.Sessions = append(resp.Sessions, m.statusLocked(e))
	}
	return resp
}
