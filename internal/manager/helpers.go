package manager

import (
	"sessiond/internal/engine"
	"sessiond/pkg/types"
)

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// lookup returns the live entry for a session id, or nil.
func (m *Manager) lookup(id string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// samplingFromParams maps API sampling parameters onto the engine config.
// Zero values stay zero; the session normalizes them to chain defaults.
func samplingFromParams(p types.SamplingParams) engine.SamplerConfig {
	return engine.SamplerConfig{
		Temperature:   float32(p.Temperature),
		TopK:          p.TopK,
		TopP:          float32(p.TopP),
		RepeatPenalty: float32(p.RepeatPenalty),
		RepeatLastN:   p.RepeatLastN,
		Seed:          uint32(p.Seed),
		Greedy:        p.Greedy,
	}
}
