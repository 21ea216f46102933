package manager

import (
	"time"

	"sessiond/internal/engine"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxSessions   = 8
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry     []types.Model
	DefaultModel string
	// ContextWindow is the default KV cache size for new sessions.
	ContextWindow int
	// GPULayers is the default GPU offload layer count for new sessions.
	GPULayers int
	// BatchSize caps tokens per decode call; 0 selects the session default.
	BatchSize int
	// Threads for CPU evaluation; 0 lets the engine choose.
	Threads int
	// MaxSessions bounds concurrent live sessions.
	MaxSessions int
	// MaxQueueDepth and MaxWait bound per-session admission.
	MaxQueueDepth int
	MaxWait       time.Duration
	// DrainTimeout bounds how long DestroySession waits for in-flight work.
	DrainTimeout time.Duration
}

// NewWithConfig constructs a Manager from Config.
func NewWithConfig(eng engine.Engine, cfg Config) *Manager {
	m := &Manager{
		eng:           eng,
		registry:      cfg.Registry,
		sessions:      make(map[string]*entry),
		defaultModel:  cfg.DefaultModel,
		defaultWindow: cfg.ContextWindow,
		gpuLayers:     cfg.GPULayers,
		batchSize:     cfg.BatchSize,
		threads:       cfg.Threads,
		publisher:     noopPublisher{},
		startTime:     time.Now(),
	}
	if m.defaultWindow <= 0 {
		m.defaultWindow = session.DefaultContextWindow
	}
	if cfg.MaxSessions <= 0 {
		m.maxSessions = defaultMaxSessions
	} else {
		m.maxSessions = cfg.MaxSessions
	}
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	return m
}
