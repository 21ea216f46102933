package types

// SamplingParams configures the token-selection chain for a session.
// Stages are applied in a fixed order: repetition penalties, temperature,
// top-k, top-p, final draw. Zero values fall back to server defaults.
type SamplingParams struct {
	// Sampling temperature (higher = more random). <=0 selects the default.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Repetition penalty over the lookback window (1.0 disables).
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Number of recent tokens the repetition penalty considers.
	// example: 64
	RepeatLastN int `json:"repeat_last_n,omitempty" example:"64"`
	// Random seed for the final draw; 0 or omitted lets the server choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// Greedy collapses the chain to a single argmax stage.
	// example: false
	Greedy bool `json:"greedy,omitempty" example:"false"`
}

// CreateSessionRequest is the payload for POST /sessions.
type CreateSessionRequest struct {
	// Model identifier from the registry. If empty, the server default is used.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
	// Context window (KV cache size) in tokens. 0 selects the server default.
	// example: 2048
	ContextWindow int `json:"context_window,omitempty" example:"2048"`
	// Number of model layers to offload to the GPU.
	// example: 0
	GPULayers int `json:"gpu_layers,omitempty" example:"0"`
	// Sampling configuration for this session.
	Sampling SamplingParams `json:"sampling,omitempty"`
	// If true, a session whose model failed to load is destroyed immediately
	// and the create call fails instead of returning loaded=false.
	// example: false
	DiscardOnError bool `json:"discard_on_error,omitempty" example:"false"`
}

// SessionStatus describes one live session.
type SessionStatus struct {
	// Opaque session handle. Never reused.
	// example: 0b8e6f2a-1c3d-4e5f-9a7b-8c9d0e1f2a3b
	ID string `json:"id" example:"0b8e6f2a-1c3d-4e5f-9a7b-8c9d0e1f2a3b"`
	// Model id the session was created for.
	// example: tinyllama-q4
	ModelID string `json:"model_id" example:"tinyllama-q4"`
	// Whether the model/context/sampler triple loaded successfully.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Length of the tracked token sequence (next KV-cache position).
	// example: 17
	SeqLen int `json:"seq_len" example:"17"`
	// Context window the session was created with.
	// example: 2048
	ContextWindow int `json:"context_window" example:"2048"`
	// Whether a system prompt is currently set.
	// example: true
	SystemPromptSet bool `json:"system_prompt_set" example:"true"`
	// Last error recorded by the session, if any.
	LastError string `json:"last_error,omitempty"`
	// Creation time (unix seconds).
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
	// Last time this session served a request (unix seconds).
	// example: 1700000000
	LastUsedUnix int64 `json:"last_used_unix" example:"1700000000"`
}

// SystemPromptRequest is the payload for POST /sessions/{id}/system.
type SystemPromptRequest struct {
	// System prompt text. Setting it starts a fresh turn.
	// example: You are a helpful assistant.
	Text string `json:"text" example:"You are a helpful assistant."`
}

// PromptRequest is the payload for POST /sessions/{id}/prompt.
type PromptRequest struct {
	// User prompt text to prefill.
	// example: What is 2+2?
	Text string `json:"text" example:"What is 2+2?"`
	// Hint for the number of tokens the caller intends to generate next.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
}

// PromptResponse reports the outcome of a prefill.
type PromptResponse struct {
	// Number of tokens in the tracked sequence after the prefill.
	// example: 17
	PromptTokens int `json:"prompt_tokens" example:"17"`
}

// GenerateRequest is the payload for POST /sessions/{id}/generate.
type GenerateRequest struct {
	// Maximum number of new tokens to generate. 0 selects the server default.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
}

// TokenResponse is returned by POST /sessions/{id}/next.
type TokenResponse struct {
	// Rendered token text. May be empty while a partial UTF-8 rune is buffered.
	// example: " four"
	Token string `json:"token"`
	// True when the model signalled end of generation; Token is empty then.
	// example: false
	Done bool `json:"done"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// SessionsResponse wraps the list of sessions returned by GET /sessions.
type SessionsResponse struct {
	// Live sessions.
	Sessions []SessionStatus `json:"sessions"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Live sessions.
	Sessions []SessionStatus `json:"sessions"`
	// Maximum number of concurrent sessions allowed.
	// example: 8
	MaxSessions int `json:"max_sessions" example:"8"`
	// Total sessions created since start.
	// example: 12
	CreatedTotal uint64 `json:"created_total" example:"12"`
	// Total sessions destroyed since start.
	// example: 4
	DestroyedTotal uint64 `json:"destroyed_total" example:"4"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
