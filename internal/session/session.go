// Package session implements a single-sequence autoregressive generation
// session on top of the engine boundary.
//
// A Session owns three native handles (model, runtime context with KV
// cache, sampler chain) plus the tracked token sequence and the system
// prompt. Lifecycle: created empty, populated by a successful load, then
// reusable for repeated (system prompt, user prompt, generate...) cycles
// until Reset or Close. A session that failed to load keeps whatever was
// allocated before the failure releasable and must still be Closed.
//
// Sessions carry no internal locking: the context/KV cache is not safe for
// concurrent mutation, so callers serialize all operations on one Session.
// Independent Sessions may run concurrently.
package session

import (
	"errors"
	"fmt"

	"sessiond/internal/engine"
)

// Defaults applied when Config fields are unset.
const (
	DefaultContextWindow = 2048
	DefaultBatchSize     = 512
)

// Config holds the parameters for one session.
type Config struct {
	ModelPath     string
	ContextWindow int
	GPULayers     int
	// BatchSize caps tokens per decode call. It must cover the largest
	// expected prefill; it is clamped to the context window.
	BatchSize int
	Threads   int
	Sampling  engine.SamplerConfig
}

// Session orchestrates tokenization, prefill, and step decoding against
// the engine's resources.
type Session struct {
	eng     engine.Engine
	model   engine.Model
	ctx     engine.Context
	sampler engine.Sampler
	vocab   engine.Vocab

	seq          sequence
	systemPrompt string
	pieces       pieceBuffer

	lastErr string
	loaded  bool

	contextWindow int
	gpuLayers     int
}

// New creates a session by running the staged load: backend init, model
// weights, context/KV cache, sampler chain. It never returns nil; callers
// must check Loaded() before using any other operation. On a stage failure
// the prefix of already-acquired handles is released, the error text is
// recorded, and the returned session is safely Close-able.
func New(eng engine.Engine, cfg Config) *Session {
	s := &Session{eng: eng, contextWindow: cfg.ContextWindow, gpuLayers: cfg.GPULayers}
	if s.contextWindow <= 0 {
		s.contextWindow = DefaultContextWindow
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if batch > s.contextWindow {
		batch = s.contextWindow
	}

	// Process-wide backend init; idempotent.
	eng.Init()

	model, err := eng.LoadModel(cfg.ModelPath, s.gpuLayers)
	if err != nil {
		s.lastErr = "failed to load model from: " + cfg.ModelPath
		return s
	}

	// Staged acquisition: any later failure releases what is already owned,
	// in reverse order, without per-branch cleanup duplication.
	acquired := []func(){model.Free}
	releaseAcquired := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i]()
		}
	}

	// Vocabulary is borrowed from the model; it has no release of its own.
	s.vocab = model.Vocab()

	ctx, err := model.NewContext(engine.ContextParams{
		ContextWindow: s.contextWindow,
		BatchSize:     batch,
		Threads:       cfg.Threads,
	})
	if err != nil {
		releaseAcquired()
		s.vocab = nil
		s.lastErr = "failed to create context"
		return s
	}
	acquired = append(acquired, ctx.Free)

	sampler, err := model.NewSampler(cfg.Sampling.Normalized())
	if err != nil {
		releaseAcquired()
		s.vocab = nil
		s.lastErr = "failed to create sampler"
		return s
	}

	s.model = model
	s.ctx = ctx
	s.sampler = sampler
	s.loaded = true
	return s
}

// Loaded reports whether the model/context/sampler triple is usable.
func (s *Session) Loaded() bool { return s.loaded }

// LastError returns the most recently recorded error text. A successful
// operation clears it, so a non-empty value always refers to the latest
// failing call.
func (s *Session) LastError() string { return s.lastErr }

// SeqLen returns the tracked sequence length (the next KV-cache position).
func (s *Session) SeqLen() int { return s.seq.Len() }

// ContextWindow returns the KV cache size the session was created with.
func (s *Session) ContextWindow() int { return s.contextWindow }

// SystemPromptSet reports whether a system prompt is currently stored.
func (s *Session) SystemPromptSet() bool { return s.systemPrompt != "" }

// Close releases the native handles in dependency order: sampler, then
// context, then model. Safe on a session that never finished loading and
// idempotent; no operation may be used afterwards.
func (s *Session) Close() {
	if s.sampler != nil {
		s.sampler.Free()
		s.sampler = nil
	}
	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	s.vocab = nil
	s.loaded = false
}

// SetSystemPrompt stores the system prompt and clears the tracked sequence:
// a new system prompt starts a fresh turn. The prompt is tokenized and
// decoded lazily by the next ProcessUserPrompt.
func (s *Session) SetSystemPrompt(text string) error {
	if !s.loaded {
		s.lastErr = "model not loaded"
		return ErrNotLoaded
	}
	s.systemPrompt = text
	s.seq.Reset()
	s.lastErr = ""
	return nil
}

// ProcessUserPrompt rebuilds the sequence as tokenize(system, BOS) followed
// by tokenize(user) and prefills it in one bulk decode with logits on the
// final position only. It replaces (never appends to) any prior sequence.
// maxTokensHint is accepted for bridge compatibility; generation length is
// bounded by the caller's step loop.
//
// On a decode failure the tracked tokens are already advanced and are not
// rolled back; the session needs a Reset before further use.
func (s *Session) ProcessUserPrompt(text string, maxTokensHint int) (int, error) {
	if !s.loaded {
		s.lastErr = "model not loaded"
		return 0, ErrNotLoaded
	}
	_ = maxTokensHint

	userToks, err := s.vocab.Tokenize(text, false, true)
	if err != nil || len(userToks) == 0 {
		s.lastErr = "failed to tokenize user prompt"
		return 0, ErrTokenize(s.lastErr)
	}

	s.seq.Reset()
	if s.systemPrompt != "" {
		sysToks, err := s.vocab.Tokenize(s.systemPrompt, true, true)
		if err != nil {
			s.lastErr = "failed to tokenize system prompt"
			return 0, ErrTokenize(s.lastErr)
		}
		s.seq.Append(sysToks...)
	}
	s.seq.Append(userToks...)
	if s.seq.Len() == 0 {
		s.lastErr = "no tokens to decode"
		return 0, ErrTokenize(s.lastErr)
	}

	// The sequence was rebuilt from position zero, so cached positions from
	// the previous turn are stale.
	s.ctx.ClearMemory()
	s.pieces.Reset()

	if err := s.ctx.Decode(engine.PrefillBatch(s.seq.Tokens(), 0)); err != nil {
		s.lastErr = fmt.Sprintf("failed to decode prompt (code: %d)", decodeCode(err))
		return 0, err
	}
	s.lastErr = ""
	return s.seq.Len(), nil
}

// GenerateNextToken samples one token from the current logits, renders it,
// appends it at the sequence tail, and decodes it so the next call has
// fresh logits. An end-of-generation token returns ErrEndOfSequence without
// touching the sequence or KV state. The returned fragment may be empty while the piece buffer
// withholds a partial UTF-8 rune.
//
// On a decode failure the rendered text is discarded and the sequence/KV
// state is ahead by one uncommitted token; recovery is an explicit Reset.
func (s *Session) GenerateNextToken() (string, error) {
	if !s.loaded {
		s.lastErr = "model not loaded"
		return "", ErrNotLoaded
	}

	tok := s.sampler.Sample(s.ctx, -1)
	if s.vocab.IsEOG(tok) {
		// A clean finish, not a failure: any stale error text is gone.
		s.lastErr = ""
		return "", ErrEndOfSequence
	}

	piece := s.pieces.Add(s.vocab.TokenToPiece(tok))

	pos := s.seq.NextPos()
	s.seq.Append(tok)
	if err := s.ctx.Decode(engine.StepBatch(tok, pos)); err != nil {
		s.lastErr = fmt.Sprintf("failed to decode token (code: %d)", decodeCode(err))
		return "", err
	}
	s.lastErr = ""
	return piece, nil
}

// Reset clears the KV cache, the tracked sequence, and the system prompt.
// The handles stay alive: the session remains loaded and reusable for a new
// independent conversation. No-op when not loaded.
func (s *Session) Reset() {
	if !s.loaded {
		return
	}
	s.ctx.ClearMemory()
	s.seq.Reset()
	s.systemPrompt = ""
	s.pieces.Reset()
	s.lastErr = ""
}

func decodeCode(err error) int {
	var de *engine.DecodeError
	if errors.As(err, &de) {
		return de.Code
	}
	return -1
}
