// Package engine defines the boundary to the llama.cpp inference runtime.
//
// The interfaces here mirror the handles the native side owns: a loaded
// model, a runtime context with its KV cache, a borrowed vocabulary, and a
// sampler chain. The real implementation is compiled behind the 'llama'
// build tag; the default build carries a fail-fast stub so unit tests and
// CI stay CGO-free.
package engine

import (
	"errors"
	"fmt"
)

// ErrNotBuilt is returned for every model load when the binary was built
// without the 'llama' tag.
var ErrNotBuilt = errors.New("llama support not built (missing 'llama' build tag)")

// Token is a vocabulary token id.
type Token int32

// Engine creates models. New() returns the implementation selected by
// build tags.
type Engine interface {
	// Init initializes the process-wide backend. Idempotent; safe to call
	// once per process or repeatedly.
	Init()
	// LoadModel loads model weights from path, offloading gpuLayers layers.
	LoadModel(path string, gpuLayers int) (Model, error)
}

// Model is an owned handle to loaded model weights.
type Model interface {
	// Vocab returns the model's vocabulary. The reference is borrowed: it
	// has no independent lifetime and dies with the model.
	Vocab() Vocab
	// NewContext creates a runtime context (KV cache) for this model.
	NewContext(params ContextParams) (Context, error)
	// NewSampler builds a sampler chain from cfg.
	NewSampler(cfg SamplerConfig) (Sampler, error)
	// Free releases the model weights. The vocab is invalid afterwards.
	Free()
}

// ContextParams sizes a runtime context.
type ContextParams struct {
	// ContextWindow is the KV cache size in tokens.
	ContextWindow int
	// BatchSize is the maximum number of tokens per decode call. Must be
	// at least the largest expected prefill or prefill decodes fail.
	BatchSize int
	// Threads for CPU evaluation. 0 lets the backend choose.
	Threads int
}

// Context is an owned handle to a runtime context and its KV cache.
type Context interface {
	// Decode submits a batch. A failure is returned as *DecodeError; the
	// KV cache may already have consumed a prefix of the batch.
	Decode(b *Batch) error
	// ClearMemory invalidates all cached positions back to zero.
	ClearMemory()
	// Free releases the context.
	Free()
}

// Vocab converts between text and token ids.
type Vocab interface {
	// Tokenize converts text to token ids. addBOS prepends the
	// beginning-of-sequence marker; parseSpecial honors the model's
	// control/formatting tokens. Empty text yields an empty slice.
	Tokenize(text string, addBOS, parseSpecial bool) ([]Token, error)
	// TokenToPiece renders one token, special tokens included. The result
	// may be a partial UTF-8 sequence; callers buffer until a full rune
	// is available.
	TokenToPiece(t Token) string
	// IsEOG reports whether t is an end-of-generation marker.
	IsEOG(t Token) bool
}

// Sampler is an owned handle to a sampler chain.
type Sampler interface {
	// Sample draws one token from the logits at index idx of ctx
	// (-1 = last entry that requested logits).
	Sample(ctx Context, idx int) Token
	// Free releases the chain.
	Free()
}

// DecodeError carries the engine's non-zero decode status.
type DecodeError struct {
	Code int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (code: %d)", e.Code)
}
