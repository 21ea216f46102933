//go:build llama

package engine

// cgo link directives for the in-process llama engine.
// - We set an rpath of $ORIGIN so the runtime loader finds libllama.so and
//   libggml*.so in the same directory as the built Go binary (./bin).
// - We add -L${SRCDIR}/../../bin so the linker finds libllama.so at link time
//   when building the 'llama' variant.
// - No environment variables are required.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
#include <stdlib.h>
#include "llama.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// Built reports whether the real llama engine is compiled in.
func Built() bool { return llamaBuilt }

var backendOnce sync.Once

type llamaEngine struct{}

// New returns the CGo-backed llama engine.
func New() Engine { return llamaEngine{} }

func (llamaEngine) Init() {
	// Process-wide; teardown happens at process exit, not per session.
	backendOnce.Do(func() { C.llama_backend_init() })
}

func (llamaEngine) LoadModel(path string, gpuLayers int) (Model, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	params := C.llama_model_default_params()
	params.n_gpu_layers = C.int(gpuLayers)

	m := C.llama_model_load_from_file(cPath, params)
	if m == nil {
		return nil, fmt.Errorf("llama_model_load_from_file: %s", path)
	}
	return &llamaModel{c: m}, nil
}

type llamaModel struct {
	c *C.struct_llama_model
}

func (m *llamaModel) Vocab() Vocab {
	return &llamaVocab{c: C.llama_model_get_vocab(m.c)}
}

func (m *llamaModel) NewContext(params ContextParams) (Context, error) {
	cparams := C.llama_context_default_params()
	cparams.n_ctx = C.uint(params.ContextWindow)
	cparams.n_batch = C.uint(params.BatchSize)
	if params.Threads > 0 {
		cparams.n_threads = C.int(params.Threads)
		cparams.n_threads_batch = cparams.n_threads
	}
	cparams.no_perf = C.bool(true)

	c := C.llama_init_from_model(m.c, cparams)
	if c == nil {
		return nil, errors.New("llama_init_from_model returned nil")
	}
	return &llamaContext{c: c}, nil
}

func (m *llamaModel) NewSampler(cfg SamplerConfig) (Sampler, error) {
	cfg = cfg.Normalized()
	chain := C.llama_sampler_chain_init(C.llama_sampler_chain_default_params())
	if chain == nil {
		return nil, errors.New("llama_sampler_chain_init returned nil")
	}
	for _, stage := range cfg.Stages() {
		switch stage {
		case StagePenalties:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_penalties(
				C.int32_t(cfg.RepeatLastN),
				C.float(cfg.RepeatPenalty),
				C.float(cfg.FreqPenalty),
				C.float(cfg.PresencePenalty),
			))
		case StageTemperature:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_temp(C.float(cfg.Temperature)))
		case StageTopK:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_k(C.int32_t(cfg.TopK)))
		case StageTopP:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_p(C.float(cfg.TopP), C.size_t(cfg.MinKeep)))
		case StageDist:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_dist(C.uint32_t(cfg.Seed)))
		case StageGreedy:
			C.llama_sampler_chain_add(chain, C.llama_sampler_init_greedy())
		}
	}
	return &llamaSampler{c: chain}, nil
}

func (m *llamaModel) Free() {
	if m.c != nil {
		C.llama_model_free(m.c)
		m.c = nil
	}
}

type llamaContext struct {
	c *C.struct_llama_context
}

func (c *llamaContext) Decode(b *Batch) error {
	n := b.Len()
	if n == 0 {
		return &DecodeError{Code: -1}
	}
	cb := C.llama_batch_init(C.int32_t(n), 0, 1)
	defer C.llama_batch_free(cb)

	tokens := unsafe.Slice(cb.token, n)
	pos := unsafe.Slice(cb.pos, n)
	nSeqID := unsafe.Slice(cb.n_seq_id, n)
	seqID := unsafe.Slice(cb.seq_id, n)
	logits := unsafe.Slice(cb.logits, n)
	for i := 0; i < n; i++ {
		tokens[i] = C.llama_token(b.Tokens[i])
		pos[i] = C.llama_pos(b.Pos[i])
		nSeqID[i] = 1
		unsafe.Slice(seqID[i], 1)[0] = C.llama_seq_id(b.Seq[i])
		if b.Logits[i] {
			logits[i] = 1
		} else {
			logits[i] = 0
		}
	}
	cb.n_tokens = C.int32_t(n)

	// Positive return codes are warnings (no KV slot); negatives are errors.
	// Both fail the call here: the session treats any non-zero status as a
	// decode failure.
	if code := int(C.llama_decode(c.c, cb)); code != 0 {
		return &DecodeError{Code: code}
	}
	return nil
}

func (c *llamaContext) ClearMemory() {
	mem := C.llama_get_memory(c.c)
	if mem != nil {
		C.llama_memory_clear(mem, C.bool(true))
	}
}

func (c *llamaContext) Free() {
	if c.c != nil {
		C.llama_free(c.c)
		c.c = nil
	}
}

type llamaVocab struct {
	c *C.struct_llama_vocab
}

func (v *llamaVocab) Tokenize(text string, addBOS, parseSpecial bool) ([]Token, error) {
	if text == "" {
		return nil, nil
	}
	maxTokens := len(text) + 2
	cTokens := make([]C.llama_token, maxTokens)
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	result := C.llama_tokenize(
		v.c,
		cText,
		C.int32_t(len(text)),
		&cTokens[0],
		C.int32_t(maxTokens),
		C.bool(addBOS),
		C.bool(parseSpecial),
	)
	// Negative result means the buffer was too small; retry at the exact size.
	if result < 0 {
		maxTokens = int(-result)
		cTokens = make([]C.llama_token, maxTokens)
		result = C.llama_tokenize(
			v.c,
			cText,
			C.int32_t(len(text)),
			&cTokens[0],
			C.int32_t(maxTokens),
			C.bool(addBOS),
			C.bool(parseSpecial),
		)
		if result < 0 {
			return nil, fmt.Errorf("tokenization failed, required %d tokens", -result)
		}
	}
	tokens := make([]Token, result)
	for i := range tokens {
		tokens[i] = Token(cTokens[i])
	}
	return tokens, nil
}

func (v *llamaVocab) TokenToPiece(t Token) string {
	bufLen := 12
	buf := make([]byte, bufLen)
	n := int(C.llama_token_to_piece(
		v.c,
		C.llama_token(t),
		(*C.char)(unsafe.Pointer(&buf[0])),
		C.int32_t(bufLen),
		C.int32_t(0),
		C.bool(true),
	))
	if n < 0 {
		bufLen = -n
		buf = make([]byte, bufLen)
		n = int(C.llama_token_to_piece(
			v.c,
			C.llama_token(t),
			(*C.char)(unsafe.Pointer(&buf[0])),
			C.int32_t(bufLen),
			C.int32_t(0),
			C.bool(true),
		))
	}
	if n < 0 {
		return ""
	}
	return strings.TrimRight(string(buf[:n]), "\x00")
}

func (v *llamaVocab) IsEOG(t Token) bool {
	return bool(C.llama_vocab_is_eog(v.c, C.llama_token(t)))
}

type llamaSampler struct {
	c *C.struct_llama_sampler
}

func (s *llamaSampler) Sample(ctx Context, idx int) Token {
	lc := ctx.(*llamaContext)
	return Token(C.llama_sampler_sample(s.c, lc.c, C.int32_t(idx)))
}

func (s *llamaSampler) Free() {
	if s.c != nil {
		C.llama_sampler_free(s.c)
		s.c = nil
	}
}
