// Package enginetest provides an in-memory engine.Engine for tests.
//
// The fake tokenizes on whitespace with a deterministic per-word id
// assignment, records every decoded batch, tracks the KV position the way
// the real runtime does, and samples from a caller-provided script. It also
// records handle releases in order so lifecycle tests can assert
// sampler-before-context-before-model teardown.
package enginetest

import (
	"strings"
	"sync"

	"sessiond/internal/engine"
)

// Reserved token ids. Word ids are assigned from firstWordID upwards.
const (
	BOSToken    engine.Token = 1
	EOGToken    engine.Token = 2
	firstWordID              = 16
)

// Fake implements engine.Engine.
type Fake struct {
	mu sync.Mutex

	// Failure switches, checked at each construction stage.
	FailLoad    bool
	FailContext bool
	FailSampler bool

	// FailDecodeAfter fails the Nth decode call (1-based) with code 1.
	// 0 disables.
	FailDecodeAfter int

	// Script holds the tokens Sample returns in order. When exhausted,
	// Sample returns EOGToken.
	Script []engine.Token

	InitCalls   int
	decodeCalls int

	// Freed records handle releases in order: "sampler", "context", "model".
	Freed []string

	// Batches records a copy of every successfully decoded batch.
	Batches []*engine.Batch

	words  map[string]engine.Token
	pieces map[engine.Token]string

	// lastCtx is the most recently created context; KVLen reads it.
	lastCtx *fakeContext

	// LastSamplerConfig is the config of the most recent NewSampler call.
	LastSamplerConfig engine.SamplerConfig
}

// New returns an empty fake. Configure fields before use.
func New() *Fake {
	return &Fake{
		words:  make(map[string]engine.Token),
		pieces: make(map[engine.Token]string),
	}
}

func (f *Fake) Init() {
	f.mu.Lock()
	f.InitCalls++
	f.mu.Unlock()
}

func (f *Fake) LoadModel(path string, gpuLayers int) (engine.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailLoad {
		return nil, engine.ErrNotBuilt
	}
	return &fakeModel{f: f}, nil
}

// KVLen returns the KV-cache position of the most recently created context.
func (f *Fake) KVLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastCtx == nil {
		return 0
	}
	return f.lastCtx.kvLen
}

// DecodeCalls returns the number of Decode invocations so far.
func (f *Fake) DecodeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decodeCalls
}

// WordToken returns (assigning if new) the id for a word.
func (f *Fake) WordToken(w string) engine.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wordTokenLocked(w)
}

func (f *Fake) wordTokenLocked(w string) engine.Token {
	if id, ok := f.words[w]; ok {
		return id
	}
	id := engine.Token(firstWordID + len(f.words))
	f.words[w] = id
	f.pieces[id] = w
	return id
}

// TokenizeWords is a test helper mirroring the fake's tokenizer: one token
// per whitespace-separated word, optionally preceded by BOS.
func (f *Fake) TokenizeWords(text string, addBOS bool) []engine.Token {
	var out []engine.Token
	if addBOS {
		out = append(out, BOSToken)
	}
	for _, w := range strings.Fields(text) {
		out = append(out, f.WordToken(w))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type fakeModel struct {
	f *Fake
}

func (m *fakeModel) Vocab() engine.Vocab { return &fakeVocab{f: m.f} }

func (m *fakeModel) NewContext(params engine.ContextParams) (engine.Context, error) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()
	if m.f.FailContext {
		return nil, &engine.DecodeError{Code: -1}
	}
	c := &fakeContext{f: m.f, window: params.ContextWindow, batch: params.BatchSize}
	m.f.lastCtx = c
	return c, nil
}

func (m *fakeModel) NewSampler(cfg engine.SamplerConfig) (engine.Sampler, error) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()
	if m.f.FailSampler {
		return nil, &engine.DecodeError{Code: -1}
	}
	m.f.LastSamplerConfig = cfg
	return &fakeSampler{f: m.f}, nil
}

func (m *fakeModel) Free() {
	m.f.mu.Lock()
	m.f.Freed = append(m.f.Freed, "model")
	m.f.mu.Unlock()
}

type fakeContext struct {
	f      *Fake
	window int
	batch  int
	kvLen  int
}

func (c *fakeContext) Decode(b *engine.Batch) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.decodeCalls++
	if c.f.FailDecodeAfter > 0 && c.f.decodeCalls >= c.f.FailDecodeAfter {
		return &engine.DecodeError{Code: 1}
	}
	if b.Len() == 0 {
		return &engine.DecodeError{Code: -1}
	}
	if c.batch > 0 && b.Len() > c.batch {
		return &engine.DecodeError{Code: 1}
	}
	// Enforce the position invariant the real KV cache relies on: every
	// entry lands at the current cache length.
	for i := 0; i < b.Len(); i++ {
		if int(b.Pos[i]) != c.kvLen+i {
			return &engine.DecodeError{Code: 2}
		}
	}
	if c.window > 0 && c.kvLen+b.Len() > c.window {
		return &engine.DecodeError{Code: 1}
	}
	cp := &engine.Batch{
		Tokens: append([]engine.Token(nil), b.Tokens...),
		Pos:    append([]int32(nil), b.Pos...),
		Seq:    append([]int32(nil), b.Seq...),
		Logits: append([]bool(nil), b.Logits...),
	}
	c.f.Batches = append(c.f.Batches, cp)
	c.kvLen += b.Len()
	return nil
}

func (c *fakeContext) ClearMemory() {
	c.f.mu.Lock()
	c.kvLen = 0
	c.f.mu.Unlock()
}

func (c *fakeContext) Free() {
	c.f.mu.Lock()
	c.f.Freed = append(c.f.Freed, "context")
	c.f.mu.Unlock()
}

type fakeVocab struct {
	f *Fake
}

func (v *fakeVocab) Tokenize(text string, addBOS, parseSpecial bool) ([]engine.Token, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	var out []engine.Token
	if addBOS {
		out = append(out, BOSToken)
	}
	for _, w := range strings.Fields(text) {
		out = append(out, v.f.wordTokenLocked(w))
	}
	return out, nil
}

func (v *fakeVocab) TokenToPiece(t engine.Token) string {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	if t == BOSToken || t == EOGToken {
		return ""
	}
	if p, ok := v.f.pieces[t]; ok {
		return " " + p
	}
	return ""
}

func (v *fakeVocab) IsEOG(t engine.Token) bool { return t == EOGToken }

type fakeSampler struct {
	f *Fake
}

func (s *fakeSampler) Sample(ctx engine.Context, idx int) engine.Token {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if len(s.f.Script) == 0 {
		return EOGToken
	}
	t := s.f.Script[0]
	s.f.Script = s.f.Script[1:]
	return t
}

func (s *fakeSampler) Free() {
	s.f.mu.Lock()
	s.f.Freed = append(s.f.Freed, "sampler")
	s.f.mu.Unlock()
}
