package session

import "sessiond/internal/engine"

// sequence tracks the ordered token ids the KV cache has seen (or is about
// to see) for this session. It is append-only until reset. The next
// writable position is always its length: after a successful decode the
// cache's internal position equals Len().
type sequence struct {
	tokens []engine.Token
}

func (s *sequence) Len() int { return len(s.tokens) }

// NextPos is the position the next appended token will occupy.
func (s *sequence) NextPos() int { return len(s.tokens) }

func (s *sequence) Append(toks ...engine.Token) {
	s.tokens = append(s.tokens, toks...)
}

func (s *sequence) Reset() { s.tokens = s.tokens[:0] }

// Tokens returns the tracked ids. The slice is the tracker's own storage;
// callers must not mutate it.
func (s *sequence) Tokens() []engine.Token { return s.tokens }
