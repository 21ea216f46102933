package engine

// Batch describes one decode request: positioned tokens, their sequence
// membership, and which entries want logits computed. It is a transient
// value built fresh per decode call; nothing retains it afterwards.
type Batch struct {
	Tokens []Token
	// Pos[i] is the KV-cache position of Tokens[i]. The caller guarantees
	// it equals the token's index in the tracked sequence at submit time.
	Pos []int32
	// Seq[i] is the sequence id of Tokens[i]. Single-sequence sessions
	// always use sequence 0.
	Seq []int32
	// Logits[i] marks entries whose next-token distribution is wanted.
	Logits []bool
}

// Len returns the number of entries in the batch.
func (b *Batch) Len() int { return len(b.Tokens) }

// PrefillBatch builds the bulk prompt pass: tokens positioned
// startPos..startPos+len-1 with logits requested only on the final entry.
// Computing logits for earlier positions would be wasted work; only the
// last position's distribution is needed to start generation.
func PrefillBatch(tokens []Token, startPos int) *Batch {
	n := len(tokens)
	b := &Batch{
		Tokens: make([]Token, n),
		Pos:    make([]int32, n),
		Seq:    make([]int32, n),
		Logits: make([]bool, n),
	}
	copy(b.Tokens, tokens)
	for i := 0; i < n; i++ {
		b.Pos[i] = int32(startPos + i)
	}
	if n > 0 {
		b.Logits[n-1] = true
	}
	return b
}

// StepBatch builds the per-step shape: one token at pos with logits on.
func StepBatch(t Token, pos int) *Batch {
	return &Batch{
		Tokens: []Token{t},
		Pos:    []int32{int32(pos)},
		Seq:    []int32{0},
		Logits: []bool{true},
	}
}
