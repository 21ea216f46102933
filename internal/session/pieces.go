package session

import "unicode/utf8"

// pieceBuffer accumulates detokenized bytes and releases only complete
// UTF-8 sequences. Byte-level tokens can split a code point across pieces;
// concatenating what Add returns always yields valid text.
type pieceBuffer struct {
	pending []byte
}

// Add appends piece and returns the longest valid prefix, keeping any
// trailing partial rune for the next call. Bytes that cannot start a valid
// rune are passed through unchanged rather than held forever.
func (b *pieceBuffer) Add(piece string) string {
	b.pending = append(b.pending, piece...)
	cut := validPrefixLen(b.pending)
	if cut == 0 {
		return ""
	}
	out := string(b.pending[:cut])
	b.pending = append(b.pending[:0], b.pending[cut:]...)
	return out
}

// Pending reports how many bytes are currently withheld.
func (b *pieceBuffer) Pending() int { return len(b.pending) }

// Reset drops any withheld bytes.
func (b *pieceBuffer) Reset() { b.pending = b.pending[:0] }

// validPrefixLen returns the length of the longest prefix of p that ends on
// a rune boundary, treating an incomplete trailing sequence as withheld
// only while it can still become valid.
func validPrefixLen(p []byte) int {
	n := len(p)
	// A partial rune is at most utf8.UTFMax-1 bytes; scan back from the end.
	for back := 1; back < utf8.UTFMax && back <= n; back++ {
		c := p[n-back]
		if c < utf8.RuneSelf {
			// ASCII: everything up to here is complete.
			return n
		}
		if c&0xC0 == 0xC0 {
			// Found a rune start; withhold it if its sequence is incomplete.
			if !utf8.FullRune(p[n-back:]) {
				return n - back
			}
			return n
		}
		// Continuation byte, keep scanning back.
	}
	return n
}
