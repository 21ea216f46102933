package session

import "testing"

func TestPieceBufferASCIIPassThrough(t *testing.T) {
	var b pieceBuffer
	if got := b.Add("hello"); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

func TestPieceBufferSplitRune(t *testing.T) {
	var b pieceBuffer
	// U+4E00 (一) is E4 B8 80; byte-level tokens can split it.
	if got := b.Add("\xe4\xb8"); got != "" {
		t.Fatalf("partial rune leaked: %q", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("pending=%d", b.Pending())
	}
	if got := b.Add("\x80"); got != "一" {
		t.Fatalf("got %q", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

func TestPieceBufferMixedTail(t *testing.T) {
	var b pieceBuffer
	if got := b.Add("ok\xe4"); got != "ok" {
		t.Fatalf("got %q", got)
	}
	if got := b.Add("\xb8\x80!"); got != "一!" {
		t.Fatalf("got %q", got)
	}
}

func TestPieceBufferCompleteMultibyte(t *testing.T) {
	var b pieceBuffer
	if got := b.Add("héllo"); got != "héllo" {
		t.Fatalf("got %q", got)
	}
}

func TestPieceBufferReset(t *testing.T) {
	var b pieceBuffer
	b.Add("\xe4\xb8")
	b.Reset()
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
	if got := b.Add("x"); got != "x" {
		t.Fatalf("got %q", got)
	}
}
