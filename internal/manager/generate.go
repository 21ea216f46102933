package manager

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"sessiond/internal/session"
)

// defaultGenerateTokens bounds a generate call when the request gives none.
const defaultGenerateTokens = 256

// Generate centralizes the generation loop: it acquires the session's
// in-flight slot once, then repeatedly steps the session and streams
// NDJSON token lines to the provided writer, ending with a summary line.
// A decode failure after tokens were already streamed is reported in the
// summary line (finish_reason "error") rather than as a call error, so the
// NDJSON framing stays intact.
func (m *Manager) Generate(ctx context.Context, id string, maxTokens int, w io.Writer, flush func()) error {
	e, release, err := m.beginSessionOp(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if !e.sess.Loaded() {
		return session.ErrNotLoaded
	}
	if maxTokens <= 0 {
		maxTokens = defaultGenerateTokens
	}
	// Never generate past the context window.
	if room := e.sess.ContextWindow() - e.sess.SeqLen(); room < maxTokens {
		maxTokens = room
	}

	promptTokens := e.sess.SeqLen()
	var content strings.Builder
	finish := "length"
	errText := ""
	completion := 0

	for i := 0; i < maxTokens; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frag, err := e.sess.GenerateNextToken()
		if errors.Is(err, session.ErrEndOfSequence) {
			finish = "stop"
			break
		}
		if err != nil {
			finish = "error"
			errText = e.sess.LastError()
			break
		}
		completion++
		if frag == "" {
			// Piece buffer is holding a partial rune; nothing to emit yet.
			continue
		}
		content.WriteString(frag)
		if _, werr := w.Write(tokenLineJSON(frag)); werr != nil {
			return werr
		}
		if flush != nil {
			flush()
		}
	}

	end := map[string]any{
		"done":          true,
		"content":       content.String(),
		"finish_reason": finish,
		"usage": map[string]int{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completion,
			"total_tokens":      promptTokens + completion,
		},
	}
	if errText != "" {
		end["error"] = errText
	}
	jb, _ := json.Marshal(end)
	if _, err := w.Write(append(jb, '\n')); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}

// tokenLineJSON formats a token NDJSON line using json.Marshal for correctness.
func tokenLineJSON(tok string) []byte {
	type tokenMsg struct {
		Token string `json:"token"`
	}
	b, _ := json.Marshal(tokenMsg{Token: tok})
	return append(b, '\n')
}
