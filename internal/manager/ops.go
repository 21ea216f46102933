package manager

import (
	"context"
	"errors"

	"sessiond/internal/session"
)

// SetSystemPrompt stores the session's system prompt, starting a fresh turn.
func (m *Manager) SetSystemPrompt(ctx context.Context, id, text string) error {
	e, release, err := m.beginSessionOp(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return e.sess.SetSystemPrompt(text)
}

// ProcessPrompt prefills the session with system+user prompt tokens and
// returns the resulting prompt token count.
func (m *Manager) ProcessPrompt(ctx context.Context, id, text string, maxTokens int) (int, error) {
	e, release, err := m.beginSessionOp(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()
	return e.sess.ProcessUserPrompt(text, maxTokens)
}

// NextToken runs one generation step. done=true signals end of sequence.
func (m *Manager) NextToken(ctx context.Context, id string) (string, bool, error) {
	e, release, err := m.beginSessionOp(ctx, id)
	if err != nil {
		return "", false, err
	}
	defer release()
	frag, err := e.sess.GenerateNextToken()
	if errors.Is(err, session.ErrEndOfSequence) {
		return "", true, nil
	}
	if err != nil {
		return "", false, err
	}
	return frag, false, nil
}

// ResetSession clears the session's sequence, system prompt and KV cache,
// keeping the model loaded for a new conversation.
func (m *Manager) ResetSession(ctx context.Context, id string) error {
	e, release, err := m.beginSessionOp(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	e.sess.Reset()
	m.publisher.Publish(Event{Name: "session_reset", SessionID: id, Fields: map[string]any{}})
	return nil
}
