package session

import (
	"errors"

	"sessiond/internal/engine"
)

// ErrEndOfSequence is the normal terminal signal of a generation loop.
// It is not a failure and is never recorded as the session's last error.
var ErrEndOfSequence = errors.New("end of sequence")

// ErrNotLoaded signals an operation attempted on a session that never
// completed loading. No state changes.
var ErrNotLoaded = errors.New("model not loaded")

// tokenizeError signals input that produced zero tokens where at least one
// was required.
type tokenizeError struct{ msg string }

func (e tokenizeError) Error() string { return e.msg }

// ErrTokenize constructs a tokenization failure error.
func ErrTokenize(msg string) error { return tokenizeError{msg: msg} }

// IsTokenizeFailure reports whether err indicates a tokenization failure.
func IsTokenizeFailure(err error) bool {
	var te tokenizeError
	return errors.As(err, &te)
}

// IsDecodeFailure reports whether err carries a non-zero engine decode
// status. After a decode failure the tracked sequence and KV cache may be
// ahead of the last committed decode; callers should Reset before
// continuing.
func IsDecodeFailure(err error) bool {
	var de *engine.DecodeError
	return errors.As(err, &de)
}

// IsNotLoaded reports whether err is the not-loaded guard.
func IsNotLoaded(err error) bool { return errors.Is(err, ErrNotLoaded) }
