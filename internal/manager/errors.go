package manager

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ sessionID string }

func (e tooBusyError) Error() string { return "too busy: " + e.sessionID }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy(sessionID string) error { return tooBusyError{sessionID: sessionID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// sessionNotFoundError signals an unknown or already-destroyed handle.
type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// ErrSessionNotFound constructs a sessionNotFoundError.
func ErrSessionNotFound(id string) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether err indicates a missing session handle.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// sessionLimitError signals the concurrent-session cap was hit.
type sessionLimitError struct{ max int }

func (e sessionLimitError) Error() string { return "session limit reached" }

// ErrSessionLimit constructs a sessionLimitError.
func ErrSessionLimit(max int) error { return sessionLimitError{max: max} }

// IsSessionLimit reports whether err indicates the session cap (return 429).
func IsSessionLimit(err error) bool {
	_, ok := err.(sessionLimitError)
	return ok
}

// dependencyUnavailableError signals a missing external dependency (e.g.,
// a binary built without llama support) so the HTTP layer can return 503
// Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}

// loadFailedError signals a session whose staged load failed and was
// discarded at the caller's request.
type loadFailedError struct{ msg string }

func (e loadFailedError) Error() string { return e.msg }

// ErrLoadFailed constructs a loadFailedError.
func ErrLoadFailed(msg string) error { return loadFailedError{msg: msg} }

// IsLoadFailed reports whether err indicates a failed session load.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}
