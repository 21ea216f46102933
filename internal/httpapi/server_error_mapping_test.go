package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sessiond/internal/engine"
	"sessiond/internal/manager"
	"sessiond/internal/session"
)

// TestStatusForErr_KnownKinds pins the HTTP status for each well-known error
// kind the manager and session layers produce.
func TestStatusForErr_KnownKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", manager.ErrSessionNotFound("x"), http.StatusNotFound},
		{"model not found", manager.ErrModelNotFound("m"), http.StatusNotFound},
		{"too busy", manager.ErrTooBusy("x"), http.StatusTooManyRequests},
		{"session limit", manager.ErrSessionLimit(8), http.StatusTooManyRequests},
		{"dependency unavailable", manager.ErrDependencyUnavailable("llama support not built"), http.StatusServiceUnavailable},
		{"not loaded", session.ErrNotLoaded, http.StatusConflict},
		{"tokenize failure", session.ErrTokenize("no tokens to decode"), http.StatusBadRequest},
		{"decode failure", &engine.DecodeError{Code: 1}, http.StatusInternalServerError},
		{"http error", mockHTTPError{msg: "gone", code: http.StatusGone}, http.StatusGone},
	}
	for _, tc := range cases {
		if got := statusForErr(tc.err); got != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCreateSession_ModelNotFoundIs404(t *testing.T) {
	svc := &mockService{createErr: manager.ErrModelNotFound("ghost")}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions", `{"model":"ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateSession_SessionLimitIs429(t *testing.T) {
	svc := &mockService{createErr: manager.ErrSessionLimit(2)}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions", `{}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCreateSession_DependencyUnavailableIs503(t *testing.T) {
	svc := &mockService{createErr: manager.ErrDependencyUnavailable("llama support not built")}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions", `{"discard_on_error":true}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetSession_UnknownIs404(t *testing.T) {
	svc := &mockService{getErr: manager.ErrSessionNotFound("ghost")}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPrompt_NotLoadedIs409(t *testing.T) {
	svc := &mockService{promptErr: session.ErrNotLoaded}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions/abc/prompt", `{"text":"hello"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPrompt_TooBusyIs429(t *testing.T) {
	svc := &mockService{promptErr: manager.ErrTooBusy("abc")}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions/abc/prompt", `{"text":"hello"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestNext_DecodeFailureIs500(t *testing.T) {
	svc := &mockService{nextErr: &engine.DecodeError{Code: 1}}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions/abc/next", `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerate_SessionNotFoundIs404(t *testing.T) {
	svc := &mockService{generateErr: manager.ErrSessionNotFound("ghost")}
	r := NewMux(svc)
	w := postJSON(t, r, "/sessions/ghost/generate", `{}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
