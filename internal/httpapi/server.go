package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiond/internal/manager"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	CreateSession(ctx context.Context, req types.CreateSessionRequest) (types.SessionStatus, error)
	GetSession(id string) (types.SessionStatus, error)
	ListSessions() []types.SessionStatus
	DestroySession(ctx context.Context, id string) error
	SetSystemPrompt(ctx context.Context, id, text string) error
	ProcessPrompt(ctx context.Context, id, text string, maxTokens int) (int, error)
	NextToken(ctx context.Context, id string) (string, bool, error)
	Generate(ctx context.Context, id string, maxTokens int, w io.Writer, flush func()) error
	ResetSession(ctx context.Context, id string) error
}

// statusForErr maps well-known manager/session errors to HTTP status codes.
func statusForErr(err error) int {
	switch {
	case manager.IsSessionNotFound(err), manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		IncrementBackpressure("queue")
		return http.StatusTooManyRequests
	case manager.IsSessionLimit(err):
		IncrementBackpressure("session_limit")
		return http.StatusTooManyRequests
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case session.IsNotLoaded(err):
		return http.StatusConflict
	case session.IsTokenizeFailure(err):
		return http.StatusBadRequest
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// decodeJSONBody enforces content type and body size for JSON endpoints.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/models", handleListModels(svc))
	r.Get("/status", handleStatus(svc))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(svc))
		r.Get("/", handleListSessions(svc))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession(svc))
			r.Delete("/", handleDestroySession(svc))
			r.Post("/system", handleSystemPrompt(svc))
			r.Post("/prompt", handlePrompt(svc))
			r.Post("/next", handleNextToken(svc))
			r.Post("/generate", handleGenerate(svc))
			r.Post("/reset", handleReset(svc))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleListModels godoc
// @Summary List models
// @Produce json
// @Success 200 {object} types.ModelsResponse
// @Router /models [get]
func handleListModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
	}
}

// handleStatus godoc
// @Summary Server status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// handleCreateSession godoc
// @Summary Create a generation session
// @Accept json
// @Produce json
// @Param request body types.CreateSessionRequest true "session parameters"
// @Success 201 {object} types.SessionStatus
// @Failure 404 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Router /sessions [post]
func handleCreateSession(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		st, err := svc.CreateSession(joined, req)
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, st)
	}
}

// handleListSessions godoc
// @Summary List sessions
// @Produce json
// @Success 200 {object} types.SessionsResponse
// @Router /sessions [get]
func handleListSessions(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.SessionsResponse{Sessions: svc.ListSessions()})
	}
}

// handleGetSession godoc
// @Summary Session status (includes last error)
// @Produce json
// @Success 200 {object} types.SessionStatus
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id} [get]
func handleGetSession(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.GetSession(chi.URLParam(r, "id"))
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// handleDestroySession godoc
// @Summary Destroy a session
// @Success 204 "destroyed"
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id} [delete]
func handleDestroySession(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DestroySession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSystemPrompt godoc
// @Summary Set the system prompt (starts a fresh turn)
// @Accept json
// @Param request body types.SystemPromptRequest true "system prompt"
// @Success 204 "stored"
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Router /sessions/{id}/system [post]
func handleSystemPrompt(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SystemPromptRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if err := svc.SetSystemPrompt(r.Context(), chi.URLParam(r, "id"), req.Text); err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePrompt godoc
// @Summary Prefill the user prompt
// @Accept json
// @Produce json
// @Param request body types.PromptRequest true "user prompt"
// @Success 200 {object} types.PromptResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id}/prompt [post]
func handlePrompt(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PromptRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, "text is required")
			return
		}
		n, err := svc.ProcessPrompt(r.Context(), chi.URLParam(r, "id"), req.Text, req.MaxTokens)
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.PromptResponse{PromptTokens: n})
	}
}

// handleNextToken godoc
// @Summary Generate exactly one token
// @Produce json
// @Success 200 {object} types.TokenResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id}/next [post]
func handleNextToken(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frag, done, err := svc.NextToken(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.TokenResponse{Token: frag, Done: done})
	}
}

// handleGenerate godoc
// @Summary Stream generated tokens as NDJSON
// @Accept json
// @Produce x-ndjson
// @Param request body types.GenerateRequest true "generation bounds"
// @Success 200 {string} string "NDJSON token lines"
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id}/generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		start := time.Now()
		// Optional logging of NDJSON tokens
		writer := io.Writer(w)
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		logGenerate(r, lvl, "generate start", 0, 0)

		// Join server base context with request context so shutdown cancels work too.
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if generateTimeout > 0 {
			var tcancel context.CancelFunc
			joined, tcancel = context.WithTimeout(joined, time.Duration(generateTimeout)*time.Second)
			defer tcancel()
		}

		if err := svc.Generate(joined, id, req.MaxTokens, writer, flush); err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			code := statusForErr(err)
			writeJSONError(w, code, err.Error())
			logGenerateErr(r, lvl, "generate end", code, time.Since(start), err)
			return
		}
		logGenerate(r, lvl, "generate end", http.StatusOK, time.Since(start))
	}
}

// handleReset godoc
// @Summary Reset the session for a fresh conversation
// @Success 204 "reset"
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id}/reset [post]
func handleReset(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ResetSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
