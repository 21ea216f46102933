package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sessiond/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: []types.Model{{ID: "m1.gguf"}}})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "model not found: ghost", Code: 404})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.SessionStatus{ID: "s1", ModelID: req.Model, Loaded: true})
	})
	mux.HandleFunc("POST /sessions/s1/prompt", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.PromptResponse{PromptTokens: 9})
	})
	mux.HandleFunc("POST /sessions/s1/next", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.TokenResponse{Token: " four"})
	})
	mux.HandleFunc("POST /sessions/s1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"token":" twinkle"}`)
		fmt.Fprintln(w, `{"token":" star"}`)
		fmt.Fprintln(w, `{"done":true,"content":" twinkle star","finish_reason":"stop","usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	})
	mux.HandleFunc("DELETE /sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestClient_Models(t *testing.T) {
	_, c := newTestServer(t)
	models, err := c.Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 1 || models[0].ID != "m1.gguf" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestClient_CreatePromptNext(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	st, err := c.Create(ctx, types.CreateSessionRequest{Model: "m1.gguf"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.ID != "s1" || !st.Loaded {
		t.Fatalf("unexpected status: %+v", st)
	}

	n, err := c.Prompt(ctx, "s1", "What is 2+2?", 16)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if n != 9 {
		t.Fatalf("prompt tokens=%d", n)
	}

	tok, err := c.Next(ctx, "s1")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if tok.Token != " four" {
		t.Fatalf("token=%q", tok.Token)
	}

	if err := c.Destroy(ctx, "s1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestClient_CreateErrorSurfacesMessage(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Create(context.Background(), types.CreateSessionRequest{Model: "ghost"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") || !strings.Contains(err.Error(), "404") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_GenerateStreamsFragments(t *testing.T) {
	_, c := newTestServer(t)
	var sb strings.Builder
	res, err := c.Generate(context.Background(), "s1", 8, &sb)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sb.String() != " twinkle star" {
		t.Fatalf("streamed=%q", sb.String())
	}
	if res.FinishReason != "stop" || res.Content != " twinkle star" {
		t.Fatalf("result=%+v", res)
	}
}
