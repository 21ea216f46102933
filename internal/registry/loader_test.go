package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDir_FiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"a.gguf",
		"b.GGUF", // case-insensitive
		"not-model.txt",
		"model.bin",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	for _, m := range models {
		if m.Path == "" || !filepath.IsAbs(m.Path) {
			t.Fatalf("path not absolute: %+v", m)
		}
		if m.SizeBytes != 1 {
			t.Fatalf("size not recorded: %+v", m)
		}
	}
}

func TestLoadDir_IDIsFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "m.gguf"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 1 || models[0].ID != "m.gguf" {
		t.Fatalf("unexpected: %+v", models)
	}
}

func TestLoadDir_MissingDirErrors(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestQuantFromName(t *testing.T) {
	cases := map[string]string{
		"llama-3.1-8b-q4_k_m.gguf":      "Q4_K_M",
		"TinyLlama.Q8_0.gguf":           "Q8_0",
		"mistral-7b-instruct-f16.gguf":  "F16",
		"phi-2.IQ2_XS.gguf":             "IQ2_XS",
		"plain-model.gguf":              "",
	}
	for in, want := range cases {
		if got := quantFromName(in); got != want {
			t.Fatalf("quantFromName(%q) = %q, want %q", in, got, want)
		}
	}
}
