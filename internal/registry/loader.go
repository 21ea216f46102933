package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"sessiond/internal/common/fsutil"
	"sessiond/pkg/types"
)

// quantRe matches common GGUF quantization suffixes in filenames,
// e.g. Q4_K_M, Q8_0, IQ2_XS, F16.
var quantRe = regexp.MustCompile(`(?i)\b(i?q[0-9]+(?:_[a-z0-9]+)*|f16|f32|bf16)\b`)

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames. ID is the full filename (including extension); Path is the
// absolute file path.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := types.Model{
			// Full filename as ID (e.g., "llama-3.1-8b-q4_k_m.gguf")
			ID:    name,
			Name:  name,
			Path:  filepath.Join(abs, name),
			Quant: quantFromName(name),
		}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	return models, nil
}

// quantFromName extracts the quantization token from a model filename.
// Returns "" when no recognizable token is present.
func quantFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	// Underscore-heavy names confuse \b matching; normalize dot and dash
	// separators before scanning.
	norm := strings.NewReplacer(".", " ", "-", " ").Replace(base)
	if m := quantRe.FindString(norm); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}
