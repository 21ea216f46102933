//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in engine_llama.go (tagged 'llama').

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

// Built reports whether the real llama engine is compiled in.
func Built() bool { return llamaBuilt }

type stubEngine struct{}

// New returns the engine selected by build tags; without the 'llama' tag
// every load fails fast so nothing gets mocked in production binaries.
func New() Engine { return stubEngine{} }

func (stubEngine) Init() {}

func (stubEngine) LoadModel(path string, gpuLayers int) (Model, error) {
	return nil, ErrNotBuilt
}
