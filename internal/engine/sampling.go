package engine

import "math/rand/v2"

// SamplerConfig configures the token-selection chain. Stage order is fixed
// (penalties, temperature, top-k, top-p, final draw); each stage narrows or
// re-weights the candidate distribution for the next. Greedy collapses the
// chain to a single argmax stage - a configuration of the same abstraction,
// not a different design.
type SamplerConfig struct {
	// RepeatLastN is the penalty lookback window in tokens.
	RepeatLastN int
	// RepeatPenalty divides the logit of recently seen tokens (1.0 disables).
	RepeatPenalty float32
	// FreqPenalty and PresencePenalty follow the usual additive semantics.
	FreqPenalty     float32
	PresencePenalty float32
	Temperature     float32
	TopK            int
	TopP            float32
	// MinKeep is the minimum candidate count top-p may truncate to.
	MinKeep int
	// Seed for the final weighted draw. Zero means draw a fresh random
	// seed; llama.cpp treats a literal 0 as a fixed seed, not "random".
	Seed uint32
	// Greedy replaces the whole pipeline with deterministic argmax.
	Greedy bool
}

// Defaults applied by Normalized for unset fields.
const (
	DefaultRepeatLastN   = 64
	DefaultRepeatPenalty = 1.1
	DefaultTemperature   = 0.8
	DefaultTopK          = 40
	DefaultTopP          = 0.95
	DefaultMinKeep       = 1
)

// Normalized returns a copy with defaults applied to unset fields.
func (c SamplerConfig) Normalized() SamplerConfig {
	if c.RepeatLastN <= 0 {
		c.RepeatLastN = DefaultRepeatLastN
	}
	if c.RepeatPenalty <= 0 {
		c.RepeatPenalty = DefaultRepeatPenalty
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.TopP <= 0 || c.TopP > 1 {
		c.TopP = DefaultTopP
	}
	if c.MinKeep <= 0 {
		c.MinKeep = DefaultMinKeep
	}
	if c.Seed == 0 {
		c.Seed = randomSeed()
	}
	return c
}

// randomSeed draws a non-zero seed so the dist stage never ends up with the
// fixed seed 0 two sessions could share.
func randomSeed() uint32 {
	for {
		if s := rand.Uint32(); s != 0 {
			return s
		}
	}
}

// StageKind identifies one stage of the chain.
type StageKind string

const (
	StagePenalties   StageKind = "penalties"
	StageTemperature StageKind = "temperature"
	StageTopK        StageKind = "top_k"
	StageTopP        StageKind = "top_p"
	StageDist        StageKind = "dist"
	StageGreedy      StageKind = "greedy"
)

// Stages expands the config into the ordered stage list implementations
// feed to the native chain builder. The order is significant and fixed.
func (c SamplerConfig) Stages() []StageKind {
	if c.Greedy {
		return []StageKind{StageGreedy}
	}
	return []StageKind{StagePenalties, StageTemperature, StageTopK, StageTopP, StageDist}
}
