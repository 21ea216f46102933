package engine

import "testing"

func TestSamplerConfigNormalizedDefaults(t *testing.T) {
	c := SamplerConfig{}.Normalized()
	if c.RepeatLastN != DefaultRepeatLastN {
		t.Fatalf("RepeatLastN=%d", c.RepeatLastN)
	}
	if c.RepeatPenalty != DefaultRepeatPenalty {
		t.Fatalf("RepeatPenalty=%v", c.RepeatPenalty)
	}
	if c.Temperature != DefaultTemperature {
		t.Fatalf("Temperature=%v", c.Temperature)
	}
	if c.TopK != DefaultTopK {
		t.Fatalf("TopK=%d", c.TopK)
	}
	if c.TopP != DefaultTopP {
		t.Fatalf("TopP=%v", c.TopP)
	}
	if c.MinKeep != DefaultMinKeep {
		t.Fatalf("MinKeep=%d", c.MinKeep)
	}
}

func TestSamplerConfigNormalizedKeepsExplicit(t *testing.T) {
	in := SamplerConfig{RepeatLastN: 8, RepeatPenalty: 1.3, Temperature: 0.1, TopK: 5, TopP: 0.5, MinKeep: 2, Seed: 7}
	c := in.Normalized()
	if c != in {
		t.Fatalf("normalized mutated explicit config: %+v", c)
	}
}

func TestSamplerConfigNormalizedDrawsSeed(t *testing.T) {
	c := SamplerConfig{}.Normalized()
	if c.Seed == 0 {
		t.Fatal("zero seed survived Normalized; sessions would share a fixed seed")
	}
	if got := (SamplerConfig{Seed: 7}).Normalized().Seed; got != 7 {
		t.Fatalf("explicit seed changed: %d", got)
	}
}

func TestSamplerConfigNormalizedRejectsBadTopP(t *testing.T) {
	c := SamplerConfig{TopP: 1.5}.Normalized()
	if c.TopP != DefaultTopP {
		t.Fatalf("TopP=%v", c.TopP)
	}
}

func TestStagesOrderFixed(t *testing.T) {
	got := SamplerConfig{}.Stages()
	want := []StageKind{StagePenalties, StageTemperature, StageTopK, StageTopP, StageDist}
	if len(got) != len(want) {
		t.Fatalf("stages=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage[%d]=%s want %s", i, got[i], want[i])
		}
	}
}

func TestStagesGreedyCollapses(t *testing.T) {
	got := SamplerConfig{Greedy: true}.Stages()
	if len(got) != 1 || got[0] != StageGreedy {
		t.Fatalf("stages=%v", got)
	}
}
