package pipeline_test

import (
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"rawsweep/internal/params"
	"rawsweep/internal/pipeline"
)

func TestMinimalEnablesOnlyRawPrepareAndTemperature(t *testing.T) {
	p := pipeline.Minimal()
	got := p.EnabledStages()
	if len(got) != 2 || got[0] != params.RawPrepare || got[1] != params.Temperature {
		t.Fatalf("unexpected enabled stages: %v", got)
	}
}

func TestResolveDisabledStageUsesDefaults(t *testing.T) {
	p := pipeline.New()
	rec, err := p.Params(params.Sharpen)
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if err := rec.Set("amount", float32(4)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Disable(params.Sharpen); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	entries, err := p.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sharpen := findEntry(t, entries, params.Sharpen)
	if sharpen.Enabled {
		t.Fatal("expected sharpen disabled")
	}
	if got := hex.EncodeToString(sharpen.Params); got != "000000400000003f0000003f" {
		t.Fatalf("disabled stage params = %s", got)
	}

	if err := p.Enable(params.Sharpen); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	entries, _ = p.Resolve()
	sharpen = findEntry(t, entries, params.Sharpen)
	if got := hex.EncodeToString(sharpen.Params); got != "0000004000008040"+"0000003f" {
		t.Fatalf("enabled stage params = %s", got)
	}
}

func TestResolveEntriesCarryDefinitionAndBlend(t *testing.T) {
	entries, err := pipeline.New().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(entries) != len(pipeline.Order) {
		t.Fatalf("got %d entries", len(entries))
	}
	for _, e := range entries {
		if len(e.Params) != params.DeclaredByteLength(e.Stage) {
			t.Fatalf("%s: %d param bytes", e.Operation, len(e.Params))
		}
		if len(e.Blend) != params.DeclaredByteLength(params.Blend) {
			t.Fatalf("%s: %d blend bytes", e.Operation, len(e.Blend))
		}
		if e.BlendVersion != params.BlendVersion {
			t.Fatalf("%s: blend version %d", e.Operation, e.BlendVersion)
		}
	}
	exposure := findEntry(t, entries, params.Exposure)
	if exposure.Version != 6 || exposure.Operation != "exposure" {
		t.Fatalf("unexpected exposure entry: %+v", exposure)
	}
	if exposure.Blend[4] != params.BlendCSRGBScene {
		t.Fatalf("exposure blend colourspace = %d", exposure.Blend[4])
	}
}

func TestSetParamsRejectsForeignRecord(t *testing.T) {
	p := pipeline.Minimal()
	if err := p.SetParams(params.Sharpen, params.Defaults(params.Exposure)); err == nil {
		t.Fatal("expected schema mismatch error")
	}
	if err := p.SetParams(params.Sharpen, params.Defaults(params.Sharpen)); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	if !p.Enabled(params.Sharpen) {
		t.Fatal("SetParams should enable the stage")
	}
	if err := p.Enable(params.Blend); err == nil {
		t.Fatal("blend is not a configurable stage")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := pipeline.New()
	b := a.Clone()
	rec, _ := b.Params(params.Exposure)
	_ = rec.Set("exposure", float32(2))
	_ = b.Disable(params.FilmicRGB)

	orig, _ := a.Params(params.Exposure)
	if v, _ := orig.Get("exposure"); v.(float32) != 0 {
		t.Fatalf("clone shares params: %v", v)
	}
	if !a.Enabled(params.FilmicRGB) {
		t.Fatal("clone shares enable flags")
	}
}

func TestLinspace(t *testing.T) {
	got := pipeline.Linspace(-0.5, 0.9, 7)
	want := []float64{-0.5, -0.26666666666666666, -0.033333333333333326, 0.2, 0.43333333333333335, 0.6666666666666667, 0.9}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("value %d = %v want %v", i, got[i], want[i])
		}
	}
	if got := pipeline.Linspace(3, 7, 1); len(got) != 1 || got[0] != 3 {
		t.Fatalf("single value = %v", got)
	}
	if got := pipeline.Linspace(0, 1, 0); got != nil {
		t.Fatalf("zero values = %v", got)
	}
}

func TestVariantsSetFieldAndEnableStage(t *testing.T) {
	variants, err := pipeline.Variants(pipeline.Minimal(), params.ColorBalanceRGB, "contrast", []float64{-0.3, 0.5})
	if err != nil {
		t.Fatalf("Variants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("got %d variants", len(variants))
	}
	entries, err := variants[0].Pipeline.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cb := findEntry(t, entries, params.ColorBalanceRGB)
	if !cb.Enabled {
		t.Fatal("swept stage should be enabled")
	}
	if got := hex.EncodeToString(cb.Params[124:]); got != "9a9999be" {
		t.Fatalf("contrast bytes = %s", got)
	}
	if variants[1].Index != 1 || variants[1].Value != 0.5 {
		t.Fatalf("unexpected variant %+v", variants[1])
	}

	_, err = pipeline.Variants(pipeline.Minimal(), params.Sharpen, "sigma", []float64{1})
	if !errors.Is(err, params.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestProgressiveDisable(t *testing.T) {
	plan := pipeline.ProgressiveDisable(pipeline.New())
	if len(plan) != 7 {
		t.Fatalf("got %d pipelines", len(plan))
	}
	if n := len(plan[0].EnabledStages()); n != len(pipeline.Order) {
		t.Fatalf("first pipeline has %d stages enabled", n)
	}
	if plan[1].Enabled(params.FilmicRGB) || !plan[1].Enabled(params.ColorBalanceRGB) {
		t.Fatal("second pipeline should only drop filmic")
	}
	last := plan[len(plan)-1].EnabledStages()
	if len(last) != 1 || last[0] != params.RawPrepare {
		t.Fatalf("last pipeline stages = %v", last)
	}
}

func findEntry(t *testing.T, entries []pipeline.Entry, stage params.Stage) pipeline.Entry {
	t.Helper()
	for _, e := range entries {
		if e.Stage == stage {
			return e
		}
	}
	t.Fatalf("no entry for %s", stage)
	return pipeline.Entry{}
}
