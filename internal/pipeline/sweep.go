package pipeline

import (
	"fmt"

	"rawsweep/internal/params"
)

// Variant is one pipeline in a sweep together with the swept value.
type Variant struct {
	Index    int
	Value    float64
	Pipeline *Pipeline
}

// Linspace returns n evenly spaced values over [start, stop], both ends
// included. n == 1 yields start and n <= 0 yields nil.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Variants clones base once per value, sets stage.field to the value and
// enables the stage.
func Variants(base *Pipeline, stage params.Stage, field string, values []float64) ([]Variant, error) {
	if _, err := base.setting(stage); err != nil {
		return nil, err
	}
	if _, ok := params.SchemaFor(stage).Field(field); !ok {
		return nil, fmt.Errorf("%s.%s: %w", stage, field, params.ErrUnknownField)
	}
	out := make([]Variant, 0, len(values))
	for i, v := range values {
		p := base.Clone()
		rec, err := p.Params(stage)
		if err != nil {
			return nil, err
		}
		if err := rec.SetNumber(field, v); err != nil {
			return nil, err
		}
		if err := p.Enable(stage); err != nil {
			return nil, err
		}
		out = append(out, Variant{Index: i, Value: v, Pipeline: p})
	}
	return out, nil
}

// ProgressiveDisable returns base followed by copies that switch stages off
// one at a time from the back of the pipeline: filmic, color balance,
// sharpen, exposure, highlights, then white balance. Each copy keeps the
// stages disabled by the previous one.
func ProgressiveDisable(base *Pipeline) []*Pipeline {
	out := []*Pipeline{base.Clone()}
	current := base.Clone()
	for _, stage := range disableOrder {
		must(current.Disable(stage))
		out = append(out, current.Clone())
	}
	return out
}

// must panics on errors that only a stage missing from Order can produce.
func must(err error) {
	if err != nil {
		panic("pipeline: " + err.Error())
	}
}
