package pipeline

import (
	"fmt"

	"rawsweep/internal/params"
)

// Order lists the configurable stages in darktable's processing order.
var Order = []params.Stage{
	params.RawPrepare,
	params.Temperature,
	params.Highlights,
	params.Exposure,
	params.Sharpen,
	params.ColorBalanceRGB,
	params.FilmicRGB,
}

// disableOrder is the back-to-front order used by ProgressiveDisable.
// RawPrepare always stays on.
var disableOrder = []params.Stage{
	params.FilmicRGB,
	params.ColorBalanceRGB,
	params.Sharpen,
	params.Exposure,
	params.Highlights,
	params.Temperature,
}

// Setting is the tagged state of one stage. Params holds the caller's values;
// they are only written when Enabled is true. Blend overrides the stage's
// blend preset when non-nil.
type Setting struct {
	Enabled bool
	Params  *params.Record
	Blend   *params.Record
}

// Entry is one resolved history item ready for a sidecar.
type Entry struct {
	Stage        params.Stage
	Operation    string
	Version      int
	Enabled      bool
	Params       []byte
	Blend        []byte
	BlendVersion int
}

// Pipeline holds a Setting per configurable stage.
type Pipeline struct {
	settings map[params.Stage]*Setting
}

// New returns a pipeline with every stage enabled at its defaults.
func New() *Pipeline {
	p := &Pipeline{settings: make(map[params.Stage]*Setting, len(Order))}
	for _, stage := range Order {
		p.settings[stage] = &Setting{Enabled: true, Params: params.Defaults(stage)}
	}
	return p
}

// Minimal returns a pipeline with only raw preparation and white balance
// enabled.
func Minimal() *Pipeline {
	p := New()
	for _, stage := range Order {
		if stage != params.RawPrepare && stage != params.Temperature {
			p.settings[stage].Enabled = false
		}
	}
	return p
}

// Only returns Minimal with the given stages enabled as well.
func Only(stages ...params.Stage) (*Pipeline, error) {
	p := Minimal()
	for _, stage := range stages {
		if err := p.Enable(stage); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Clone returns a deep copy.
func (p *Pipeline) Clone() *Pipeline {
	out := &Pipeline{settings: make(map[params.Stage]*Setting, len(p.settings))}
	for stage, s := range p.settings {
		c := &Setting{Enabled: s.Enabled, Params: s.Params.Clone()}
		if s.Blend != nil {
			c.Blend = s.Blend.Clone()
		}
		out.settings[stage] = c
	}
	return out
}

func (p *Pipeline) setting(stage params.Stage) (*Setting, error) {
	s, ok := p.settings[stage]
	if !ok {
		return nil, fmt.Errorf("stage %s is not configurable", stage)
	}
	return s, nil
}

// Enable turns stage on.
func (p *Pipeline) Enable(stage params.Stage) error {
	s, err := p.setting(stage)
	if err != nil {
		return err
	}
	s.Enabled = true
	return nil
}

// Disable turns stage off. Its parameters are kept but not written.
func (p *Pipeline) Disable(stage params.Stage) error {
	s, err := p.setting(stage)
	if err != nil {
		return err
	}
	s.Enabled = false
	return nil
}

// Enabled reports whether stage is on.
func (p *Pipeline) Enabled(stage params.Stage) bool {
	s, ok := p.settings[stage]
	return ok && s.Enabled
}

// Params returns the live parameter record of stage for in-place edits.
func (p *Pipeline) Params(stage params.Stage) (*params.Record, error) {
	s, err := p.setting(stage)
	if err != nil {
		return nil, err
	}
	return s.Params, nil
}

// SetParams replaces the parameter record of stage and enables it.
func (p *Pipeline) SetParams(stage params.Stage, rec *params.Record) error {
	s, err := p.setting(stage)
	if err != nil {
		return err
	}
	if rec == nil || rec.Schema() != params.SchemaFor(stage) {
		return fmt.Errorf("record does not match stage %s", stage)
	}
	s.Params = rec
	s.Enabled = true
	return nil
}

// SetBlend overrides the blend block of stage. A nil record restores the
// stage's preset.
func (p *Pipeline) SetBlend(stage params.Stage, rec *params.Record) error {
	s, err := p.setting(stage)
	if err != nil {
		return err
	}
	if rec != nil && rec.Schema() != params.SchemaFor(params.Blend) {
		return fmt.Errorf("record is not a blend block")
	}
	s.Blend = rec
	return nil
}

// Setting returns a copy of the current setting of stage.
func (p *Pipeline) Setting(stage params.Stage) (Setting, bool) {
	s, ok := p.settings[stage]
	if !ok {
		return Setting{}, false
	}
	return *s, true
}

// Resolve encodes every stage in processing order. A disabled stage carries
// its canonical defaults so darktable still accepts the history item.
func (p *Pipeline) Resolve() ([]Entry, error) {
	entries := make([]Entry, 0, len(Order))
	for _, stage := range Order {
		s := p.settings[stage]
		def, _ := stage.Definition()

		rec := s.Params
		if !s.Enabled {
			rec = params.Defaults(stage)
		}
		data, err := params.Encode(rec)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", stage, err)
		}

		blend := s.Blend
		if blend == nil {
			blend = params.BlendDefaults(stage)
		}
		blendData, err := params.Encode(blend)
		if err != nil {
			return nil, fmt.Errorf("encode %s blend params: %w", stage, err)
		}

		entries = append(entries, Entry{
			Stage:        stage,
			Operation:    def.Operation,
			Version:      def.Version,
			Enabled:      s.Enabled,
			Params:       data,
			Blend:        blendData,
			BlendVersion: params.BlendVersion,
		})
	}
	return entries, nil
}

// EnabledStages lists the stages that are on, in processing order.
func (p *Pipeline) EnabledStages() []params.Stage {
	var out []params.Stage
	for _, stage := range Order {
		if p.settings[stage].Enabled {
			out = append(out, stage)
		}
	}
	return out
}
