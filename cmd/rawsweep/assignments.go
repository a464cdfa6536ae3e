package main

import (
	"fmt"
	"strings"

	"rawsweep/internal/params"
	"rawsweep/internal/pipeline"
)

type assignment struct {
	stage string
	field string
	value string
}

// parseAssignment splits "field=value", or "stage.field=value" when
// qualified is set.
func parseAssignment(raw string, qualified bool) (assignment, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return assignment{}, fmt.Errorf("invalid assignment %q (want name=value)", raw)
	}
	a := assignment{field: key, value: strings.TrimSpace(value)}
	if !qualified {
		return a, nil
	}
	stage, field, ok := strings.Cut(key, ".")
	if !ok || stage == "" || field == "" {
		return assignment{}, fmt.Errorf("invalid assignment %q (want stage.field=value)", raw)
	}
	a.stage = strings.ToLower(stage)
	a.field = field
	return a, nil
}

func applyRecordAssignments(rec *params.Record, raw []string) error {
	for _, item := range raw {
		a, err := parseAssignment(item, false)
		if err != nil {
			return err
		}
		if err := rec.SetText(a.field, a.value); err != nil {
			return err
		}
	}
	return nil
}

// applyPipelineAssignments sets stage.field values on p. Overriding a field
// enables its stage.
func applyPipelineAssignments(p *pipeline.Pipeline, raw []string) error {
	for _, item := range raw {
		a, err := parseAssignment(item, true)
		if err != nil {
			return err
		}
		stage, err := lookupStage(a.stage)
		if err != nil {
			return err
		}
		rec, err := p.Params(stage)
		if err != nil {
			return err
		}
		if err := rec.SetText(a.field, a.value); err != nil {
			return err
		}
		if err := p.Enable(stage); err != nil {
			return err
		}
	}
	return nil
}

func toggleStages(p *pipeline.Pipeline, names []string, enable bool) error {
	for _, name := range names {
		stage, err := lookupStage(name)
		if err != nil {
			return err
		}
		if enable {
			err = p.Enable(stage)
		} else {
			err = p.Disable(stage)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func basePipeline(name string) (*pipeline.Pipeline, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "minimal":
		return pipeline.Minimal(), nil
	case "full":
		return pipeline.New(), nil
	default:
		return nil, fmt.Errorf("unknown base pipeline %q (want minimal or full)", name)
	}
}
