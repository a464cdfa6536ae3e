package sweep_test

import (
	"testing"

	"rawsweep/internal/config"
	"rawsweep/internal/params"
	"rawsweep/internal/sweep"
)

func TestPlanFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Sweep.SourceDir = "/raws"
	cfg.Sweep.OnlyStages = []string{"sharpen"}

	plan, err := sweep.PlanFromConfig(&cfg)
	if err != nil {
		t.Fatalf("PlanFromConfig: %v", err)
	}
	if plan.Stage != params.ColorBalanceRGB || plan.Field != "contrast" {
		t.Fatalf("unexpected stage %s.%s", plan.Stage, plan.Field)
	}
	if len(plan.Values) != 7 || plan.Values[0] != -0.5 || plan.Values[6] != 0.9 {
		t.Fatalf("values = %v", plan.Values)
	}
	enabled := plan.Base.EnabledStages()
	if len(enabled) != 3 || enabled[2] != params.Sharpen {
		t.Fatalf("base stages = %v", enabled)
	}
	if !plan.ConvertDumps || plan.DumpDir != "/tmp" || len(plan.DumpStages) != 7 {
		t.Fatalf("dump settings = %+v", plan)
	}

	cfg.Sweep.Base = "full"
	cfg.Sweep.OnlyStages = nil
	plan, err = sweep.PlanFromConfig(&cfg)
	if err != nil {
		t.Fatalf("PlanFromConfig full: %v", err)
	}
	if len(plan.Base.EnabledStages()) != 7 {
		t.Fatalf("full base stages = %v", plan.Base.EnabledStages())
	}

	cfg.Sweep.Stage = "demosaic"
	if _, err := sweep.PlanFromConfig(&cfg); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}
