package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rawsweep/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, ledger.Run{
		Stage:     "colorbalancergb",
		Field:     "contrast",
		SourceDir: "/raws",
		OutputDir: "/renders",
		Values:    []float64{-0.5, 0.2, 0.9},
	})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" || run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	renders := []ledger.Render{
		{RunID: run.ID, SourcePath: "/raws/a.dng", OutputPath: "/renders/a_contrast=[-0.500].png", Value: -0.5, Stages: []string{"rawprepare", "temperature", "colorbalancergb"}, Status: ledger.StatusOK, Duration: 1500 * time.Millisecond, PipelineSeconds: 1.2},
		{RunID: run.ID, SourcePath: "/raws/a.dng", OutputPath: "/renders/a_contrast=[0.200].png", Value: 0.2, Status: ledger.StatusSkipped},
		{RunID: run.ID, SourcePath: "/raws/a.dng", OutputPath: "/renders/a_contrast=[0.900].png", Value: 0.9, Status: ledger.StatusTimeout, ErrorMessage: "timeout"},
	}
	for _, r := range renders {
		if _, err := store.RecordRender(ctx, r); err != nil {
			t.Fatalf("RecordRender: %v", err)
		}
	}
	if err := store.FinishRun(ctx, run.ID, ledger.StatusFailed, ledger.Counts{Rendered: 1, Skipped: 1, Failed: 1}, errors.New("1 render failed")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != ledger.StatusFailed || got.Rendered != 1 || got.Skipped != 1 || got.Failed != 1 {
		t.Fatalf("unexpected finished run: %+v", got)
	}
	if len(got.Values) != 3 || got.Values[2] != 0.9 {
		t.Fatalf("values = %v", got.Values)
	}
	if got.FinishedAt.IsZero() || got.ErrorMessage != "1 render failed" {
		t.Fatalf("finish fields not stored: %+v", got)
	}

	stored, err := store.Renders(ctx, run.ID)
	if err != nil {
		t.Fatalf("Renders: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("got %d renders", len(stored))
	}
	if stored[0].Duration != 1500*time.Millisecond || len(stored[0].Stages) != 3 {
		t.Fatalf("unexpected first render: %+v", stored[0])
	}
	if stored[1].Stages != nil || stored[1].Status != ledger.StatusSkipped {
		t.Fatalf("unexpected second render: %+v", stored[1])
	}
	if !stored[2].Status.IsFailure() || stored[2].ErrorMessage != "timeout" {
		t.Fatalf("unexpected third render: %+v", stored[2])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := store.BeginRun(ctx, ledger.Run{Stage: "exposure", Field: "exposure", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("runs not newest first: %v, %v", runs[0].StartedAt, runs[1].StartedAt)
	}
	if runs[0].Values == nil || len(runs[0].Values) != 0 {
		t.Fatalf("empty values should decode to an empty slice: %v", runs[0].Values)
	}
}

func TestMissingRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.GetRun(ctx, "nope"); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("GetRun: %v", err)
	}
	if err := store.FinishRun(ctx, "nope", ledger.StatusOK, ledger.Counts{}, nil); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("FinishRun: %v", err)
	}
	if _, err := store.RecordRender(ctx, ledger.Render{}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestGetRunTreatsWildcardsLiterally(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.BeginRun(ctx, ledger.Run{Stage: "exposure", Field: "exposure"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for _, id := range []string{"%", "_", "%" + run.ID[1:], run.ID[:1] + "_", `\`} {
		if _, err := store.GetRun(ctx, id); !errors.Is(err, ledger.ErrRunNotFound) {
			t.Fatalf("GetRun(%q) = %v, want ErrRunNotFound", id, err)
		}
	}
	if got, err := store.GetRun(ctx, run.ID[:4]); err != nil || got.ID != run.ID {
		t.Fatalf("prefix lookup = %v, %v", got, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run, err := store.BeginRun(context.Background(), ledger.Run{Stage: "sharpen", Field: "amount"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	store.Close()

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), run.ID); err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
}
