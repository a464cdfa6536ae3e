package preflight

import (
	"context"
	"strings"

	"rawsweep/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Resolved}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return append(results, CheckDirectories(cfg)...)
}

// CheckDirectories verifies the directories a sweep reads from and writes to.
func CheckDirectories(cfg *config.Config) []Result {
	var results []Result
	if strings.TrimSpace(cfg.Sweep.SourceDir) != "" {
		results = append(results, CheckDirectoryReadable("Source directory", cfg.Sweep.SourceDir))
	}
	results = append(results, CheckDirectoryCreatable("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryCreatable("Log directory", cfg.Paths.LogDir))

	if cfg.Sweep.ConvertDumps {
		results = append(results, CheckDirectoryAccess("Dump directory", cfg.Paths.DumpDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
