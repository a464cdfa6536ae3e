package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rawsweep/internal/config"
	"rawsweep/internal/ledger"
	"rawsweep/internal/preflight"
	"rawsweep/internal/sweep"
)

type sweepOverrides struct {
	source       string
	output       string
	stage        string
	field        string
	start        float64
	stop         float64
	steps        int
	offset       int
	limit        int
	format       string
	base         string
	only         []string
	convertDumps bool
	skipChecks   bool
	dryRun       bool
}

func (o *sweepOverrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("source") {
		path, err := config.ExpandPath(o.source)
		if err != nil {
			return err
		}
		cfg.Sweep.SourceDir = path
	}
	if flags.Changed("output") {
		path, err := config.ExpandPath(o.output)
		if err != nil {
			return err
		}
		cfg.Paths.OutputDir = path
	}
	if flags.Changed("stage") {
		cfg.Sweep.Stage = strings.ToLower(strings.TrimSpace(o.stage))
	}
	if flags.Changed("field") {
		cfg.Sweep.Field = strings.TrimSpace(o.field)
	}
	if flags.Changed("start") {
		cfg.Sweep.Start = o.start
	}
	if flags.Changed("stop") {
		cfg.Sweep.Stop = o.stop
	}
	if flags.Changed("steps") {
		cfg.Sweep.Steps = o.steps
	}
	if flags.Changed("offset") {
		cfg.Sweep.Offset = o.offset
	}
	if flags.Changed("limit") {
		cfg.Sweep.Limit = o.limit
	}
	if flags.Changed("format") {
		cfg.Sweep.OutputFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(o.format)), ".")
	}
	if flags.Changed("base") {
		cfg.Sweep.Base = strings.ToLower(strings.TrimSpace(o.base))
	}
	if flags.Changed("only") {
		cfg.Sweep.OnlyStages = o.only
	}
	if flags.Changed("convert-dumps") {
		cfg.Sweep.ConvertDumps = o.convertDumps
	}
	return cfg.Validate()
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var overrides sweepOverrides

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Render every DNG in the source directory across a range of field values",
		Long: "Sweeps one numeric field of one stage across evenly spaced values and renders " +
			"each DNG once per value. Outputs that already exist are skipped, so an " +
			"interrupted sweep resumes where it stopped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *loaded
			if err := overrides.apply(cmd, &cfg); err != nil {
				return err
			}
			plan, err := sweep.PlanFromConfig(&cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if overrides.dryRun {
				return printSweepPlan(out, plan)
			}

			if !overrides.skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), &cfg)); len(failed) > 0 {
					for _, r := range failed {
						fmt.Fprintln(out, renderStatusLine(r.Name, statusError, r.Detail, shouldColorize(out)))
					}
					return errors.New("preflight checks failed")
				}
			}

			return ctx.withLedger(func(store *ledger.Store) error {
				runner, err := ctx.newRunner(sweep.WithLedger(store))
				if err != nil {
					return err
				}
				summary, runErr := runner.Run(cmd.Context(), plan)
				if summary != nil {
					printSweepSummary(out, summary)
				}
				if runErr != nil {
					return runErr
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d renders failed", summary.Failed, len(summary.Outcomes))
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.source, "source", "", "Directory of DNG files (overrides sweep.source_dir)")
	flags.StringVarP(&overrides.output, "output", "o", "", "Output directory (overrides paths.output_dir)")
	flags.StringVar(&overrides.stage, "stage", "", "Stage holding the swept field")
	flags.StringVar(&overrides.field, "field", "", "Field to sweep")
	flags.Float64Var(&overrides.start, "start", 0, "First value")
	flags.Float64Var(&overrides.stop, "stop", 0, "Last value")
	flags.IntVar(&overrides.steps, "steps", 0, "Number of values, both ends included")
	flags.IntVar(&overrides.offset, "offset", 0, "Skip this many sources after sorting")
	flags.IntVar(&overrides.limit, "limit", 0, "Render at most this many sources (0 for all)")
	flags.StringVar(&overrides.format, "format", "", "Output format extension")
	flags.StringVar(&overrides.base, "base", "", "Starting pipeline (minimal or full)")
	flags.StringSliceVar(&overrides.only, "only", nil, "Extra stages to enable on the base pipeline")
	flags.BoolVar(&overrides.convertDumps, "convert-dumps", false, "Convert darktable .tmp dumps after each render")
	flags.BoolVar(&overrides.skipChecks, "skip-preflight", false, "Skip dependency and directory checks")
	flags.BoolVar(&overrides.dryRun, "dry-run", false, "Print the planned renders without running darktable")
	return cmd
}

func printSweepPlan(out io.Writer, plan sweep.Plan) error {
	all, err := sweep.Discover(plan.SourceDir)
	if err != nil {
		return err
	}
	sources := sweep.Select(all, plan.Offset, plan.Limit)
	fmt.Fprintf(out, "Sweep %s.%s over %d values for %d of %d sources\n",
		plan.Stage, plan.Field, len(plan.Values), len(sources), len(all))
	var rows [][]string
	for _, src := range sources {
		for _, v := range plan.Values {
			dst := sweep.OutputPrefix(plan.OutputDir, src, plan.Field, v) + "." + plan.OutputFormat
			rows = append(rows, []string{filepath.Base(src), strconv.FormatFloat(v, 'f', 3, 64), dst})
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Source", "Value", "Output"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft}))
	return nil
}

func printSweepSummary(out io.Writer, summary *sweep.Summary) {
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		detail := filepath.Base(o.Output)
		if o.Err != nil {
			detail = o.Err.Error()
		}
		rows = append(rows, []string{
			filepath.Base(o.Source),
			strconv.FormatFloat(o.Value, 'f', 3, 64),
			string(o.Status),
			formatDuration(o.Result.Duration),
			detail,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Source", "Value", "Status", "Time", "Output"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
		))
	}

	kind := statusOK
	if summary.Failed > 0 {
		kind = statusError
	}
	message := fmt.Sprintf("%d rendered, %d skipped, %d failed in %s",
		summary.Rendered, summary.Skipped, summary.Failed, formatDuration(summary.Duration))
	fmt.Fprintln(out, renderStatusLine("Sweep", kind, message, colorize))
	if summary.RunID != "" {
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, summary.RunID, colorize))
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
