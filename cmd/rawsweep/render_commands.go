package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"rawsweep/internal/config"
	"rawsweep/internal/pipeline"
	"rawsweep/internal/services/darktable"
	"rawsweep/internal/sweep"
)

type pipelineFlags struct {
	base    string
	enable  []string
	disable []string
	sets    []string
	noSeed  bool
}

func (f *pipelineFlags) register(cmd *cobra.Command, defaultBase string) {
	cmd.Flags().StringVar(&f.base, "base", defaultBase, "Starting pipeline (minimal or full)")
	cmd.Flags().StringSliceVar(&f.enable, "enable", nil, "Stages to enable")
	cmd.Flags().StringSliceVar(&f.disable, "disable", nil, "Stages to disable")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "Override a field (stage.field=value, repeatable)")
	cmd.Flags().BoolVar(&f.noSeed, "no-seed", false, "Do not read black/white points and white balance from the DNG")
}

// build resolves the flags into a pipeline. Seeding from the DNG runs first
// so explicit overrides win.
func (f *pipelineFlags) build(runner *sweep.Runner, src string) (*pipeline.Pipeline, error) {
	p, err := basePipeline(f.base)
	if err != nil {
		return nil, err
	}
	if !f.noSeed {
		if _, err := runner.Seed(p, src); err != nil {
			return nil, err
		}
	}
	if err := toggleStages(p, f.enable, true); err != nil {
		return nil, err
	}
	if err := applyPipelineAssignments(p, f.sets); err != nil {
		return nil, err
	}
	if err := toggleStages(p, f.disable, false); err != nil {
		return nil, err
	}
	return p, nil
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags
	var showTimings bool

	cmd := &cobra.Command{
		Use:   "render <src.dng> <dst>",
		Short: "Render one raw file through a generated sidecar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, err := expandArgs(args[0], args[1])
			if err != nil {
				return err
			}
			if err := requireFile(src); err != nil {
				return err
			}
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			p, err := flags.build(runner, src)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			result, err := runner.Render(cmd.Context(), src, dst, p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printRenderResult(out, result)
			if showTimings && len(result.Timings) > 0 {
				fmt.Fprintln(out, renderTimingTable(result.Timings))
			}
			return nil
		},
	}

	flags.register(cmd, "minimal")
	cmd.Flags().BoolVar(&showTimings, "timings", false, "Print per-module processing times")
	return cmd
}

func newStageRenderCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "stage-render <src.dng> <dst-dir>",
		Short: "Render the pipeline repeatedly, dropping one stage from the back each time",
		Long: "Renders 000.tif with every stage of the base pipeline enabled, then " +
			"switches off filmic, color balance, sharpen, exposure, highlights and " +
			"white balance one after another.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dstDir, err := expandArgs(args[0], args[1])
			if err != nil {
				return err
			}
			if err := requireFile(src); err != nil {
				return err
			}
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			p, err := flags.build(runner, src)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dstDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			outcomes, err := runner.RenderStages(cmd.Context(), src, dstDir, p)
			out := cmd.OutOrStdout()
			for _, o := range outcomes {
				printRenderResult(out, o.Result)
			}
			return err
		},
	}

	flags.register(cmd, "full")
	return cmd
}

func printRenderResult(out io.Writer, result darktable.Result) {
	line := fmt.Sprintf("Rendered %s in %s", result.Output, result.Duration.Round(time.Millisecond))
	if result.PipelineSeconds > 0 {
		line += fmt.Sprintf(" (pipeline %.3fs)", result.PipelineSeconds)
	}
	fmt.Fprintln(out, line)
}

func renderTimingTable(timings []darktable.Timing) string {
	rows := make([][]string, 0, len(timings))
	for _, t := range timings {
		rows = append(rows, []string{t.Module, strconv.FormatFloat(t.Seconds, 'f', 3, 64)})
	}
	return renderTable([]string{"Module", "Seconds"}, rows, []columnAlignment{alignLeft, alignRight})
}

func expandArgs(src, dst string) (string, string, error) {
	src, err := config.ExpandPath(src)
	if err != nil {
		return "", "", err
	}
	dst, err = config.ExpandPath(dst)
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("source %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", path)
	}
	return nil
}
