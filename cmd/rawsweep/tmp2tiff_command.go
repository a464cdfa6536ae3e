package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"rawsweep/internal/config"
	"rawsweep/internal/tmpdump"
)

func newTmp2TiffCommand(ctx *commandContext) *cobra.Command {
	var prefix string
	var stages []string
	var scale float64
	var noCompress bool
	var quantize bool
	var showMissing bool

	cmd := &cobra.Command{
		Use:   "tmp2tiff [dir]",
		Short: "Convert darktable .tmp pipeline dumps to TIFF",
		Long: "Reads <stage>_in.tmp and <stage>_out.tmp for each stage and writes 32-bit float TIFFs " +
			"with one or three channels. --quantize writes 16-bit TIFFs clipped to [0,1] instead. " +
			"The directory defaults to paths.dump_dir.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Paths.DumpDir
			if len(args) == 1 {
				if dir, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("stages") {
				stages = cfg.Sweep.DumpStages
			}
			if prefix != "" {
				if prefix, err = config.ExpandPath(prefix); err != nil {
					return err
				}
			}

			results, convErr := tmpdump.ConvertDir(dir, stages, prefix, tmpdump.Options{
				Scale:    scale,
				Compress: !noCompress,
				Quantize: quantize,
			})
			printConversions(cmd.OutOrStdout(), results, showMissing)
			return convErr
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Output path prefix; outputs are written next to the dumps when empty")
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "Stages to convert (defaults to sweep.dump_stages)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Multiply samples before writing")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "Write uncompressed TIFFs")
	cmd.Flags().BoolVar(&quantize, "quantize", false, "Write 16-bit integer TIFFs clipped to [0,1]")
	cmd.Flags().BoolVar(&showMissing, "show-missing", false, "List dumps that were not found")
	return cmd
}

func printConversions(out io.Writer, results []tmpdump.Conversion, showMissing bool) {
	converted, missing := 0, 0
	var rows [][]string
	for _, c := range results {
		switch {
		case c.Missing:
			missing++
			if showMissing {
				rows = append(rows, []string{c.Stage, c.Suffix, "missing", "", c.Source})
			}
		case c.Err != nil:
			rows = append(rows, []string{c.Stage, c.Suffix, "error", "", c.Err.Error()})
		default:
			converted++
			size := fmt.Sprintf("%dx%d", c.Width, c.Height)
			rows = append(rows, []string{c.Stage, c.Suffix, strconv.Itoa(c.Channels) + "ch", size, c.Output})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Stage", "Dump", "Result", "Size", "Output"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Converted %d dumps (%d missing)\n", converted, missing)
}
