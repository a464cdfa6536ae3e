package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rawsweep/internal/params"
)

var stageLabels = map[params.Stage]string{
	params.RawPrepare:      "raw black/white point",
	params.Temperature:     "white balance",
	params.Highlights:      "highlight reconstruction",
	params.Exposure:        "exposure",
	params.Sharpen:         "sharpen",
	params.ColorBalanceRGB: "color balance rgb",
	params.FilmicRGB:       "filmic rgb",
	params.Blend:           "blending",
}

func stageTitle(stage params.Stage) string {
	label, ok := stageLabels[stage]
	if !ok {
		label = stage.String()
	}
	return cases.Title(language.English).String(label)
}

func lookupStage(name string) (params.Stage, error) {
	stage, ok := params.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown stage %q (run `rawsweep stages` for the list)", name)
	}
	return stage, nil
}

func newStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "stages [stage]",
		Short:       "List parameter blocks or the field layout of one stage",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, renderStageTable())
				return nil
			}
			stage, err := lookupStage(args[0])
			if err != nil {
				return err
			}
			def, _ := stage.Definition()
			fmt.Fprintf(out, "%s (%s v%d, %d bytes)\n", stageTitle(stage), def.Operation, def.Version, def.ByteLength)
			fmt.Fprintln(out, renderFieldTable(params.Defaults(stage)))
			return nil
		},
	}
}

func renderStageTable() string {
	var rows [][]string
	for _, stage := range params.Stages() {
		def, _ := stage.Definition()
		rows = append(rows, []string{
			def.Operation,
			stageTitle(stage),
			strconv.Itoa(def.Version),
			strconv.Itoa(def.Schema.Len()),
			strconv.Itoa(def.ByteLength),
		})
	}
	return renderTable(
		[]string{"Operation", "Name", "Version", "Fields", "Bytes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

// renderFieldTable lists every field of rec with its offset, type and current
// value.
func renderFieldTable(rec *params.Record) string {
	var rows [][]string
	for _, f := range rec.Schema().Fields() {
		value, _ := rec.Get(f.Name)
		rows = append(rows, []string{
			strconv.Itoa(f.Offset),
			f.Name,
			f.Type.String(),
			formatFieldValue(value),
		})
	}
	return renderTable(
		[]string{"Offset", "Field", "Type", "Value"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func formatFieldValue(v any) string {
	switch val := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case []byte:
		return strings.TrimRight(string(val), "\x00")
	case *params.Record:
		return fmt.Sprintf("{%d fields}", val.Schema().Len())
	case []float32:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatFieldValue(item)
		}
		return strings.Join(parts, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatFieldValue(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
