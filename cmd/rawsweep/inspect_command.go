package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rawsweep/internal/config"
	"rawsweep/internal/dng"
	"rawsweep/internal/params"
	"rawsweep/internal/sidecar"
)

type inspectOutput struct {
	Path         string    `json:"path"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	BlackLevels  [4]uint16 `json:"black_levels"`
	WhiteLevel   uint16    `json:"white_level"`
	WhiteBalance []float64 `json:"white_balance,omitempty"`
	Crop         [4]int    `json:"crop"`
	RawPrepare   string    `json:"rawprepare"`
	Temperature  string    `json:"temperature"`
}

func newInspectCommand() *cobra.Command {
	var asJSON bool
	var stageName string

	cmd := &cobra.Command{
		Use:   "inspect <file.dng|file.xmp>",
		Short: "Show DNG metadata or the history of a darktable sidecar",
		Long: "For a DNG, prints the values read from its TIFF structure and the rawprepare and " +
			"temperature blocks they produce. For an XMP sidecar, lists its history; " +
			"--stage decodes one stage's parameters.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if strings.EqualFold(filepath.Ext(path), ".xmp") {
				return inspectSidecar(cmd.OutOrStdout(), path, stageName)
			}
			meta, err := dng.ReadFile(path)
			if err != nil {
				return err
			}
			result, err := newInspectOutput(path, meta)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			printInspect(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output DNG metadata as JSON")
	cmd.Flags().StringVar(&stageName, "stage", "", "Decode the parameters of this stage from a sidecar")
	return cmd
}

func newInspectOutput(path string, meta *dng.Metadata) (inspectOutput, error) {
	rawPrepare, err := params.ToHex(meta.RawPrepare())
	if err != nil {
		return inspectOutput{}, err
	}
	temperature, err := params.ToHex(meta.Temperature())
	if err != nil {
		return inspectOutput{}, err
	}
	result := inspectOutput{
		Path:        path,
		Make:        meta.Make,
		Model:       meta.Model,
		Width:       meta.Width,
		Height:      meta.Height,
		BlackLevels: meta.BlackLevels,
		WhiteLevel:  meta.WhiteLevel,
		Crop:        [4]int{meta.CropLeft, meta.CropTop, meta.CropRight, meta.CropBottom},
		RawPrepare:  rawPrepare,
		Temperature: temperature,
	}
	if meta.HasWhiteBalance {
		result.WhiteBalance = meta.WhiteBalance[:]
	}
	return result, nil
}

func printInspect(out io.Writer, r inspectOutput) {
	wb := "as shot neutral missing"
	if len(r.WhiteBalance) == 3 {
		wb = fmt.Sprintf("%.4f %.4f %.4f", r.WhiteBalance[0], r.WhiteBalance[1], r.WhiteBalance[2])
	}
	rows := [][]string{
		{"File", r.Path},
		{"Camera", strings.TrimSpace(r.Make + " " + r.Model)},
		{"Size", fmt.Sprintf("%dx%d", r.Width, r.Height)},
		{"Black levels", fmt.Sprintf("%d %d %d %d", r.BlackLevels[0], r.BlackLevels[1], r.BlackLevels[2], r.BlackLevels[3])},
		{"White level", strconv.Itoa(int(r.WhiteLevel))},
		{"White balance", wb},
		{"Crop (l t r b)", fmt.Sprintf("%d %d %d %d", r.Crop[0], r.Crop[1], r.Crop[2], r.Crop[3])},
		{"rawprepare", r.RawPrepare},
		{"temperature", r.Temperature},
	}
	fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, rows, nil))
}

func inspectSidecar(out io.Writer, path, stageName string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	items, err := sidecar.ReadHistory(f)
	if err != nil {
		return err
	}

	if stageName != "" {
		stage, err := lookupStage(stageName)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.Operation != stage.String() {
				continue
			}
			data, err := sidecar.DecodeAttribute(item.Params)
			if err != nil {
				return err
			}
			rec, err := params.Decode(params.SchemaFor(stage), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s v%d enabled=%s\n", item.Operation, item.Version, yesNo(item.Enabled))
			fmt.Fprintln(out, renderFieldTable(rec))
			return nil
		}
		return fmt.Errorf("sidecar has no %s history item", stage)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		size := "?"
		if data, err := sidecar.DecodeAttribute(item.Params); err == nil {
			size = strconv.Itoa(len(data))
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Num),
			item.Operation,
			strconv.Itoa(item.Version),
			yesNo(item.Enabled),
			size,
			encodingLabel(item.Params),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Operation", "Version", "Enabled", "Bytes", "Encoding"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func encodingLabel(attr string) string {
	if strings.HasPrefix(attr, "gz") {
		return "gz" + attr[2:min(len(attr), 4)]
	}
	return "hex"
}
