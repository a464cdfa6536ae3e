package tmpdump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Suffixes are the dump variants written around each stage.
var Suffixes = []string{"in", "out"}

// Conversion reports one dump file.
type Conversion struct {
	Stage    string
	Suffix   string
	Source   string
	Output   string
	Missing  bool
	Width    int
	Height   int
	Channels int
	Err      error
}

// ConvertDir converts <dir>/<stage>_<suffix>.tmp for every stage and suffix.
// Outputs are named <prefix>_<stage>_<suffix>.tif, or written next to the
// dumps when prefix is empty. Missing dumps are reported, not treated as
// errors; the returned error joins every failed conversion.
func ConvertDir(dir string, stages []string, prefix string, opts Options) ([]Conversion, error) {
	var results []Conversion
	var errs []error
	for _, stage := range stages {
		for _, suffix := range Suffixes {
			conv := Conversion{
				Stage:  stage,
				Suffix: suffix,
				Source: filepath.Join(dir, fmt.Sprintf("%s_%s.tmp", stage, suffix)),
			}
			if prefix == "" {
				conv.Output = filepath.Join(dir, fmt.Sprintf("%s_%s.tif", stage, suffix))
			} else {
				conv.Output = fmt.Sprintf("%s_%s_%s.tif", prefix, stage, suffix)
			}
			if _, err := os.Stat(conv.Source); errors.Is(err, fs.ErrNotExist) {
				conv.Missing = true
				results = append(results, conv)
				continue
			}
			im, err := ConvertFile(conv.Source, conv.Output, opts)
			if err != nil {
				conv.Err = err
				errs = append(errs, fmt.Errorf("convert %s: %w", conv.Source, err))
			} else {
				conv.Width, conv.Height, conv.Channels = im.Width, im.Height, min(im.Channels, MaxChannels)
			}
			results = append(results, conv)
		}
	}
	return results, errors.Join(errs...)
}
