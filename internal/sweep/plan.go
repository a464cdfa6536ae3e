package sweep

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"rawsweep/internal/config"
	"rawsweep/internal/params"
	"rawsweep/internal/pipeline"
)

// Plan describes one sweep.
type Plan struct {
	SourceDir    string
	Stage        params.Stage
	Field        string
	Values       []float64
	Base         *pipeline.Pipeline
	OutputDir    string
	OutputFormat string
	Offset       int
	Limit        int
	Compress     bool
	ConvertDumps bool
	DumpDir      string
	DumpStages   []string
}

// PlanFromConfig builds the configured sweep.
func PlanFromConfig(cfg *config.Config) (Plan, error) {
	stage, ok := params.Lookup(cfg.Sweep.Stage)
	if !ok {
		return Plan{}, fmt.Errorf("unknown sweep stage %q", cfg.Sweep.Stage)
	}
	base := pipeline.Minimal()
	if cfg.Sweep.Base == "full" {
		base = pipeline.New()
	}
	for _, name := range cfg.Sweep.OnlyStages {
		extra, ok := params.Lookup(name)
		if !ok {
			return Plan{}, fmt.Errorf("unknown stage %q", name)
		}
		if err := base.Enable(extra); err != nil {
			return Plan{}, err
		}
	}
	return Plan{
		SourceDir:    cfg.Sweep.SourceDir,
		Stage:        stage,
		Field:        cfg.Sweep.Field,
		Values:       pipeline.Linspace(cfg.Sweep.Start, cfg.Sweep.Stop, cfg.Sweep.Steps),
		Base:         base,
		OutputDir:    cfg.Paths.OutputDir,
		OutputFormat: cfg.Sweep.OutputFormat,
		Offset:       cfg.Sweep.Offset,
		Limit:        cfg.Sweep.Limit,
		Compress:     cfg.Darktable.CompressParams,
		ConvertDumps: cfg.Sweep.ConvertDumps,
		DumpDir:      cfg.Paths.DumpDir,
		DumpStages:   append([]string(nil), cfg.Sweep.DumpStages...),
	}, nil
}

func (p Plan) validate() error {
	switch {
	case strings.TrimSpace(p.SourceDir) == "":
		return errors.New("sweep source directory is required")
	case strings.TrimSpace(p.OutputDir) == "":
		return errors.New("sweep output directory is required")
	case p.Base == nil:
		return errors.New("sweep base pipeline is required")
	case len(p.Values) == 0:
		return errors.New("sweep has no values")
	case p.Offset < 0 || p.Limit < 0:
		return errors.New("sweep offset and limit must not be negative")
	}
	schema := params.SchemaFor(p.Stage)
	if schema == nil || p.Stage == params.Blend {
		return fmt.Errorf("stage %s cannot be swept", p.Stage)
	}
	field, ok := schema.Field(p.Field)
	if !ok {
		return fmt.Errorf("%s.%s: %w", p.Stage, p.Field, params.ErrUnknownField)
	}
	if !field.Type.Scalar() {
		return fmt.Errorf("%s.%s is %s and cannot be swept", p.Stage, p.Field, field.Type)
	}
	return nil
}

// OutputPrefix names a variant's outputs: the source's base name, then the
// field and value, e.g. a0001.dng_contrast=[-0.500]. The render adds its
// format extension and dump conversions add _<stage>_<suffix>.tif.
func OutputPrefix(outputDir, source, field string, value float64) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s=[%.3f]", filepath.Base(source), field, value))
}

// Discover returns every .dng file below dir, sorted by path.
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".dng") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover sources in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Select applies offset and limit to sorted sources. limit <= 0 means all.
func Select(paths []string, offset, limit int) []string {
	if offset >= len(paths) {
		return nil
	}
	paths = paths[offset:]
	if limit > 0 && limit < len(paths) {
		paths = paths[:limit]
	}
	return paths
}
