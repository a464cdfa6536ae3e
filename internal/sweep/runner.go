package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"rawsweep/internal/dng"
	"rawsweep/internal/ledger"
	"rawsweep/internal/logging"
	"rawsweep/internal/params"
	"rawsweep/internal/pipeline"
	"rawsweep/internal/services"
	"rawsweep/internal/services/darktable"
	"rawsweep/internal/sidecar"
	"rawsweep/internal/tmpdump"
)

const lockFileName = ".rawsweep.lock"

// ErrLocked is returned when another sweep holds the output directory.
var ErrLocked = errors.New("output directory is locked by another sweep")

// Renderer renders a raw file through a sidecar.
type Renderer interface {
	Render(ctx context.Context, src, xmp, dst string) (darktable.Result, error)
}

// MetadataReader extracts DNG metadata for seeding rawprepare and temperature.
type MetadataReader func(path string) (*dng.Metadata, error)

// Option configures a Runner.
type Option func(*Runner)

// WithLedger records runs and renders in store.
func WithLedger(store *ledger.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetadataReader replaces dng.ReadFile.
func WithMetadataReader(fn MetadataReader) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readMetadata = fn
		}
	}
}

// WithTempDir sets where sidecars are written. Empty means the system temp
// directory.
func WithTempDir(dir string) Option {
	return func(r *Runner) { r.tempDir = dir }
}

// WithCompression toggles gzNN encoding of large parameter blobs for
// single renders. Sweeps take it from the plan.
func WithCompression(enabled bool) Option {
	return func(r *Runner) { r.compress = enabled }
}

// Runner drives darktable renders.
type Runner struct {
	renderer     Renderer
	store        *ledger.Store
	logger       *slog.Logger
	readMetadata MetadataReader
	tempDir      string
	compress     bool
}

// NewRunner constructs a runner around renderer.
func NewRunner(renderer Renderer, opts ...Option) *Runner {
	r := &Runner{
		renderer:     renderer,
		logger:       logging.NewNop(),
		readMetadata: dng.ReadFile,
		compress:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "sweep")
	return r
}

// Outcome is the result of one variant.
type Outcome struct {
	Source string
	Output string
	Value  float64
	Status ledger.Status
	Err    error
	Result darktable.Result
	Dumps  []tmpdump.Conversion
}

// Summary totals a sweep.
type Summary struct {
	RunID    string
	Sources  int
	Rendered int
	Skipped  int
	Failed   int
	Outcomes []Outcome
	Duration time.Duration
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Status == ledger.StatusSkipped:
		s.Skipped++
	case o.Status.IsFailure():
		s.Failed++
	default:
		s.Rendered++
	}
}

// Seed sets rawprepare and temperature of p from the DNG at src.
func (r *Runner) Seed(p *pipeline.Pipeline, src string) (*dng.Metadata, error) {
	meta, err := r.readMetadata(src)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sweep", "read dng metadata", filepath.Base(src), err)
	}
	if err := p.SetParams(params.RawPrepare, meta.RawPrepare()); err != nil {
		return nil, err
	}
	if err := p.SetParams(params.Temperature, meta.Temperature()); err != nil {
		return nil, err
	}
	return meta, nil
}

// Render writes a sidecar for p and renders src into dst.
func (r *Runner) Render(ctx context.Context, src, dst string, p *pipeline.Pipeline) (darktable.Result, error) {
	return r.render(ctx, src, dst, p, r.compress)
}

func (r *Runner) render(ctx context.Context, src, dst string, p *pipeline.Pipeline, compress bool) (darktable.Result, error) {
	entries, err := p.Resolve()
	if err != nil {
		return darktable.Result{}, services.Wrap(services.ErrValidation, "sweep", "encode pipeline", "", err)
	}
	doc, err := sidecar.Build(entries, sidecar.Options{Compress: compress})
	if err != nil {
		return darktable.Result{}, services.Wrap(services.ErrValidation, "sweep", "build sidecar", "", err)
	}
	xmp, err := sidecar.WriteTemp(r.tempDir, doc)
	if err != nil {
		return darktable.Result{}, services.Wrap(services.ErrConfiguration, "sweep", "write sidecar", "", err)
	}
	defer os.Remove(xmp)
	return r.renderer.Render(ctx, src, xmp, dst)
}

// RenderStages renders the progressive disable plan of base into dstDir as
// 000.tif, 001.tif and so on, the first with every stage of base enabled.
func (r *Runner) RenderStages(ctx context.Context, src, dstDir string, base *pipeline.Pipeline) ([]Outcome, error) {
	var outcomes []Outcome
	for i, p := range pipeline.ProgressiveDisable(base) {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		dst := filepath.Join(dstDir, fmt.Sprintf("%03d.tif", i))
		result, err := r.Render(ctx, src, dst, p)
		outcome := Outcome{Source: src, Output: dst, Value: float64(i), Status: ledger.StatusOK, Result: result}
		if err != nil {
			outcome.Status = services.FailureStatus(err)
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			return outcomes, err
		}
		r.logger.Info("stage render written",
			logging.String(logging.FieldEventType, "stage_render_complete"),
			logging.String("output", dst),
			logging.Int("enabled_stages", len(p.EnabledStages())),
		)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Run executes plan. Individual render failures are recorded and counted;
// the returned error is reserved for setup problems and cancellation.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Summary, error) {
	if err := plan.validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "sweep", "plan", "", err)
	}
	if err := os.MkdirAll(plan.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sweep", "create output directory", plan.OutputDir, err)
	}

	lock := flock.New(filepath.Join(plan.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	all, err := Discover(plan.SourceDir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "sweep", "discover", plan.SourceDir, err)
	}
	sources := Select(all, plan.Offset, plan.Limit)

	started := time.Now()
	summary := &Summary{Sources: len(sources)}
	if r.store != nil {
		run, err := r.store.BeginRun(ctx, ledger.Run{
			Stage:     plan.Stage.String(),
			Field:     plan.Field,
			SourceDir: plan.SourceDir,
			OutputDir: plan.OutputDir,
			Values:    plan.Values,
		})
		if err != nil {
			return nil, err
		}
		summary.RunID = run.ID
		ctx = services.WithRunID(ctx, run.ID)
	}
	ctx = services.WithStage(ctx, plan.Stage.String())

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("sweep started",
		logging.String(logging.FieldEventType, "sweep_start"),
		logging.String("field", plan.Field),
		logging.Int("sources", len(sources)),
		logging.Int("discovered", len(all)),
		logging.Int("values", len(plan.Values)),
	)

	runErr := r.sweepSources(ctx, plan, sources, summary)
	summary.Duration = time.Since(started)

	status := ledger.StatusOK
	switch {
	case runErr != nil:
		status = ledger.StatusCanceled
	case summary.Failed > 0:
		status = ledger.StatusFailed
	}
	if r.store != nil {
		counts := ledger.Counts{Rendered: summary.Rendered, Skipped: summary.Skipped, Failed: summary.Failed}
		if err := r.store.FinishRun(context.WithoutCancel(ctx), summary.RunID, status, counts, runErr); err != nil {
			logger.Error("failed to finish ledger run", logging.Error(err))
		}
	}

	logger.Info("sweep finished",
		logging.String(logging.FieldEventType, "sweep_complete"),
		logging.String("status", string(status)),
		logging.Int("rendered", summary.Rendered),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (r *Runner) sweepSources(ctx context.Context, plan Plan, sources []string, summary *Summary) error {
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcCtx := services.WithSource(ctx, src)
		logger := logging.WithContext(srcCtx, r.logger)
		logger.Info("processing source",
			logging.String(logging.FieldEventType, "source_start"),
			logging.Int("index", plan.Offset+i),
		)

		base := plan.Base.Clone()
		variants, err := r.variants(base, plan, src)
		if err != nil {
			logging.ErrorWithContext(logger, "source skipped", "source_invalid",
				logging.String(logging.FieldErrorHint, "check that the file is a readable DNG"),
				logging.Error(err),
			)
			for _, v := range plan.Values {
				outcome := Outcome{
					Source: src,
					Output: OutputPrefix(plan.OutputDir, src, plan.Field, v) + "." + plan.OutputFormat,
					Value:  v,
					Status: services.FailureStatus(err),
					Err:    err,
				}
				r.record(srcCtx, summary, outcome, nil)
			}
			continue
		}

		for _, variant := range variants {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := r.renderVariant(srcCtx, logger, plan, src, variant)
			r.record(srcCtx, summary, outcome, variant.Pipeline.EnabledStages())
		}
	}
	return nil
}

func (r *Runner) variants(base *pipeline.Pipeline, plan Plan, src string) ([]pipeline.Variant, error) {
	if _, err := r.Seed(base, src); err != nil {
		return nil, err
	}
	return pipeline.Variants(base, plan.Stage, plan.Field, plan.Values)
}

func (r *Runner) renderVariant(ctx context.Context, logger *slog.Logger, plan Plan, src string, variant pipeline.Variant) Outcome {
	prefix := OutputPrefix(plan.OutputDir, src, plan.Field, variant.Value)
	outcome := Outcome{Source: src, Output: prefix + "." + plan.OutputFormat, Value: variant.Value}

	if _, err := os.Stat(outcome.Output); err == nil {
		logger.Info("render skipped, output exists",
			logging.String(logging.FieldEventType, "render_skipped"),
			logging.String("output", outcome.Output),
		)
		outcome.Status = ledger.StatusSkipped
		return outcome
	}

	if plan.ConvertDumps {
		r.clearDumps(logger, plan)
	}

	result, err := r.render(ctx, src, outcome.Output, variant.Pipeline, plan.Compress)
	outcome.Result = result
	if err != nil {
		outcome.Status = services.FailureStatus(err)
		outcome.Err = err
		logging.WarnWithContext(logger, "render failed", "render_failed",
			logging.String("output", outcome.Output),
			logging.Float64("value", variant.Value),
			logging.String(logging.FieldImpact, "variant missing from sweep output"),
			logging.Error(err),
		)
		return outcome
	}
	outcome.Status = ledger.StatusOK
	logger.Info("render complete",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output", outcome.Output),
		logging.Float64("value", variant.Value),
		logging.Duration("duration", result.Duration),
	)

	if plan.ConvertDumps {
		dumps, err := tmpdump.ConvertDir(plan.DumpDir, plan.DumpStages, prefix, tmpdump.Options{Compress: true})
		outcome.Dumps = dumps
		if err != nil {
			logging.WarnWithContext(logger, "dump conversion failed", "dump_conversion_failed",
				logging.String("dump_dir", plan.DumpDir),
				logging.Error(err),
			)
		}
	}
	return outcome
}

// clearDumps removes dumps left by the previous render so a stage that is
// disabled now is not converted from stale data.
func (r *Runner) clearDumps(logger *slog.Logger, plan Plan) {
	for _, stage := range plan.DumpStages {
		for _, suffix := range tmpdump.Suffixes {
			path := filepath.Join(plan.DumpDir, fmt.Sprintf("%s_%s.tmp", stage, suffix))
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Debug("could not remove stale dump", logging.String("path", path), logging.Error(err))
			}
		}
	}
}

func (r *Runner) record(ctx context.Context, summary *Summary, o Outcome, stages []params.Stage) {
	summary.add(o)
	if r.store == nil {
		return
	}
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.String())
	}
	render := ledger.Render{
		RunID:           summary.RunID,
		SourcePath:      o.Source,
		OutputPath:      o.Output,
		Value:           o.Value,
		Stages:          names,
		Status:          o.Status,
		Duration:        o.Result.Duration,
		PipelineSeconds: o.Result.PipelineSeconds,
	}
	if o.Err != nil {
		render.ErrorMessage = o.Err.Error()
	}
	if _, err := r.store.RecordRender(context.WithoutCancel(ctx), render); err != nil {
		r.logger.Error("failed to record render", logging.String("output", o.Output), logging.Error(err))
	}
}
