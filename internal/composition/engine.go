package composition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"split-compositor/internal/layout"
	"split-compositor/internal/media/probe"
	"split-compositor/internal/plan"
	"split-compositor/internal/storage"
	"split-compositor/internal/transcode"
)

// Default canvas is a 9:16 portrait frame.
const (
	DefaultCanvasWidth  = 1080
	DefaultCanvasHeight = 1920
)

// Stage names a step of a composition run, as reported to progress callbacks.
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageFetching  Stage = "fetching"
	StageProbing   Stage = "probing"
	StagePlanning  Stage = "planning"
	StageRendering Stage = "rendering"
	StageRendered  Stage = "rendered"
)

// ProgressFunc receives the current stage and an overall percentage.
type ProgressFunc func(stage Stage, percent int)

// Prober reads the duration of a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) probe.Media
}

// Transcoder renders a plan with an external tool.
type Transcoder interface {
	CheckAvailable() error
	Execute(ctx context.Context, p plan.Plan, workDir string, progress transcode.ProgressFunc) ([]byte, error)
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	ScratchDir   string
	CanvasWidth  int
	CanvasHeight int
	Encoding     plan.Encoding
}

// Request is a single composition of two stored assets.
type Request struct {
	RunID        string
	PrimaryKey   string
	SecondaryKey string
	Layout       layout.Config
}

// Result is the rendered composite.
type Result struct {
	Bytes       []byte
	SizeInBytes int
	ContentType string
}

// Engine sequences fetch, probe, layout, planning and rendering for one run.
// It keeps no state between runs and may be used concurrently.
type Engine struct {
	fetcher    storage.Fetcher
	prober     Prober
	transcoder Transcoder
	opts       Options
	log        *slog.Logger
}

// NewEngine returns an Engine using the given collaborators.
func NewEngine(fetcher storage.Fetcher, prober Prober, transcoder Transcoder, log *slog.Logger, opts Options) *Engine {
	if opts.ScratchDir == "" {
		opts.ScratchDir = filepath.Join(os.TempDir(), "split-compositor")
	}
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		opts.CanvasWidth, opts.CanvasHeight = DefaultCanvasWidth, DefaultCanvasHeight
	}
	if opts.Encoding == (plan.Encoding{}) {
		opts.Encoding = plan.DefaultEncoding()
	}
	return &Engine{fetcher: fetcher, prober: prober, transcoder: transcoder, opts: opts, log: log}
}

// Plan computes the composition plan for two local files without rendering.
func (e *Engine) Plan(ctx context.Context, primaryPath, secondaryPath string, cfg layout.Config) (plan.Plan, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return plan.Plan{}, err
	}
	primary, secondary := e.probeBoth(ctx, primaryPath, secondaryPath)
	return e.buildPlan(cfg, primary, secondary)
}

// Compose renders the composite for req. The run's scratch workspace is
// removed before Compose returns, whatever the outcome.
func (e *Engine) Compose(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if progress == nil {
		progress = func(Stage, int) {}
	}
	log := e.log.With(slog.String("run_id", req.RunID))
	started := time.Now()

	fail := func(stage Stage, err error) (Result, error) {
		log.Error("composition failed",
			slog.String("stage", string(stage)),
			slog.String("error_kind", string(Classify(err))),
			slog.String("error", err.Error()))
		return Result{}, &RunError{RunID: req.RunID, Stage: string(stage), Err: err}
	}

	cfg := req.Layout.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fail(StagePreflight, err)
	}
	if err := e.transcoder.CheckAvailable(); err != nil {
		return fail(StagePreflight, err)
	}

	workDir, err := e.createWorkspace(req.RunID)
	if err != nil {
		return fail(StagePreflight, err)
	}
	defer e.removeWorkspace(log, workDir)

	progress(StageFetching, 5)
	primaryPath := filepath.Join(workDir, "primary"+extension(req.PrimaryKey))
	secondaryPath := filepath.Join(workDir, "secondary"+extension(req.SecondaryKey))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.fetchTo(gctx, req.PrimaryKey, primaryPath) })
	g.Go(func() error { return e.fetchTo(gctx, req.SecondaryKey, secondaryPath) })
	if err := g.Wait(); err != nil {
		return fail(StageFetching, err)
	}

	progress(StageProbing, 20)
	primary, secondary := e.probeBoth(ctx, primaryPath, secondaryPath)
	log.Info("sources probed",
		slog.Float64("primary_seconds", primary.DurationSeconds),
		slog.Float64("secondary_seconds", secondary.DurationSeconds))

	p, err := e.buildPlan(cfg, primary, secondary)
	if err != nil {
		return fail(StagePlanning, err)
	}
	if p.CornerRadius > 0 {
		log.Debug("corner radius is advisory and not rendered", slog.Int("corner_radius", p.CornerRadius))
	}

	progress(StageRendering, 25)
	data, err := e.transcoder.Execute(ctx, p, workDir, func(pct int) {
		progress(StageRendering, 25+pct*65/100)
	})
	if err != nil {
		return fail(StageRendering, err)
	}
	progress(StageRendered, 90)

	log.Info("composition rendered",
		slog.Int("size_bytes", len(data)),
		slog.Float64("output_seconds", p.OutputDurationSeconds),
		slog.Int64("elapsed_ms", time.Since(started).Milliseconds()))
	return Result{Bytes: data, SizeInBytes: len(data), ContentType: p.Encoding.ContentType}, nil
}

func (e *Engine) buildPlan(cfg layout.Config, primary, secondary probe.Media) (plan.Plan, error) {
	geom, err := layout.ComputeGeometry(cfg, e.opts.CanvasWidth, e.opts.CanvasHeight)
	if err != nil {
		return plan.Plan{}, err
	}
	return plan.Build(geom, primary, secondary, cfg, e.opts.Encoding)
}

func (e *Engine) probeBoth(ctx context.Context, primaryPath, secondaryPath string) (probe.Media, probe.Media) {
	var primary, secondary probe.Media
	var g errgroup.Group
	g.Go(func() error { primary = e.prober.Probe(ctx, primaryPath); return nil })
	g.Go(func() error { secondary = e.prober.Probe(ctx, secondaryPath); return nil })
	_ = g.Wait()
	return primary, secondary
}

func (e *Engine) fetchTo(ctx context.Context, key, path string) error {
	data, err := e.fetcher.Fetch(ctx, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("persist %q: %w", key, err)
	}
	return nil
}

// createWorkspace makes a directory exclusive to runID; it fails if another
// run already holds one with the same id.
func (e *Engine) createWorkspace(runID string) (string, error) {
	if err := os.MkdirAll(e.opts.ScratchDir, 0o755); err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	dir := filepath.Join(e.opts.ScratchDir, "run-"+safeName(runID))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	return dir, nil
}

func (e *Engine) removeWorkspace(log *slog.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("failed to remove workspace", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	log.Debug("workspace removed", slog.String("dir", dir))
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
}

func extension(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ext == "" || len(ext) > 6 || strings.ContainsAny(ext, `/\`) {
		return ".mp4"
	}
	return ext
}
