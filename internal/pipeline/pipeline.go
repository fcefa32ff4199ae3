// Package pipeline runs media files through the fixed stage order
// transcribe, diarize, correct, translate, rechunk, render. Optional stages
// are pass-through no-ops when not configured. Files are processed in
// parallel up to a worker limit; one file's failure never aborts its
// siblings. After each successful stage the collection is persisted to the
// artifact store so the last-known-good output survives a later failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/captionforge/internal/correct"
	"github.com/MrWong99/captionforge/internal/diarize"
	"github.com/MrWong99/captionforge/internal/observe"
	"github.com/MrWong99/captionforge/internal/rechunk"
	"github.com/MrWong99/captionforge/internal/render"
	"github.com/MrWong99/captionforge/internal/store"
	"github.com/MrWong99/captionforge/internal/translate"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// DefaultWorkers bounds how many files are processed concurrently.
const DefaultWorkers = 2

// Config holds the validated parameters for the pipeline controller.
type Config struct {
	// OutputDir receives rendered files. Required.
	OutputDir string

	// Formats lists the render formats to produce. Required, see
	// [render.Formats] for valid names.
	Formats []string

	// RenderOptions is shared by all renderers.
	RenderOptions render.Options

	// Workers bounds cross-file parallelism. Zero selects [DefaultWorkers].
	Workers int

	// MaxDuration and MaxChars bound rendered segments; zero selects the
	// rechunk package defaults.
	MaxDuration float64
	MaxChars    int

	// MergeGap, when positive, enables the merge pass that joins adjacent
	// same-speaker segments separated by at most this many seconds.
	MergeGap float64
}

// Option customises a [Pipeline].
type Option func(*Pipeline)

// WithDiarization enables the speaker attribution stage.
func WithDiarization(st *diarize.Stage) Option {
	return func(p *Pipeline) { p.diarize = st }
}

// WithCorrection enables the transcript correction stage.
func WithCorrection(st *correct.Stage) Option {
	return func(p *Pipeline) { p.correct = st }
}

// WithTranslation enables the translation stage.
func WithTranslation(st *translate.Stage) Option {
	return func(p *Pipeline) { p.translate = st }
}

// WithStore enables stage-artifact persistence.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMetrics overrides the package-default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline is the stage controller. Construct with [New]; safe for
// concurrent use once built.
type Pipeline struct {
	transcriber Transcriber
	diarize     *diarize.Stage
	correct     *correct.Stage
	translate   *translate.Stage
	store       store.Store
	metrics     *observe.Metrics
	renderers   []render.Renderer
	cfg         Config
}

// New builds a pipeline around the required transcriber. At least one render
// format must be configured; unknown formats fail here rather than after a
// long transcription.
func New(t Transcriber, cfg Config, opts ...Option) (*Pipeline, error) {
	if t == nil {
		return nil, &segment.ConfigurationError{
			Param:  "transcriber",
			Reason: "pipeline requires a transcriber",
		}
	}
	if cfg.OutputDir == "" {
		return nil, &segment.ConfigurationError{
			Param:  "output_dir",
			Reason: "must not be empty",
		}
	}
	if len(cfg.Formats) == 0 {
		return nil, &segment.ConfigurationError{
			Param:  "formats",
			Reason: "at least one render format is required",
		}
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers < 0 {
		return nil, &segment.ConfigurationError{
			Param:  "workers",
			Reason: fmt.Sprintf("must be at least 1, got %d", cfg.Workers),
		}
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = rechunk.DefaultMaxDuration
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = rechunk.DefaultMaxChars
	}

	p := &Pipeline{transcriber: t, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}

	for _, format := range cfg.Formats {
		r, err := render.New(format, cfg.RenderOptions)
		if err != nil {
			return nil, err
		}
		p.renderers = append(p.renderers, r)
	}
	return p, nil
}

// Run processes all files, at most cfg.Workers at a time. Each file is
// isolated: a failure is logged and recorded but does not stop the others.
// The returned error joins all per-file failures, or is nil when every file
// rendered successfully.
func (p *Pipeline) Run(ctx context.Context, files []string) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := p.ProcessFile(ctx, file); err != nil {
				observe.Logger(ctx).Error("file processing failed",
					"source", file, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", file, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProcessFile runs one media file through every configured stage and returns
// the rendered output paths.
func (p *Pipeline) ProcessFile(ctx context.Context, mediaPath string) (outputs []string, err error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.file")
	defer span.End()

	start := time.Now()
	p.metrics.ActiveJobs.Add(ctx, 1)
	defer func() {
		p.metrics.ActiveJobs.Add(ctx, -1)
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordFile(ctx, status, time.Since(start))
	}()

	log := observe.Logger(ctx).With("source", mediaPath)
	log.Info("processing file")

	col, audioPath, cleanup, err := p.runTranscribe(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if p.diarize != nil {
		if col, err = p.runDiarize(ctx, audioPath, col); err != nil {
			return nil, err
		}
	}
	if p.correct != nil {
		if col, err = p.runStage(ctx, "correct", col, p.correct.Run); err != nil {
			return nil, err
		}
	}
	if p.translate != nil {
		if col, err = p.runStage(ctx, "translate", col, p.translate.Run); err != nil {
			return nil, err
		}
	}
	if col, err = p.runStage(ctx, "rechunk", col, p.rechunkRun); err != nil {
		return nil, err
	}

	outputs, err = p.renderAll(ctx, col, mediaPath)
	if err != nil {
		return nil, err
	}
	log.Info("file complete", "outputs", len(outputs), "segments", col.Len())
	return outputs, nil
}

// runTranscribe handles the one stage whose input is a file path rather than
// a collection.
func (p *Pipeline) runTranscribe(ctx context.Context, mediaPath string) (*segment.Collection, string, func(), error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe")
	defer span.End()

	start := time.Now()
	col, audioPath, cleanup, err := p.transcriber.Transcribe(ctx, mediaPath)
	p.recordStage(ctx, "transcribe", start, err, col)
	if err != nil {
		return nil, "", nil, err
	}
	p.saveArtifact(ctx, mediaPath, "transcribe", col)
	return col, audioPath, cleanup, nil
}

// runDiarize forwards the extracted audio path alongside the collection.
func (p *Pipeline) runDiarize(ctx context.Context, audioPath string, col *segment.Collection) (*segment.Collection, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.diarize")
	defer span.End()

	start := time.Now()
	out, err := p.diarize.Run(ctx, audioPath, col)
	p.recordStage(ctx, "diarize", start, err, out)
	if err != nil {
		return nil, err
	}
	p.saveArtifact(ctx, col.Source, "diarize", out)
	return out, nil
}

// runStage wraps a collection-to-collection stage with tracing, metrics, and
// artifact persistence.
func (p *Pipeline) runStage(ctx context.Context, name string, col *segment.Collection, fn func(context.Context, *segment.Collection) (*segment.Collection, error)) (*segment.Collection, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	out, err := fn(ctx, col)
	p.recordStage(ctx, name, start, err, out)
	if err != nil {
		return nil, err
	}
	p.saveArtifact(ctx, col.Source, name, out)
	return out, nil
}

// rechunkRun adapts the rechunk passes to the stage function shape.
func (p *Pipeline) rechunkRun(_ context.Context, col *segment.Collection) (*segment.Collection, error) {
	out, err := rechunk.Split(col, p.cfg.MaxDuration, p.cfg.MaxChars)
	if err != nil {
		return nil, err
	}
	if p.cfg.MergeGap > 0 {
		out, err = rechunk.Merge(out, p.cfg.MergeGap, p.cfg.MaxChars)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// renderAll writes the collection in every configured format. The output
// base name is the media file's base name with the format extension.
func (p *Pipeline) renderAll(ctx context.Context, col *segment.Collection, mediaPath string) ([]string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.render")
	defer span.End()

	start := time.Now()
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	outputs := make([]string, 0, len(p.renderers))
	for _, r := range p.renderers {
		path := filepath.Join(p.cfg.OutputDir, base+"."+r.Extension())
		if err := r.Render(col, path); err != nil {
			p.recordStage(ctx, "render", start, err, nil)
			return nil, err
		}
		outputs = append(outputs, path)
	}
	p.recordStage(ctx, "render", start, nil, col)
	return outputs, nil
}

// recordStage emits the stage duration histogram and segment counter.
func (p *Pipeline) recordStage(ctx context.Context, name string, start time.Time, err error, col *segment.Collection) {
	status := "ok"
	segments := 0
	if err != nil {
		status = "error"
	} else if col != nil {
		segments = col.Len()
	}
	p.metrics.RecordStage(ctx, name, status, time.Since(start), segments)
}

// saveArtifact persists a stage output. Persistence is best effort: the
// pipeline result is already in memory, so a store failure is logged and the
// run continues.
func (p *Pipeline) saveArtifact(ctx context.Context, source, stage string, col *segment.Collection) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, source, stage, col); err != nil {
		observe.Logger(ctx).Warn("artifact save failed",
			"source", source, "stage", stage, "error", err)
	}
}
