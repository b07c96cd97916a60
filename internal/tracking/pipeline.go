// Package tracking turns a propagator and a ground site into a time series of
// corrected antenna pointing angles.
//
// Every sample is a pure function of its instant: the position is propagated,
// projected onto the site's horizon, optionally refracted and optionally
// rotated into the tilted mount frame. Nothing is carried from one sample to
// the next, which lets RunParallel compute samples concurrently while still
// emitting them in chronological order.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/trackgen/internal/atmosphere"
	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/observability"
	"github.com/star/trackgen/internal/refraction"
	"github.com/star/trackgen/internal/tilt"
	"github.com/star/trackgen/internal/transform"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Propagator evaluates the target's Earth-fixed position at an instant.
type Propagator interface {
	PositionAt(t time.Time) (transform.PositionECEF, error)
}

// Options fixes the corrections applied for a whole run.
type Options struct {
	Site        transform.Site
	Refraction  bool
	Atmosphere  atmosphere.State
	Tilt        tilt.Mount
	VisibleOnly bool // drop samples whose corrected elevation is below 0
}

// Sample is the pointing solution at one instant.
type Sample struct {
	Index        int
	Time         time.Time
	Geometric    transform.LookAngles // before refraction and tilt
	AzimuthDeg   float64              // corrected, [0, 360)
	ElevationDeg float64              // corrected
}

// Visible reports whether the corrected elevation is at or above the horizon.
func (s Sample) Visible() bool { return s.ElevationDeg >= 0 }

// Sink receives samples in chronological order.
type Sink interface {
	Emit(Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample) error

func (f SinkFunc) Emit(s Sample) error { return f(s) }

// Stats summarizes a run.
type Stats struct {
	Computed int
	Emitted  int
	Duration time.Duration
}

// Pipeline computes pointing samples for one target and one site.
// It is immutable after construction apart from registered observers.
type Pipeline struct {
	prop        Propagator
	observer    transform.ObserverPosition
	refract     bool
	corrector   refraction.Corrector
	tilt        tilt.Mount
	visibleOnly bool
	observers   []func(Sample)
	logger      *slog.Logger
}

// New creates a pipeline. The observer position is computed once here.
func New(prop Propagator, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		prop:        prop,
		observer:    transform.NewObserverPosition(opts.Site),
		refract:     opts.Refraction,
		corrector:   refraction.NewCorrector(opts.Atmosphere),
		tilt:        opts.Tilt,
		visibleOnly: opts.VisibleOnly,
		logger:      logger,
	}
}

// Observe registers fn to be called with every computed sample, in order,
// including samples the VisibleOnly filter keeps from the sink. Observers
// must be registered before a run starts.
func (p *Pipeline) Observe(fn func(Sample)) {
	p.observers = append(p.observers, fn)
}

// Sample computes the pointing solution at t.
func (p *Pipeline) Sample(t time.Time) (Sample, error) {
	return p.sampleAt(0, t)
}

func (p *Pipeline) sampleAt(index int, t time.Time) (Sample, error) {
	pos, err := p.prop.PositionAt(t)
	if err != nil {
		return Sample{}, err
	}

	geo := p.observer.Project(pos)
	el := geo.ElevationDeg
	if p.refract {
		el = p.corrector.Apply(el)
	}
	az, el := p.tilt.Apply(geo.AzimuthDeg, el)

	return Sample{
		Index:        index,
		Time:         t,
		Geometric:    geo,
		AzimuthDeg:   az,
		ElevationDeg: el,
	}, nil
}

// Run computes every instant of w in order and emits each sample to sink.
// The first propagation or sink failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, w Window, sink Sink) (Stats, error) {
	return p.execute(ctx, w, "sequential", 1, sink, func(ctx context.Context, st *Stats) error {
		i := 0
		for t := range w.Instants() {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := p.sampleAt(i, t)
			if err != nil {
				metrics.IncPropagationErrors()
				return fmt.Errorf("sample %d at %s: %w", i, t.UTC().Format(timeLayout), err)
			}
			st.Computed++
			if err := p.emit(s, sink, st); err != nil {
				return err
			}
			i++
		}
		return nil
	})
}

// RunParallel is Run with samples computed by a pool of workers. Output
// order and content are identical to Run.
func (p *Pipeline) RunParallel(ctx context.Context, w Window, workers int, sink Sink) (Stats, error) {
	pool := NewWorkerPool(workers, p.logger)
	return p.execute(ctx, w, "parallel", pool.workers, sink, func(ctx context.Context, st *Stats) error {
		metrics.SetWorkersActive(pool.workers)
		defer metrics.SetWorkersActive(0)

		batchSize := pool.workers * jobsPerWorker
		batch := make([]sampleJob, 0, batchSize)

		flush := func() error {
			samples, err := pool.SampleBatch(ctx, p, batch)
			st.Computed += len(samples)
			for _, s := range samples {
				if eerr := p.emit(s, sink, st); eerr != nil {
					return eerr
				}
			}
			batch = batch[:0]
			return err
		}

		i := 0
		for t := range w.Instants() {
			batch = append(batch, sampleJob{index: i, t: t})
			i++
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if len(batch) > 0 {
			return flush()
		}
		return nil
	})
}

func (p *Pipeline) emit(s Sample, sink Sink, st *Stats) error {
	for _, fn := range p.observers {
		fn(s)
	}
	if p.visibleOnly && !s.Visible() {
		return nil
	}
	if err := sink.Emit(s); err != nil {
		return fmt.Errorf("emit sample %d: %w", s.Index, err)
	}
	st.Emitted++
	return nil
}

// execute wraps a run body with validation, tracing, metrics and logging.
func (p *Pipeline) execute(ctx context.Context, w Window, mode string, workers int, sink Sink, body func(context.Context, *Stats) error) (Stats, error) {
	var st Stats
	if err := w.Validate(); err != nil {
		return st, err
	}

	ctx, span := observability.StartSpan(ctx, "tracking.run",
		attribute.String("tracking.mode", mode),
		attribute.Int("tracking.workers", workers),
		attribute.Int("tracking.planned", w.Count()),
		attribute.Int64("tracking.step_ms", w.Step.Milliseconds()),
	)
	defer span.End()

	start := time.Now()
	err := body(ctx, &st)
	st.Duration = time.Since(start)

	metrics.RecordRun(st.Duration, st.Computed, st.Emitted, err)
	span.SetAttributes(
		attribute.Int("tracking.computed", st.Computed),
		attribute.Int("tracking.emitted", st.Emitted),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("track run failed",
			"component", "tracking",
			"mode", mode,
			"computed", st.Computed,
			"error", err,
		)
		return st, err
	}

	p.logger.Info("track run complete",
		"component", "tracking",
		"mode", mode,
		"workers", workers,
		"samples", st.Computed,
		"emitted", st.Emitted,
		"duration_ms", st.Duration.Milliseconds(),
	)
	return st, nil
}
