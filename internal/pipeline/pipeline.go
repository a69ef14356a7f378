// Package pipeline runs one trace through the timeline engine: a producer
// goroutine pulls records from a trace.Source into a bounded FIFO while the
// consumer applies them, strictly in order, to a Builder or a Summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsgop/internal/config"
	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/timeline"
	"github.com/zsiec/tsgop/internal/trace"
)

// Pipeline bridges a trace source and the timeline engine for a single run.
type Pipeline struct {
	log   *slog.Logger
	src   trace.Source
	cfg   *config.Config
	stats timeline.StatsRecorder

	read      atomic.Int64
	applied   atomic.Int64
	queueHigh atomic.Int32
}

// New creates a Pipeline reading records from src. cfg supplies the initial
// stream roles, the delta schedule, the PUSI-only switch and the queue depth.
func New(src trace.Source, cfg *config.Config, opts ...func(*Pipeline)) *Pipeline {
	p := &Pipeline{
		log: slog.Default(),
		src: src,
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "pipeline")
	return p
}

// PipelineOptLogger sets the logger handed down to every component.
func PipelineOptLogger(log *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// PipelineOptStats attaches a StatsRecorder to the run.
func PipelineOptStats(s timeline.StatsRecorder) func(*Pipeline) {
	return func(p *Pipeline) {
		p.stats = s
	}
}

// Counters returns the number of records read from the source and applied
// to the engine, and the highest queue depth observed.
func (p *Pipeline) Counters() (read, applied int64, queueHigh int) {
	return p.read.Load(), p.applied.Load(), int(p.queueHigh.Load())
}

// newContext assembles the per-run engine state from the configuration.
func (p *Pipeline) newContext() *timeline.Context {
	mapOpts := []func(*streammap.Map){
		streammap.MapOptLogger(p.log),
		streammap.MapOptVideoPID(p.cfg.Streams.VideoPID),
		streammap.MapOptAudioPIDs(p.cfg.Streams.AudioPIDs),
	}
	schedOpts := []func(*pts.Schedule){
		pts.ScheduleOptLogger(p.log),
	}
	if p.stats != nil {
		mapOpts = append(mapOpts, streammap.MapOptOnUnknown(p.stats.RecordUnknownStreamType))
		schedOpts = append(schedOpts, pts.ScheduleOptOnChange(func(bp pts.Breakpoint) {
			p.stats.RecordDeltaChange(bp.Delta)
		}))
	}
	return timeline.NewContext(
		streammap.New(mapOpts...),
		pts.NewSchedule(p.cfg.Deltas, schedOpts...),
		timeline.ContextOptLogger(p.log),
		timeline.ContextOptStats(p.stats),
	)
}

// RunTimeline builds the corrected timeline of the whole trace.
func (p *Pipeline) RunTimeline(ctx context.Context) ([]timeline.Record, error) {
	b := timeline.NewBuilder(p.newContext(), timeline.BuilderOptPUSIOnly(p.cfg.PUSIOnly))
	if err := p.run(ctx, func(rec *trace.Record) error {
		b.Process(rec)
		return nil
	}); err != nil {
		return nil, err
	}
	return b.Finish()
}

// RunSummary summarizes the trace per coded frame, calling emit for each
// frame summary in packet order. An error from emit stops the run.
func (p *Pipeline) RunSummary(ctx context.Context, emit func(timeline.FrameSummary) error) error {
	s := timeline.NewSummary(p.newContext())
	err := p.run(ctx, func(rec *trace.Record) error {
		fs, ok := s.Process(rec)
		if !ok {
			return nil
		}
		return emit(fs)
	})
	if err != nil {
		return err
	}
	s.Finish()
	p.log.Info("summary complete", "frames", s.Frames())
	return nil
}

// run drains the source through a bounded channel into apply. The first
// error from either side cancels the other.
func (p *Pipeline) run(ctx context.Context, apply func(*trace.Record) error) error {
	g, ctx := errgroup.WithContext(ctx)
	queue := make(chan *trace.Record, p.cfg.Source.Queue)

	g.Go(func() error {
		defer close(queue)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := p.src.Next()
			if errors.Is(err, io.EOF) {
				p.log.Debug("source exhausted", "records", p.read.Load())
				return nil
			}
			if err != nil {
				return fmt.Errorf("pipeline: read record %d: %w", p.read.Load(), err)
			}
			p.read.Add(1)

			select {
			case queue <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
			if depth := int32(len(queue)); depth > p.queueHigh.Load() {
				p.queueHigh.Store(depth)
			}
		}
	})

	g.Go(func() error {
		for rec := range queue {
			if err := apply(rec); err != nil {
				return fmt.Errorf("pipeline: packet %d: %w", rec.Index, err)
			}
			p.applied.Add(1)
		}
		return nil
	})

	return g.Wait()
}
