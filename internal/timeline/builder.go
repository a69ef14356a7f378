package timeline

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/trace"
)

// ErrEmptyTimeline is returned by Builder.Finish when no record of the trace
// produced a valid timestamp.
var ErrEmptyTimeline = errors.New("timeline: no valid records")

// Record is one point of the timeline.
type Record struct {
	Packet  int64
	PTSOrig pts.PTS
	PTS     pts.PTS
	PUSI    bool
	Frame   trace.Frame
}

// Builder collects the corrected timeline of the video and audio PIDs.
type Builder struct {
	ctx      *Context
	log      *slog.Logger
	pusiOnly bool
	records  []Record
	dropped  map[uint16]int64
}

// NewBuilder creates a Builder that owns ctx.
func NewBuilder(ctx *Context, opts ...func(*Builder)) *Builder {
	b := &Builder{
		ctx:     ctx,
		log:     ctx.log.With("mode", "timeline"),
		dropped: make(map[uint16]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuilderOptPUSIOnly skips packets that do not start a payload unit.
func BuilderOptPUSIOnly(on bool) func(*Builder) {
	return func(b *Builder) {
		b.pusiOnly = on
	}
}

// Process applies one record. Program-map records update the roles and
// produce no output. Records on PIDs that are neither video nor audio are
// ignored. A video or audio record whose corrected timestamp is invalid is
// dropped and counted against its PID.
func (b *Builder) Process(rec *trace.Record) {
	role, ord := b.ctx.classify(rec)
	if rec.PMT != nil || role == streammap.RoleOther {
		return
	}
	if b.pusiOnly && !rec.PUSI {
		return
	}

	orig, corrected := b.ctx.correct(rec)
	if !corrected.Valid() {
		b.dropped[rec.PID]++
		b.ctx.stats.RecordDropped(rec.PID)
		b.log.Debug("dropping record", "packet", rec.Index, "pid", rec.PID)
		return
	}

	frame := rec.Frame
	if frame.IsNone() {
		if role == streammap.RoleVideo {
			frame = trace.GenericVideo
		} else {
			frame = trace.Audio(ord)
		}
	}
	b.records = append(b.records, Record{
		Packet:  rec.Index,
		PTSOrig: orig,
		PTS:     corrected,
		PUSI:    rec.PUSI,
		Frame:   frame,
	})
	b.ctx.stats.RecordEmitted(role)
}

// Dropped returns a copy of the per-PID dropped record counts.
func (b *Builder) Dropped() map[uint16]int64 {
	out := make(map[uint16]int64, len(b.dropped))
	for pid, n := range b.dropped {
		out[pid] = n
	}
	return out
}

// Finish reports the end-of-run diagnostics and returns the timeline. It
// returns ErrEmptyTimeline if no record was produced.
func (b *Builder) Finish() ([]Record, error) {
	pids := make([]uint16, 0, len(b.dropped))
	for pid := range b.dropped {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	for _, pid := range pids {
		b.log.Warn("dropped records without a valid pts", "pid", pid, "count", b.dropped[pid])
	}
	b.ctx.finish()

	if len(b.records) == 0 {
		return nil, ErrEmptyTimeline
	}
	return b.records, nil
}
