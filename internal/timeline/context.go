// Package timeline reconstructs the corrected per-stream PTS timeline of a
// transport stream trace and summarizes it per coded frame.
//
// A [Context] holds the state shared by both consumers: the PID roles
// ([streammap.Map]), the per-PID carried timestamps ([CarryForward]) and the
// delta schedule ([pts.Schedule]). Records are applied strictly in order by
// a single goroutine; a [Builder] or a [Summary] owns its Context for the
// duration of a run.
package timeline

import (
	"log/slog"

	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/trace"
)

// discontinuityTicks is the PTS step on one PID, either way, that is
// logged as a discontinuity.
const discontinuityTicks = 90000

// Context is the mutable state of one run.
type Context struct {
	Streams  *streammap.Map
	Carry    *CarryForward
	Schedule *pts.Schedule

	log   *slog.Logger
	stats StatsRecorder
	raw   int64
}

// NewContext creates a Context over the given roles and schedule. A nil
// schedule applies no correction.
func NewContext(streams *streammap.Map, schedule *pts.Schedule, opts ...func(*Context)) *Context {
	if schedule == nil {
		schedule = pts.NewSchedule(nil)
	}
	c := &Context{
		Streams:  streams,
		Carry:    NewCarryForward(),
		Schedule: schedule,
		log:      slog.Default(),
		stats:    nopStats{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "timeline")
	return c
}

// ContextOptLogger sets the logger.
func ContextOptLogger(log *slog.Logger) func(*Context) {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// ContextOptStats attaches a StatsRecorder.
func ContextOptStats(s StatsRecorder) func(*Context) {
	return func(c *Context) {
		if s != nil {
			c.stats = s
		}
	}
}

// RawPackets returns the number of undecodable packets seen so far.
func (c *Context) RawPackets() int64 {
	return c.raw
}

// classify counts the record and returns its role. Raw records are always
// RoleOther. A program-map record updates the roles before its own PID is
// classified.
func (c *Context) classify(rec *trace.Record) (streammap.Role, int) {
	if rec.Raw {
		c.raw++
		c.stats.RecordRaw()
		c.stats.RecordPacket(streammap.RoleOther)
		return streammap.RoleOther, 0
	}
	if c.Streams.Apply(rec.PMT) {
		c.stats.RecordPMT()
	}
	role, ord := c.Streams.Classify(rec.PID)
	c.stats.RecordPacket(role)
	return role, ord
}

// correct returns the effective original and corrected timestamps of a
// video or audio record.
func (c *Context) correct(rec *trace.Record) (orig, corrected pts.PTS) {
	if rec.PUSI && rec.PTS.Valid() {
		if last, ok := c.Carry.Last(rec.PID); ok {
			if d := pts.Diff(rec.PTS, last); d > discontinuityTicks || d < -discontinuityTicks {
				c.log.Debug("pts discontinuity", "pid", rec.PID, "packet", rec.Index, "from", last, "to", rec.PTS, "diff", d)
			}
		}
	}
	orig = c.Carry.Observe(rec.PID, rec.PUSI, rec.PTS)
	return orig, c.Schedule.Correct(orig)
}

// finish logs the end-of-run diagnostics shared by both consumers.
func (c *Context) finish() {
	if c.raw > 0 {
		c.log.Warn("found raw packets", "count", c.raw)
	}
	if rest := c.Schedule.Remaining(); len(rest) > 0 {
		c.log.Debug("pts breakpoints never reached", "count", len(rest), "next", rest[0].String())
	}
	video, _ := c.Streams.VideoPID()
	c.log.Debug("final stream roles", "video_pid", video, "audio_pids", c.Streams.AudioPIDs(), "active_delta", c.Schedule.Active())
}
