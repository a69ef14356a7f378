package timeline

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/trace"
)

// FrameSummary describes one coded frame and the packets seen since the
// previous frame.
type FrameSummary struct {
	Frame      trace.Frame
	PTS        pts.PTS
	Packet     int64
	Offset     int64 // -1 when unknown
	GOP        int   // -1 before the first intra frame
	FrameIndex int
	Video      int64
	Audio      int64
	Other      int64
}

// String formats s as "T, PTS, PACKET, BYTE, GOP, INDEX, VIDEO, AUDIO, OTHER".
// Absent values are printed as "-".
func (s FrameSummary) String() string {
	offset := "-"
	if s.Offset >= 0 {
		offset = strconv.FormatInt(s.Offset, 10)
	}
	return fmt.Sprintf("%s, %s, %d, %s, %d, %d, %d, %d, %d",
		s.Frame, s.PTS, s.Packet, offset, s.GOP, s.FrameIndex, s.Video, s.Audio, s.Other)
}

// Summary buckets packet counts between successive coded frames.
type Summary struct {
	ctx        *Context
	log        *slog.Logger
	gop        int
	frameIndex int
	video      int64
	audio      int64
	other      int64
	frames     int64
}

// NewSummary creates a Summary that owns ctx.
func NewSummary(ctx *Context) *Summary {
	return &Summary{
		ctx: ctx,
		log: ctx.log.With("mode", "summary"),
		gop: -1,
	}
}

// Process applies one record and returns the summary of the frame it
// starts, if any. Every record without a frame label is counted by role.
// A frame label updates the GOP bookkeeping (I starts a new GOP, P, B and V
// advance the frame index) and resets the counters; a summary is returned
// only when the record is on the video PID or an audio PID.
func (s *Summary) Process(rec *trace.Record) (FrameSummary, bool) {
	role, _ := s.ctx.classify(rec)

	corrected := pts.Invalid
	if role != streammap.RoleOther {
		_, corrected = s.ctx.correct(rec)
	}

	if rec.Frame.IsNone() {
		switch role {
		case streammap.RoleVideo:
			s.video++
		case streammap.RoleAudio:
			s.audio++
		default:
			s.other++
		}
		return FrameSummary{}, false
	}

	switch rec.Frame.Kind {
	case trace.FrameIntra:
		s.gop++
		s.frameIndex = 0
	case trace.FramePredicted, trace.FrameBidirectional, trace.FrameVideo:
		s.frameIndex++
	}
	s.ctx.stats.RecordFrame(rec.Frame)

	var (
		out  FrameSummary
		emit = role != streammap.RoleOther
	)
	if emit {
		out = FrameSummary{
			Frame:      rec.Frame,
			PTS:        corrected,
			Packet:     rec.Index,
			Offset:     rec.Offset,
			GOP:        s.gop,
			FrameIndex: s.frameIndex,
			Video:      s.video,
			Audio:      s.audio,
			Other:      s.other,
		}
		s.frames++
		s.ctx.stats.RecordEmitted(role)
	} else {
		s.log.Warn("frame label on a PID that is neither video nor audio",
			"packet", rec.Index, "pid", rec.PID, "type", rec.Frame.String())
	}
	s.video, s.audio, s.other = 0, 0, 0
	return out, emit
}

// Frames returns the number of summaries produced so far.
func (s *Summary) Frames() int64 {
	return s.frames
}

// Finish reports the end-of-run diagnostics.
func (s *Summary) Finish() {
	s.ctx.finish()
}
