// Package trace defines the per-packet record model produced by transport
// stream demultiplexers, and sources that deliver those records in packet
// order: a parser for the line-oriented dump of an external demultiplexer
// and a wrapper that runs that demultiplexer as a child process.
package trace

import (
	"fmt"
	"strconv"

	"github.com/zsiec/tsgop/internal/pts"
)

// FrameKind enumerates the coded-frame labels a record can carry.
type FrameKind uint8

const (
	FrameNone FrameKind = iota
	FrameIntra
	FramePredicted
	FrameBidirectional
	FrameVideo
	FrameAudio
)

// Frame is the coded-frame label of a record. Ordinal is set only for
// FrameAudio and numbers audio streams from 1.
type Frame struct {
	Kind    FrameKind
	Ordinal int
}

// Convenience values for the video labels.
var (
	Intra         = Frame{Kind: FrameIntra}
	Predicted     = Frame{Kind: FramePredicted}
	Bidirectional = Frame{Kind: FrameBidirectional}
	GenericVideo  = Frame{Kind: FrameVideo}
)

// Audio returns the label of the audio stream with the given ordinal.
func Audio(ordinal int) Frame {
	return Frame{Kind: FrameAudio, Ordinal: ordinal}
}

// IsNone reports whether the record carries no frame label.
func (f Frame) IsNone() bool { return f.Kind == FrameNone }

// IsVideo reports whether f is one of I, P, B or V.
func (f Frame) IsVideo() bool {
	return f.Kind >= FrameIntra && f.Kind <= FrameVideo
}

// IsAudio reports whether f labels an audio stream.
func (f Frame) IsAudio() bool { return f.Kind == FrameAudio }

// String returns the dump token for f: I, P, B, V, the audio ordinal, or "-".
func (f Frame) String() string {
	switch f.Kind {
	case FrameIntra:
		return "I"
	case FramePredicted:
		return "P"
	case FrameBidirectional:
		return "B"
	case FrameVideo:
		return "V"
	case FrameAudio:
		return strconv.Itoa(f.Ordinal)
	default:
		return "-"
	}
}

// ParseFrame parses a dump token produced by String.
func ParseFrame(s string) (Frame, error) {
	switch s {
	case "-", "":
		return Frame{}, nil
	case "I":
		return Intra, nil
	case "P":
		return Predicted, nil
	case "B":
		return Bidirectional, nil
	case "V":
		return GenericVideo, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Frame{}, fmt.Errorf("trace: unknown frame type %q", s)
	}
	return Audio(n), nil
}

// ElementaryStream is one stream declared by a program map section.
type ElementaryStream struct {
	StreamType uint8
	PID        uint16
}

// PMT is the payload of a program-map update record.
type PMT struct {
	PID     uint16
	Streams []ElementaryStream
}

// Record describes one transport packet, or a program-map update. Index
// strictly increases along a trace.
type Record struct {
	Index  int64
	Offset int64 // byte offset, -1 when unknown
	PID    uint16
	Raw    bool // packet could not be decoded; PID is meaningless
	PUSI   bool
	PTS    pts.PTS
	Frame  Frame
	PMT    *PMT
}

// NewRecord returns a record with no offset, timestamp, or frame label.
func NewRecord(index int64, pid uint16) *Record {
	return &Record{
		Index:  index,
		Offset: -1,
		PID:    pid,
		PTS:    pts.Invalid,
	}
}
