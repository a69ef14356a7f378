// Package streammap tracks which PIDs of a transport stream carry the video
// stream and the audio streams. Roles start from configuration and are
// replaced by every program-map update seen in the trace.
package streammap

import (
	"log/slog"
	"slices"

	"github.com/zsiec/tsgop/internal/mpegts"
	"github.com/zsiec/tsgop/internal/trace"
)

// Role is the part a PID plays in the timeline.
type Role uint8

const (
	RoleOther Role = iota
	RoleVideo
	RoleAudio
)

func (r Role) String() string {
	switch r {
	case RoleVideo:
		return "video"
	case RoleAudio:
		return "audio"
	default:
		return "other"
	}
}

// Snapshot is a copy of the roles at one point of the trace. Audio lists
// the audio PIDs in ordinal order.
type Snapshot struct {
	VideoPID uint16
	HasVideo bool
	Audio    []uint16
}

// Equal reports whether s and o assign the same roles.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.VideoPID == o.VideoPID && s.HasVideo == o.HasVideo && slices.Equal(s.Audio, o.Audio)
}

// Map resolves PIDs to roles. There is at most one video PID; audio PIDs are
// numbered densely from 1. A Map is not safe for concurrent use.
type Map struct {
	log       *slog.Logger
	videoPID  uint16
	hasVideo  bool
	audio     []uint16
	ordinals  map[uint16]int
	unknown   map[uint8]bool
	onUnknown func(streamType uint8)
}

// New creates a Map with no roles assigned.
func New(opts ...func(*Map)) *Map {
	m := &Map{
		log:      slog.Default(),
		ordinals: make(map[uint16]int),
		unknown:  make(map[uint8]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "streammap")
	return m
}

// MapOptLogger sets the logger.
func MapOptLogger(log *slog.Logger) func(*Map) {
	return func(m *Map) {
		if log != nil {
			m.log = log
		}
	}
}

// MapOptVideoPID sets the initial video PID.
func MapOptVideoPID(pid uint16) func(*Map) {
	return func(m *Map) {
		m.videoPID, m.hasVideo = pid, true
	}
}

// MapOptAudioPIDs sets the initial audio PIDs; ordinals follow list order.
func MapOptAudioPIDs(pids []uint16) func(*Map) {
	return func(m *Map) {
		m.setAudio(pids)
	}
}

// MapOptOnUnknown registers a callback invoked the first time each
// unrecognized stream type is seen.
func MapOptOnUnknown(fn func(streamType uint8)) func(*Map) {
	return func(m *Map) {
		m.onUnknown = fn
	}
}

func (m *Map) setAudio(pids []uint16) {
	m.audio = m.audio[:0:0]
	m.ordinals = make(map[uint16]int, len(pids))
	for _, pid := range pids {
		if _, dup := m.ordinals[pid]; dup {
			continue
		}
		m.audio = append(m.audio, pid)
		m.ordinals[pid] = len(m.audio)
	}
}

// Apply updates the roles from a program map. The last video stream of the
// map replaces the video PID; a map without video keeps the current one. The
// audio streams of the map replace the audio mapping entirely, numbered in
// the order they are declared. Unrecognized stream types are logged once per
// Map and otherwise ignored. A nil pmt leaves the roles untouched and Apply
// returns false.
func (m *Map) Apply(pmt *trace.PMT) bool {
	if pmt == nil {
		return false
	}

	var audio []uint16
	for _, es := range pmt.Streams {
		switch {
		case mpegts.IsVideoStreamType(es.StreamType):
			m.videoPID, m.hasVideo = es.PID, true
		case mpegts.IsAudioStreamType(es.StreamType):
			audio = append(audio, es.PID)
		default:
			if !m.unknown[es.StreamType] {
				m.unknown[es.StreamType] = true
				m.log.Info("unknown stream type", "stream_type", es.StreamType, "pid", es.PID)
				if m.onUnknown != nil {
					m.onUnknown(es.StreamType)
				}
			}
		}
	}
	m.setAudio(audio)
	m.log.Debug("stream map updated", "pmt_pid", pmt.PID, "video", m.videoPID, "audio", m.audio)
	return true
}

// Classify returns the role of pid and, for audio, its ordinal.
func (m *Map) Classify(pid uint16) (Role, int) {
	if m.hasVideo && pid == m.videoPID {
		return RoleVideo, 0
	}
	if ord, ok := m.ordinals[pid]; ok {
		return RoleAudio, ord
	}
	return RoleOther, 0
}

// VideoPID returns the current video PID, if any.
func (m *Map) VideoPID() (uint16, bool) {
	return m.videoPID, m.hasVideo
}

// AudioPIDs returns a copy of the audio mapping, PID to ordinal.
func (m *Map) AudioPIDs() map[uint16]int {
	out := make(map[uint16]int, len(m.ordinals))
	for pid, ord := range m.ordinals {
		out[pid] = ord
	}
	return out
}

// Roles returns a snapshot of the current roles.
func (m *Map) Roles() Snapshot {
	return Snapshot{
		VideoPID: m.videoPID,
		HasVideo: m.hasVideo,
		Audio:    slices.Clone(m.audio),
	}
}
