package timeline

import (
	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/trace"
)

// StatsRecorder is the interface accepted by Context for recording run
// telemetry. The metrics package's Collector implements it.
type StatsRecorder interface {
	RecordPacket(role streammap.Role)
	RecordRaw()
	RecordPMT()
	RecordEmitted(role streammap.Role)
	RecordDropped(pid uint16)
	RecordFrame(frame trace.Frame)
	RecordDeltaChange(delta int64)
	RecordUnknownStreamType(streamType uint8)
}

type nopStats struct{}

func (nopStats) RecordPacket(streammap.Role)   {}
func (nopStats) RecordRaw()                    {}
func (nopStats) RecordPMT()                    {}
func (nopStats) RecordEmitted(streammap.Role)  {}
func (nopStats) RecordDropped(uint16)          {}
func (nopStats) RecordFrame(trace.Frame)       {}
func (nopStats) RecordDeltaChange(int64)       {}
func (nopStats) RecordUnknownStreamType(uint8) {}
