// Package metrics exposes the counters of one tsgop run as Prometheus
// metrics. A run is a batch job, so the collector is exported once at the
// end in the node_exporter textfile format rather than served over HTTP.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zsiec/tsgop/internal/streammap"
	"github.com/zsiec/tsgop/internal/trace"
)

const subsystem = "tsgop"

// Collector records run telemetry. It implements timeline.StatsRecorder.
// All metrics carry a constant "run" label.
type Collector struct {
	registry *prometheus.Registry

	packets      *prometheus.CounterVec
	emitted      *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	frames       *prometheus.CounterVec
	unknown      *prometheus.CounterVec
	raw          prometheus.Counter
	pmts         prometheus.Counter
	deltaChanges prometheus.Counter
	delta        prometheus.Gauge
}

// NewCollector creates a Collector on its own registry.
func NewCollector(runID string) *Collector {
	labels := prometheus.Labels{"run": runID}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "packets_total",
			Help:        "Number of trace records seen, by stream role",
			ConstLabels: labels,
		},
			[]string{
				"role",
			}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "timeline_records_total",
			Help:        "Number of timeline records produced, by stream role",
			ConstLabels: labels,
		},
			[]string{
				"role",
			}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "dropped_total",
			Help:        "Number of packets dropped for lack of a timestamp, by PID",
			ConstLabels: labels,
		},
			[]string{
				"pid",
			}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "frames_total",
			Help:        "Number of coded frames summarized, by frame type",
			ConstLabels: labels,
		},
			[]string{
				"type",
			}),
		unknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "unknown_stream_types_total",
			Help:        "Number of distinct unrecognized PMT stream types",
			ConstLabels: labels,
		},
			[]string{
				"stream_type",
			}),
		raw: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "raw_packets_total",
			Help:        "Number of packets the demultiplexer could not decode",
			ConstLabels: labels,
		}),
		pmts: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "pmt_updates_total",
			Help:        "Number of program map updates applied",
			ConstLabels: labels,
		}),
		deltaChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        "delta_changes_total",
			Help:        "Number of breakpoints that fired",
			ConstLabels: labels,
		}),
		delta: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem:   subsystem,
			Name:        "active_delta_ticks",
			Help:        "Delta in 90 kHz ticks currently applied to timestamps",
			ConstLabels: labels,
		}),
	}
	c.registry.MustRegister(
		c.packets,
		c.emitted,
		c.dropped,
		c.frames,
		c.unknown,
		c.raw,
		c.pmts,
		c.deltaChanges,
		c.delta,
	)
	return c
}

// Registry returns the registry holding the run metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordPacket(role streammap.Role) {
	c.packets.WithLabelValues(role.String()).Inc()
}

func (c *Collector) RecordRaw() {
	c.raw.Inc()
}

func (c *Collector) RecordPMT() {
	c.pmts.Inc()
}

func (c *Collector) RecordEmitted(role streammap.Role) {
	c.emitted.WithLabelValues(role.String()).Inc()
}

func (c *Collector) RecordDropped(pid uint16) {
	c.dropped.WithLabelValues(strconv.Itoa(int(pid))).Inc()
}

func (c *Collector) RecordFrame(frame trace.Frame) {
	c.frames.WithLabelValues(frame.String()).Inc()
}

func (c *Collector) RecordDeltaChange(delta int64) {
	c.deltaChanges.Inc()
	c.delta.Set(float64(delta))
}

func (c *Collector) RecordUnknownStreamType(streamType uint8) {
	c.unknown.WithLabelValues(fmt.Sprintf("0x%02x", streamType)).Inc()
}

// WriteTextfile writes all run metrics to path in the Prometheus text
// exposition format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
