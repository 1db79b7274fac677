// Package metrics holds the Prometheus collectors of the recorder and the
// live view.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sounding"

// Recorder collects flight recording metrics.
type Recorder struct {
	Events          *prometheus.CounterVec
	LinesWritten    *prometheus.CounterVec
	JoinMismatches  prometheus.Counter
	StaleSamples    *prometheus.CounterVec
	MalformedFrames prometheus.Counter
	Failures        prometheus.Counter
	ActiveFlight    prometheus.Gauge
}

// NewRecorder creates the recorder collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	m := &Recorder{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Host notifications handled, by kind.",
		}, []string{"kind"}),
		LinesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_written_total",
			Help:      "Data lines appended to flight logs, by log.",
		}, []string{"log"}),
		JoinMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_mismatches_total",
			Help:      "PTU/position pairs that did not share a rounded second.",
		}),
		StaleSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_samples_total",
			Help:      "Samples ignored because they were not newer than the held one, by kind.",
		}, []string{"kind"}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "XData frames whose payload could not be decoded.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_failures_total",
			Help:      "Flights whose recording failed with an I/O error.",
		}),
		ActiveFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flight_active",
			Help:      "1 while a flight is being recorded.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Events, m.LinesWritten, m.JoinMismatches, m.StaleSamples, m.MalformedFrames, m.Failures, m.ActiveFlight)
	}
	return m
}

// Live collects live view refresh metrics.
type Live struct {
	Ticks           *prometheus.CounterVec
	TickDuration    prometheus.Histogram
	ParseAttempts   *prometheus.HistogramVec
	Rows            *prometheus.GaugeVec
	MalformedFrames prometheus.Counter
	Locked          prometheus.Gauge
}

// NewLive creates the live view collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewLive(reg prometheus.Registerer) *Live {
	m := &Live{
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "ticks_total",
			Help:      "Refresh ticks, by outcome.",
		}, []string{"outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "tick_duration_seconds",
			Help:      "Time spent selecting, parsing and pushing data in one tick.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ParseAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "parse_attempts",
			Help:      "Header-skip attempts needed to parse a log, by log.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"log"}),
		Rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "rows",
			Help:      "Rows in the last parsed table, by log.",
		}, []string{"log"}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "malformed_frames_total",
			Help:      "XData payloads that could not be decoded.",
		}),
		Locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "locked",
			Help:      "1 once the panels' axis ranges are locked.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Ticks, m.TickDuration, m.ParseAttempts, m.Rows, m.MalformedFrames, m.Locked)
	}
	return m
}
