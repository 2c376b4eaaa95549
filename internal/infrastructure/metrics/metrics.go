package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the Prometheus collectors exported on /metrics
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	NoteOpsTotal   *prometheus.CounterVec
	NoteOpDuration *prometheus.HistogramVec
	NotesStored    prometheus.Gauge
}

// New creates and registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		NoteOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_operations_total",
				Help: "Note operations by kind and outcome",
			},
			[]string{"op", "outcome"},
		),
		NoteOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notes_operation_duration_seconds",
				Help:    "Note operation duration in seconds, artificial latency included",
				Buckets: []float64{.01, .05, .1, .15, .2, .3, .5, 1, 2},
			},
			[]string{"op"},
		),
		NotesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notes_stored",
			Help: "Number of notes in the store after the last operation",
		}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.NoteOpsTotal,
		m.NoteOpDuration,
		m.NotesStored,
		collectors.NewGoCollector(),
	)

	return m
}

// ObserveNoteOp records one note operation. Safe on a nil receiver.
func (m *Metrics) ObserveNoteOp(op string, start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.NoteOpsTotal.WithLabelValues(op, outcome).Inc()
	m.NoteOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetNotesStored updates the stored-notes gauge. Safe on a nil receiver.
func (m *Metrics) SetNotesStored(n int) {
	if m == nil {
		return
	}
	m.NotesStored.Set(float64(n))
}
