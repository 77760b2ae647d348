package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit pipeline. All methods are
// nil-safe so wiring metrics stays optional in tests.
type Metrics struct {
	// Field-level records produced by the extractor
	RecordsExtracted prometheus.Counter

	// Transaction messages handed to the channel, by result
	Published *prometheus.CounterVec

	// Consumer outcomes: stored, duplicate, invalid, error
	Consumed *prometheus.CounterVec

	// Audit store write latency
	PersistLatency prometheus.Histogram
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditflow_records_extracted_total",
			Help: "Total field-level change records produced by the extractor",
		}),

		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_transactions_published_total",
			Help: "Total audit transaction messages handed to the channel by result",
		}, []string{"result"}), // result: "ok", "error"

		Consumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auditflow_transactions_consumed_total",
			Help: "Total audit transaction messages consumed by outcome",
		}, []string{"outcome"}), // outcome: "stored", "duplicate", "invalid", "error"

		PersistLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditflow_persist_duration_seconds",
			Help:    "Duration of audit store writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// AddRecordsExtracted records extractor output volume.
func (m *Metrics) AddRecordsExtracted(n int) {
	if m != nil && n > 0 {
		m.RecordsExtracted.Add(float64(n))
	}
}

// IncPublished records a publish attempt result.
func (m *Metrics) IncPublished(result string) {
	if m != nil {
		m.Published.WithLabelValues(result).Inc()
	}
}

// IncConsumed records a consumer outcome.
func (m *Metrics) IncConsumed(outcome string) {
	if m != nil {
		m.Consumed.WithLabelValues(outcome).Inc()
	}
}

// ObservePersistLatency records the duration of one audit store write.
func (m *Metrics) ObservePersistLatency(d time.Duration) {
	if m != nil {
		m.PersistLatency.Observe(d.Seconds())
	}
}
