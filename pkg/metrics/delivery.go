package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryWorkerMetrics records sweep outcomes for the delivery queue worker.
type DeliveryWorkerMetrics struct {
	sweepDuration prometheus.Histogram
	sweepFailures prometheus.Counter
	entries       *prometheus.CounterVec
}

// NewDeliveryWorkerMetrics registers the worker metrics on the provided registerer.
func NewDeliveryWorkerMetrics(reg prometheus.Registerer) *DeliveryWorkerMetrics {
	if reg == nil {
		return &DeliveryWorkerMetrics{}
	}
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_sweep_duration_seconds",
		Help:    "Duration of delivery queue sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	sweepFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_sweep_failures",
		Help: "Sweeps that aborted before mutating any entries.",
	})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_entries_total",
		Help: "Queue entries handled per outcome.",
	}, []string{"outcome"})
	reg.MustRegister(sweepDuration, sweepFailures, entries)
	return &DeliveryWorkerMetrics{
		sweepDuration: sweepDuration,
		sweepFailures: sweepFailures,
		entries:       entries,
	}
}

// ObserveSweep records the duration of one sweep.
func (m *DeliveryWorkerMetrics) ObserveSweep(duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// IncSweepFailure counts a sweep that aborted wholesale.
func (m *DeliveryWorkerMetrics) IncSweepFailure() {
	if m == nil || m.sweepFailures == nil {
		return
	}
	m.sweepFailures.Inc()
}

// AddEntries counts entry outcomes (processed, retried, failed).
func (m *DeliveryWorkerMetrics) AddEntries(outcome string, n int) {
	if m == nil || m.entries == nil || n <= 0 {
		return
	}
	m.entries.WithLabelValues(outcome).Add(float64(n))
}
