// Package observability exposes Prometheus collectors for the graph store.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the engine's Prometheus collectors.
type Metrics struct {
	// AutoTransitions counts reconciler-driven status flips by direction
	// ("blocked" or "unblocked").
	AutoTransitions *prometheus.CounterVec

	// ReconcilePasses counts single-element reconciliation passes, including
	// no-op passes.
	ReconcilePasses prometheus.Counter

	// CascadeDepth observes how many elements each mutation's cascade
	// visited.
	CascadeDepth prometheus.Histogram
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AutoTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphstore_auto_transitions_total",
				Help: "Automatic blocked/unblocked transitions applied by the reconciler.",
			},
			[]string{"direction"},
		),
		ReconcilePasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "graphstore_reconcile_passes_total",
				Help: "Single-element reconciliation passes, including no-ops.",
			},
		),
		CascadeDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graphstore_cascade_size",
				Help:    "Number of elements visited per mutation cascade.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.AutoTransitions, m.ReconcilePasses, m.CascadeDepth)
	}
	return m
}

// ObserveTransition records one automatic transition. Nil-safe.
func (m *Metrics) ObserveTransition(direction string) {
	if m == nil {
		return
	}
	m.AutoTransitions.WithLabelValues(direction).Inc()
}

// ObservePass records one reconciliation pass. Nil-safe.
func (m *Metrics) ObservePass() {
	if m == nil {
		return
	}
	m.ReconcilePasses.Inc()
}

// ObserveCascade records the size of a finished cascade. Nil-safe.
func (m *Metrics) ObserveCascade(visited int) {
	if m == nil {
		return
	}
	m.CascadeDepth.Observe(float64(visited))
}
