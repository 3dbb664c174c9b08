package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for relationship resolution and mutation.
type Metrics struct {
	// Resolution latency by relationship identifier.
	ResolveLatency *prometheus.HistogramVec

	// Peers returned per resolution.
	ResolvedPeers prometheus.Histogram

	// Mutation outcomes by operation and status.
	MutationOutcome *prometheus.CounterVec
}

// New creates a Metrics instance with all relationship metrics registered.
func New() *Metrics {
	return &Metrics{
		ResolveLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stategraph_relationship_resolve_duration_seconds",
			Help:    "Duration of relationship peer resolution by identifier",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"identifier"}),

		ResolvedPeers: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stategraph_relationship_resolved_peers",
			Help:    "Number of peers returned per resolution",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		MutationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stategraph_relationship_mutations_total",
			Help: "Total relationship mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// ObserveResolve records one resolution.
func (m *Metrics) ObserveResolve(identifier string, peers int, d time.Duration) {
	if m != nil {
		m.ResolveLatency.WithLabelValues(identifier).Observe(d.Seconds())
		m.ResolvedPeers.Observe(float64(peers))
	}
}

// RecordMutation records one mutation outcome.
func (m *Metrics) RecordMutation(operation string, err error) {
	if m != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.MutationOutcome.WithLabelValues(operation, outcome).Inc()
	}
}
