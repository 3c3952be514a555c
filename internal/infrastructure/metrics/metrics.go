// Package metrics exposes Prometheus instrumentation for ledger transitions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"collateral-ledger/internal/domain/loan"
)

const namespace = "ledger"

type LedgerMetrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	gatherer   prometheus.Gatherer
}

// New registers the ledger collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *LedgerMetrics {
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loan",
			Name:      "operations_total",
			Help:      "Loan transitions segmented by operation and outcome.",
		}, []string{"op", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loan",
			Name:      "rejections_total",
			Help:      "Loan transitions rejected by a precondition, segmented by error kind.",
		}, []string{"op", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loan",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for loan transitions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		gatherer: reg,
	}
	reg.MustRegister(m.operations, m.rejections, m.latency)
	return m
}

// ObserveOperation records one transition. outcome is ok, rejected (a domain
// precondition failed) or error (anything else, e.g. storage).
func (m *LedgerMetrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		if kind := loan.KindOf(err); kind != "" {
			outcome = "rejected"
			m.rejections.WithLabelValues(op, string(kind)).Inc()
		} else {
			outcome = "error"
		}
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
