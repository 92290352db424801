package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RiskMetrics tracks snapshot traffic and read-path health.
type RiskMetrics struct {
	snapshotRequests *prometheus.CounterVec
	fallbackUsed     *prometheus.CounterVec
	unavailable      *prometheus.CounterVec
	staleOracle      *prometheus.CounterVec
}

var (
	riskOnce     sync.Once
	riskRegistry *RiskMetrics
)

// Risk returns the process-wide risk metrics, registering them on first use.
func Risk() *RiskMetrics {
	riskOnce.Do(func() {
		riskRegistry = &RiskMetrics{
			snapshotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "risk_snapshot_requests_total",
				Help: "Count of risk snapshot computations requested per market.",
			}, []string{"market"}),
			fallbackUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "risk_read_fallback_total",
				Help: "Count of primary read-path failures that triggered the raw-call fallback.",
			}, []string{"market"}),
			unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "risk_read_unavailable_total",
				Help: "Count of snapshots served as neutral because every read path failed.",
			}, []string{"market"}),
			staleOracle: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "risk_oracle_stale_total",
				Help: "Count of snapshots computed from a stale oracle reading.",
			}, []string{"market"}),
		}
		prometheus.MustRegister(
			riskRegistry.snapshotRequests,
			riskRegistry.fallbackUsed,
			riskRegistry.unavailable,
			riskRegistry.staleOracle,
		)
	})
	return riskRegistry
}

func (m *RiskMetrics) SnapshotRequested(market string) {
	m.snapshotRequests.WithLabelValues(market).Inc()
}

func (m *RiskMetrics) FallbackUsed(market string) {
	m.fallbackUsed.WithLabelValues(market).Inc()
}

func (m *RiskMetrics) Unavailable(market string) {
	m.unavailable.WithLabelValues(market).Inc()
}

func (m *RiskMetrics) StaleOracle(market string) {
	m.staleOracle.WithLabelValues(market).Inc()
}
