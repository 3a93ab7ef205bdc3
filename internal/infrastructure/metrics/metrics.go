package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics tracks protocol operations and loan lifecycle transitions.
type LendingMetrics struct {
	operations  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	volume      *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
	keeperRuns  *prometheus.CounterVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_operations_total",
				Help: "Count of successful protocol operations by name.",
			}, []string{"operation"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_rejections_total",
				Help: "Count of rejected protocol operations by name and rejection kind.",
			}, []string{"operation", "kind"}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_state_transitions_total",
				Help: "Count of loan state transitions.",
			}, []string{"from", "to"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_token_volume",
				Help: "Token units moved by operation; precision beyond float64 is dropped.",
			}, []string{"operation"}),
			httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "lending_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route", "status"}),
			keeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_keeper_updates_total",
				Help: "Loans touched by the keeper by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.rejections,
			lendingRegistry.transitions,
			lendingRegistry.volume,
			lendingRegistry.httpLatency,
			lendingRegistry.keeperRuns,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) ObserveOperation(op string, amount float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
	if amount > 0 {
		m.volume.WithLabelValues(op).Add(amount)
	}
}

func (m *LendingMetrics) ObserveRejection(op, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.rejections.WithLabelValues(op, kind).Inc()
}

func (m *LendingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *LendingMetrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func (m *LendingMetrics) ObserveKeeper(outcome string) {
	if m == nil {
		return
	}
	m.keeperRuns.WithLabelValues(outcome).Inc()
}
