package usecase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeDeclined = "declined"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Metrics 帳本操作的 Prometheus 指標，nil 時所有方法都是 no-op
type Metrics struct {
	operations *prometheus.CounterVec
	retries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics 在 reg 註冊帳本指標
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "star_ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		}, []string{"op", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "star_ledger",
			Name:      "conflict_retries_total",
			Help:      "Transaction scope retries caused by backend conflicts.",
		}, []string{"op"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "star_ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) invalid(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcomeInvalid).Inc()
}

func (m *Metrics) retry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
