// Package metrics provides the Prometheus-backed implementation of the
// wallet facade's MetricsCollector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records ledger operation metrics into a Prometheus registry.
type Collector struct {
	opDuration      *prometheus.HistogramVec
	transactions    *prometheus.CounterVec
	volume          *prometheus.CounterVec
	errors          *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Duration of wallet facade operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Completed ledger transactions by type.",
		}, []string{"type"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transaction_volume_minor_units",
			Help: "Gross transaction volume in smallest currency units.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_operation_errors_total",
			Help: "Failed wallet operations by operation and error type.",
		}, []string{"operation", "error"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_reconciliations_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.opDuration, c.transactions, c.volume, c.errors, c.reconciliations)
	return c
}

func (c *Collector) RecordOperationDuration(operation string, d time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *Collector) RecordTransaction(txType string, amountMinor int64) {
	c.transactions.WithLabelValues(txType).Inc()
	c.volume.WithLabelValues(txType).Add(float64(amountMinor))
}

func (c *Collector) RecordError(operation, errType string) {
	c.errors.WithLabelValues(operation, errType).Inc()
}

func (c *Collector) RecordReconciliation(consistent bool) {
	outcome := "consistent"
	if !consistent {
		outcome = "corrected"
	}
	c.reconciliations.WithLabelValues(outcome).Inc()
}
