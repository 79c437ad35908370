// Package metrics exposes Prometheus collectors for the contribution log.
//
// Collectors are registered on a caller-supplied registry so that tests and
// multiple ledgers in one process never collide on the global default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "contriblog"

// Transaction outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	transactions *prometheus.CounterVec
	rentLamports prometheus.Counter
	slotBytes    prometheus.Gauge
	records      prometheus.Gauge
	readSeconds  prometheus.Histogram
	commitSecs   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transactions_total",
			Help:      "Transactions submitted through this process, by instruction and outcome.",
		}, []string{"instruction", "outcome"}),
		rentLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rent_lamports_total",
			Help:      "Lamports moved into program accounts by transactions submitted through this process.",
		}),
		slotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "log_slot_bytes",
			Help:      "Allocated capacity of the log slot.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "log_records",
			Help:      "Number of contribution records in the log.",
		}),
		readSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "storage_read_seconds",
			Help:      "Latency of account reads.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		commitSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "storage_commit_seconds",
			Help:      "Latency of transaction commits.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	reg.MustRegister(m.transactions, m.rentLamports, m.slotBytes, m.records, m.readSeconds, m.commitSecs)
	return m
}

// ObserveTransaction counts one transaction.
func (m *Metrics) ObserveTransaction(instruction, outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(instruction, outcome).Inc()
}

// AddRent records lamports charged for capacity.
func (m *Metrics) AddRent(lamports uint64) {
	if m == nil || lamports == 0 {
		return
	}
	m.rentLamports.Add(float64(lamports))
}

// SetLog records the current slot size and record count. It is called on
// every committed transaction and every read of the log.
func (m *Metrics) SetLog(space, count int) {
	if m == nil {
		return
	}
	m.slotBytes.Set(float64(space))
	m.records.Set(float64(count))
}

// ObserveRead implements store.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, _ int) {
	if m == nil {
		return
	}
	m.readSeconds.Observe(elapsed.Seconds())
}

// ObserveBatchCommit implements store.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	if m == nil {
		return
	}
	m.commitSecs.Observe(elapsed.Seconds())
}
