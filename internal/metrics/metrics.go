// Package metrics defines the Prometheus collectors of the ledger.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitledger/internal/errs"
)

const namespace = "splitledger"

// Ledger holds the ledger's collectors. A nil *Ledger records nothing.
type Ledger struct {
	mutations       *prometheus.CounterVec
	transfers       prometheus.Histogram
	balanceDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Ledger mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		transfers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimized_transfers",
			Help:      "Number of transfers produced per debt simplification.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		balanceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_query_duration_seconds",
			Help:      "Time spent computing balances.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}
	reg.MustRegister(m.mutations, m.transfers, m.balanceDuration)
	return m
}

// ObserveMutation counts one mutation, labelled with the error kind on failure.
func (m *Ledger) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = errs.KindOf(err).String()
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

// ObserveTransfers records the size of an optimized settlement plan.
func (m *Ledger) ObserveTransfers(n int) {
	if m == nil {
		return
	}
	m.transfers.Observe(float64(n))
}

// ObserveBalanceQuery records how long a balance query took since start.
func (m *Ledger) ObserveBalanceQuery(query string, start time.Time) {
	if m == nil {
		return
	}
	m.balanceDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
