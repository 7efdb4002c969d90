package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mmynk/splitledger/internal/errs"
)

func TestObserveMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveMutation("create_expense", nil)
	m.ObserveMutation("create_expense", nil)
	m.ObserveMutation("create_expense", errs.New(errs.Validation, "bad amount"))
	m.ObserveMutation("complete_settlement", errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_expense", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_expense", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("complete_settlement", "unknown")))
}

func TestNilLedgerIsSafe(t *testing.T) {
	var m *Ledger
	assert.NotPanics(t, func() {
		m.ObserveMutation("create_expense", nil)
		m.ObserveTransfers(3)
	})
}
