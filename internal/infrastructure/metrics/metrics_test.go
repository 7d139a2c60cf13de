package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.RecordOrderPaid("webhook", 200)
	m.RecordOrderPaid("webhook", 150)
	m.RecordOrderPaid("sweep", 200)
	m.RecordNotification("rejected_signature")
	m.RecordSweep(120*time.Millisecond, map[string]int{"paid": 2, "closed": 0, "failed": 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersPaidTotal.WithLabelValues("webhook")))
	assert.Equal(t, 350.0, testutil.ToFloat64(m.OrdersPaidAmountTotal.WithLabelValues("webhook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("rejected_signature")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepOrdersTotal.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepOrdersTotal.WithLabelValues("failed")))

	count, err := testutil.GatherAndCount(reg, "payment_sweep_orders_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "zero results are not materialised as series")
}

func TestNewPaymentMetricsOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPaymentMetrics(prometheus.NewRegistry())
		NewPaymentMetrics(prometheus.NewRegistry())
	})
}
