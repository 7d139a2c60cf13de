package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics holds every collector the payment service exports.
type PaymentMetrics struct {
	// Order lifecycle
	OrdersCreatedTotal       *prometheus.CounterVec
	OrdersCreatedAmountTotal *prometheus.CounterVec
	OrdersPaidTotal          *prometheus.CounterVec
	OrdersPaidAmountTotal    *prometheus.CounterVec
	OrdersClosedTotal        *prometheus.CounterVec
	OrdersRefundedTotal      *prometheus.CounterVec
	RefundAmountTotal        *prometheus.CounterVec
	OrphanIntentsTotal       *prometheus.CounterVec

	// Webhook
	NotificationsTotal *prometheus.CounterVec

	// Sweep
	SweepDuration     prometheus.Histogram
	SweepOrdersTotal  *prometheus.CounterVec
	ApplicationErrors *prometheus.CounterVec

	// Gateway
	GatewayCallDuration *prometheus.HistogramVec

	// Errors
	PaymentErrorsTotal *prometheus.CounterVec
}

// NewPaymentMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	f := promauto.With(reg)
	return &PaymentMetrics{
		OrdersCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_created_total",
				Help: "Payment orders created, by checkout channel",
			},
			[]string{"channel"},
		),
		OrdersCreatedAmountTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_created_amount_total",
				Help: "Sum of created order amounts",
			},
			[]string{"channel"},
		),
		OrdersPaidTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_paid_total",
				Help: "Orders moved to PAID, by the path that resolved them",
			},
			[]string{"source"},
		),
		OrdersPaidAmountTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_paid_amount_total",
				Help: "Sum of paid order amounts",
			},
			[]string{"source"},
		),
		OrdersClosedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_closed_total",
				Help: "Orders moved to CLOSED, by the path that resolved them",
			},
			[]string{"source"},
		),
		OrdersRefundedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orders_refunded_total",
				Help: "Refunds by resulting status",
			},
			[]string{"status"},
		),
		RefundAmountTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_refund_amount_total",
				Help: "Sum of refunded amounts",
			},
			[]string{"status"},
		),
		OrphanIntentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_orphan_intents_total",
				Help: "Gateway intents without a local order, parked or recovered",
			},
			[]string{"action"},
		),
		NotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_notifications_total",
				Help: "Gateway notifications by outcome",
			},
			[]string{"outcome"},
		),
		SweepDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payment_sweep_duration_seconds",
				Help:    "Duration of one reconciliation sweep",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		SweepOrdersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_sweep_orders_total",
				Help: "Orders seen by the sweeper, by result",
			},
			[]string{"result"},
		),
		ApplicationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_application_sync_errors_total",
				Help: "Failed calls to the admissions application",
			},
			[]string{"operation"},
		),
		GatewayCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_gateway_call_duration_seconds",
				Help:    "Latency of gateway API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		PaymentErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_errors_total",
				Help: "Errors by operation and kind",
			},
			[]string{"operation", "kind"},
		),
	}
}

func (m *PaymentMetrics) RecordOrderCreated(channel string, amount float64) {
	m.OrdersCreatedTotal.WithLabelValues(channel).Inc()
	m.OrdersCreatedAmountTotal.WithLabelValues(channel).Add(amount)
}

func (m *PaymentMetrics) RecordOrderPaid(source string, amount float64) {
	m.OrdersPaidTotal.WithLabelValues(source).Inc()
	m.OrdersPaidAmountTotal.WithLabelValues(source).Add(amount)
}

func (m *PaymentMetrics) RecordOrderClosed(source string) {
	m.OrdersClosedTotal.WithLabelValues(source).Inc()
}

func (m *PaymentMetrics) RecordRefund(status string, amount float64) {
	m.OrdersRefundedTotal.WithLabelValues(status).Inc()
	m.RefundAmountTotal.WithLabelValues(status).Add(amount)
}

func (m *PaymentMetrics) RecordOrphanIntent(action string) {
	m.OrphanIntentsTotal.WithLabelValues(action).Inc()
}

func (m *PaymentMetrics) RecordNotification(outcome string) {
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RecordSweep(duration time.Duration, results map[string]int) {
	m.SweepDuration.Observe(duration.Seconds())
	for result, n := range results {
		if n > 0 {
			m.SweepOrdersTotal.WithLabelValues(result).Add(float64(n))
		}
	}
}

func (m *PaymentMetrics) RecordApplicationError(operation string) {
	m.ApplicationErrors.WithLabelValues(operation).Inc()
}

// RecordGatewayCall satisfies gateway.CallRecorder.
func (m *PaymentMetrics) RecordGatewayCall(operation, outcome string, duration time.Duration) {
	m.GatewayCallDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

func (m *PaymentMetrics) RecordError(operation, kind string) {
	m.PaymentErrorsTotal.WithLabelValues(operation, kind).Inc()
}
