package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы вызовов Stripe API
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// BillingMetrics интерфейс для метрик биллинга
type BillingMetrics interface {
	ObserveStripeCall(operation, outcome string, duration time.Duration)
	IncCardUpdateSkipped()
	IncCustomerCreated()
	IncEventPublishFailed(topic string)
}

type billingMetrics struct {
	stripeCalls        *prometheus.CounterVec
	stripeCallDuration *prometheus.HistogramVec
	cardUpdateSkipped  prometheus.Counter
	customersCreated   prometheus.Counter
	eventPublishFailed *prometheus.CounterVec
}

// NewBillingMetrics создает метрики биллинга в заданном реестре
func NewBillingMetrics(registry *prometheus.Registry) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		stripeCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_stripe_calls_total",
				Help: "The total number of Stripe API calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		stripeCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_stripe_call_duration_seconds",
				Help:    "Stripe API call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cardUpdateSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_card_update_skipped_total",
				Help: "Card updates skipped because the token matched the default source",
			},
		),
		customersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_customers_created_total",
				Help: "The total number of Stripe customers created for users",
			},
		),
		eventPublishFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_event_publish_failed_total",
				Help: "Billing events that could not be published",
			},
			[]string{"topic"},
		),
	}
}

// ObserveStripeCall учитывает один вызов Stripe API
func (m *billingMetrics) ObserveStripeCall(operation, outcome string, duration time.Duration) {
	m.stripeCalls.WithLabelValues(operation, outcome).Inc()
	m.stripeCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *billingMetrics) IncCardUpdateSkipped() {
	m.cardUpdateSkipped.Inc()
}

func (m *billingMetrics) IncCustomerCreated() {
	m.customersCreated.Inc()
}

func (m *billingMetrics) IncEventPublishFailed(topic string) {
	m.eventPublishFailed.WithLabelValues(topic).Inc()
}

type noopMetrics struct{}

// NewNoop возвращает метрики, которые ничего не записывают
func NewNoop() BillingMetrics { return noopMetrics{} }

func (noopMetrics) ObserveStripeCall(string, string, time.Duration) {}
func (noopMetrics) IncCardUpdateSkipped()                         {}
func (noopMetrics) IncCustomerCreated()                           {}
func (noopMetrics) IncEventPublishFailed(string)                  {}
