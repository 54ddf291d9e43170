package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBillingMetrics_ObserveStripeCall(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBillingMetrics(registry).(*billingMetrics)

	m.ObserveStripeCall("customer.retrieve", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveStripeCall("customer.retrieve", OutcomeSuccess, 30*time.Millisecond)
	m.ObserveStripeCall("customer.retrieve", OutcomeError, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stripeCalls.WithLabelValues("customer.retrieve", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stripeCalls.WithLabelValues("customer.retrieve", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stripeCallDuration))
}

func TestBillingMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBillingMetrics(registry).(*billingMetrics)

	m.IncCardUpdateSkipped()
	m.IncCustomerCreated()
	m.IncCustomerCreated()
	m.IncEventPublishFailed("billing.card_updated")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cardUpdateSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.customersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventPublishFailed.WithLabelValues("billing.card_updated")))
}

func TestNoop(t *testing.T) {
	m := NewNoop()
	m.ObserveStripeCall("x", OutcomeSuccess, time.Second)
	m.IncCardUpdateSkipped()
}
