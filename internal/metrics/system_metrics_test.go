package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_IncludesRuntimeAndBillingMetrics(t *testing.T) {
	registry := NewRegistry()
	m := NewBillingMetrics(registry)
	m.IncCustomerCreated()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["billing_customers_created_total"])
}
