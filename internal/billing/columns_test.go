package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysicalColumn(t *testing.T) {
	tests := map[string]string{
		"stripe_id":      "offline_cashier_stripe_id",
		"card_brand":     "offline_cashier_card_brand",
		"card_last_four": "offline_cashier_card_last_four",
		"trial_ends_at":  "offline_cashier_trial_ends_at",
		"email":          "email",
		"created_at":     "created_at",
		"anything":       "anything",
	}
	for logical, physical := range tests {
		assert.Equal(t, physical, PhysicalColumn(logical), logical)
	}
}

func TestIsRenamed(t *testing.T) {
	assert.True(t, IsRenamed("stripe_id"))
	assert.False(t, IsRenamed("offline_cashier_stripe_id"))
	assert.False(t, IsRenamed("email"))
}
