package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionsRelation имя связи, под которым CMS ожидает подписки пользователя
const SubscriptionsRelation = "subscriptions"

// Subscription представляет собой запись подписки пользователя.
// Жизненным циклом подписки управляет биллинговая библиотека, здесь только хранение.
type Subscription struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Name        string     `db:"name" json:"name"`
	StripeID    string     `db:"stripe_id" json:"stripe_id"`
	StripePlan  string     `db:"stripe_plan" json:"stripe_plan"`
	Quantity    int        `db:"quantity" json:"quantity"`
	TrialEndsAt *time.Time `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	EndsAt      *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NewSubscription создает новую подписку с заданными параметрами
func NewSubscription(userID uuid.UUID, name, stripeID, stripePlan string, quantity int) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		StripeID:   stripeID,
		StripePlan: stripePlan,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
