package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
)

// Customer набор возможностей, который биллинговая библиотека ожидает от
// оплачивающей сущности.
type Customer interface {
	Subscriptions(ctx context.Context) ([]domain.Subscription, error)
	AsStripeCustomer(ctx context.Context) (*stripe.Customer, error)
	CreateAsStripeCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	UpdateCard(ctx context.Context, token string) (*stripe.Card, error)

	StripeID() string
	SetStripeID(id string)
	CardBrand() string
	SetCardBrand(brand string)
	CardLastFour() string
	SetCardLastFour(last4 string)
	TrialEndsAt() *time.Time
	SetTrialEndsAt(t *time.Time)

	Get(name string) (any, error)
	Set(name string, value any) (any, error)
	IsSet(name string) bool

	Save(ctx context.Context) error
}

// Gateway вызовы платежного процессора, нужные адаптеру.
// Реализуется internal/stripe.Client.
type Gateway interface {
	RetrieveCustomer(ctx context.Context, id string, expand ...string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	RetrieveToken(ctx context.Context, id string) (*stripe.Token, error)
	CreateCard(ctx context.Context, customerID, token string) (*stripe.Card, error)
	DeleteCard(ctx context.Context, customerID, cardID string) error
}

// UserSaver сохраняет запись пользователя CMS
type UserSaver interface {
	Save(ctx context.Context, user *domain.User) error
}

// SubscriptionLister читает подписки пользователя в заданном порядке
type SubscriptionLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error)
}
