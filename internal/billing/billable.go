package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// SubscriptionsOrder порядок подписок: новые первыми
var SubscriptionsOrder = domain.Order{Column: domain.ColumnCreatedAt, Desc: true}

// subscriptionsForeignKey внешний ключ подписки на пользователя
const subscriptionsForeignKey = "user_id"

// expandedCustomerFields вложенные ресурсы, которые Stripe с API 2020-08-27
// не возвращает без expand
var expandedCustomerFields = []string{"sources", "subscriptions"}

// Billable адаптер, представляющий пользователя CMS как клиента биллинга.
//
// Четыре биллинговых колонки читаются и пишутся под логическими именами
// (stripe_id, card_brand, card_last_four, trial_ends_at) и хранятся с
// префиксом offline_cashier_. Остальные поля и методы пользователя доступны
// через встраивание.
type Billable struct {
	*domain.User
	BillingMixin

	users         UserSaver
	subscriptions SubscriptionLister
}

var _ Customer = (*Billable)(nil)

// New оборачивает пользователя. Адаптер не владеет записью и живет в
// пределах одного запроса.
func New(user *domain.User, gateway Gateway, users UserSaver, subscriptions SubscriptionLister, log *logger.Logger) *Billable {
	if log == nil {
		log = logger.Nop()
	}

	b := &Billable{
		User:          user,
		users:         users,
		subscriptions: subscriptions,
	}
	b.BillingMixin = newBillingMixin(b, gateway, log)

	user.RegisterHasMany(domain.SubscriptionsRelation, domain.Relation{
		Related:    domain.SubscriptionsRelation,
		ForeignKey: subscriptionsForeignKey,
		Order:      SubscriptionsOrder,
	})

	return b
}

// Subscriptions возвращает подписки пользователя, новые первыми
func (b *Billable) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return b.subscriptions.ListByUserID(ctx, b.User.ID, SubscriptionsOrder)
}

// AsStripeCustomer получает клиента Stripe вместе с sources и subscriptions
func (b *Billable) AsStripeCustomer(ctx context.Context) (*stripe.Customer, error) {
	id := b.StripeID()
	if id == "" {
		return nil, domain.ErrNoStripeID
	}
	return b.gateway.RetrieveCustomer(ctx, id, expandedCustomerFields...)
}

// CreateAsStripeCustomer создает клиента Stripe и сохраняет его ID.
// Email пользователя подставляется, только если params.Email не задан.
// Возвращает клиента в раскрытом виде: SubscriptionBuilder нужны его
// subscriptions, которых нет в ответе на создание.
func (b *Billable) CreateAsStripeCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	customer, err := b.gateway.CreateCustomer(ctx, withDefaultEmail(params, b))
	if err != nil {
		return nil, err
	}

	b.SetStripeID(customer.ID)
	if err := b.Save(ctx); err != nil {
		return nil, err
	}

	return b.AsStripeCustomer(ctx)
}

// UpdateCard делает карту из токена картой по умолчанию.
// Если токен указывает на текущий источник по умолчанию, ничего не делает
// и возвращает nil.
func (b *Billable) UpdateCard(ctx context.Context, token string) (*stripe.Card, error) {
	customer, err := b.AsStripeCustomer(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := b.gateway.RetrieveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if sameSource(tok, customer) {
		b.log.Debugw("Card already default, skipping update",
			"userID", b.User.ID, "stripeCustomerID", customer.ID, "sourceID", tokenSourceID(tok))
		return nil, nil
	}

	card, err := b.gateway.CreateCard(ctx, customer.ID, tok.ID)
	if err != nil {
		return nil, err
	}

	updated, err := b.gateway.UpdateCustomer(ctx, customer.ID, &stripe.CustomerParams{
		DefaultSource: stripe.String(card.ID),
	})
	if err != nil {
		return nil, err
	}

	if updated.DefaultSource != nil {
		b.FillCardDetails(card)
	} else {
		b.FillCardDetails(nil)
	}

	if err := b.Save(ctx); err != nil {
		return nil, err
	}

	return card, nil
}

// Get читает поле по логическому имени
func (b *Billable) Get(name string) (any, error) {
	return b.User.Column(PhysicalColumn(name))
}

// Set пишет поле по логическому имени и возвращает записанное значение
func (b *Billable) Set(name string, value any) (any, error) {
	if err := b.User.SetColumn(PhysicalColumn(name), value); err != nil {
		return nil, err
	}
	return value, nil
}

// IsSet проверяет поле пользователя по имени как есть, без перевода в
// физическую колонку. IsSet("stripe_id") всегда false, даже когда
// offline_cashier_stripe_id заполнен.
func (b *Billable) IsSet(name string) bool {
	return b.User.IsSet(name)
}

// Save сохраняет пользователя
func (b *Billable) Save(ctx context.Context) error {
	return b.users.Save(ctx, b.User)
}

func (b *Billable) StripeID() string     { return b.stringField(FieldStripeID) }
func (b *Billable) CardBrand() string    { return b.stringField(FieldCardBrand) }
func (b *Billable) CardLastFour() string { return b.stringField(FieldCardLastFour) }

func (b *Billable) SetStripeID(id string)        { b.setStringField(FieldStripeID, id) }
func (b *Billable) SetCardBrand(brand string)    { b.setStringField(FieldCardBrand, brand) }
func (b *Billable) SetCardLastFour(last4 string) { b.setStringField(FieldCardLastFour, last4) }

func (b *Billable) TrialEndsAt() *time.Time {
	v, err := b.Get(FieldTrialEndsAt)
	if err != nil {
		return nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func (b *Billable) SetTrialEndsAt(t *time.Time) {
	_, _ = b.Set(FieldTrialEndsAt, t)
}

func (b *Billable) stringField(name string) string {
	v, err := b.Get(name)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// setStringField пустая строка хранится как NULL
func (b *Billable) setStringField(name, value string) {
	var v any
	if value != "" {
		v = value
	}
	_, _ = b.Set(name, v)
}
