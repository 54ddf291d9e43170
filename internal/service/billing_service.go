package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/billing"
	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/internal/kafka"
	"github.com/Dhoini/offline-cashier/internal/metrics"
	"github.com/Dhoini/offline-cashier/internal/repository"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// ErrCustomerExists у пользователя уже есть клиент в Stripe
var ErrCustomerExists = errors.New("stripe customer already exists")

// CreateCustomerInput параметры создания клиента Stripe.
// Email nil означает "взять email пользователя".
type CreateCustomerInput struct {
	Email       *string
	Description string
	Metadata    map[string]string
}

// BillingService интерфейс сервиса биллинга пользователей
type BillingService interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, in CreateCustomerInput) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, userID uuid.UUID) (*stripe.Customer, error)
	// UpdateCard возвращает nil, nil, если карта уже является картой по умолчанию.
	UpdateCard(ctx context.Context, userID uuid.UUID, token string) (*stripe.Card, error)
	SyncCard(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	DeleteCards(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)
}

type billingService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	gateway       billing.Gateway
	producer      kafka.Producer
	metrics       metrics.BillingMetrics
	log           *logger.Logger
}

// NewBillingService создает новый сервис биллинга
func NewBillingService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	gateway billing.Gateway,
	producer kafka.Producer,
	m metrics.BillingMetrics,
	log *logger.Logger,
) BillingService {
	if producer == nil {
		producer = kafka.NoopProducer{}
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &billingService{
		users:         users,
		subscriptions: subscriptions,
		gateway:       gateway,
		producer:      producer,
		metrics:       m,
		log:           log,
	}
}

// billable загружает пользователя и оборачивает его в адаптер на время вызова
func (s *billingService) billable(ctx context.Context, userID uuid.UUID) (*billing.Billable, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return billing.New(user, s.gateway, s.users, s.subscriptions, s.log.With("userID", userID)), nil
}

func (s *billingService) CreateCustomer(ctx context.Context, userID uuid.UUID, in CreateCustomerInput) (*stripe.Customer, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b.HasStripeID() {
		return nil, ErrCustomerExists
	}

	params := &stripe.CustomerParams{Email: in.Email}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if b.User.Name != "" {
		params.Name = stripe.String(b.User.Name)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("user_id", userID.String())

	customer, err := b.CreateAsStripeCustomer(ctx, params)
	if err != nil {
		s.log.Errorw("Failed to create Stripe customer", "userID", userID, "error", err)
		return nil, err
	}

	s.metrics.IncCustomerCreated()
	s.publish(ctx, kafka.TopicCustomerCreated, &kafka.BillingEvent{
		UserID:           userID.String(),
		StripeCustomerID: customer.ID,
	})

	s.log.Infow("Stripe customer created", "userID", userID, "stripeCustomerID", customer.ID)
	return customer, nil
}

func (s *billingService) GetCustomer(ctx context.Context, userID uuid.UUID) (*stripe.Customer, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.AsStripeCustomer(ctx)
}

func (s *billingService) UpdateCard(ctx context.Context, userID uuid.UUID, token string) (*stripe.Card, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}

	card, err := b.UpdateCard(ctx, token)
	if err != nil {
		s.log.Errorw("Failed to update card", "userID", userID, "error", err)
		return nil, err
	}
	if card == nil {
		s.metrics.IncCardUpdateSkipped()
		return nil, nil
	}

	s.publish(ctx, kafka.TopicCardUpdated, &kafka.BillingEvent{
		UserID:           userID.String(),
		StripeCustomerID: b.StripeID(),
		CardID:           card.ID,
		CardBrand:        b.CardBrand(),
		CardLastFour:     b.CardLastFour(),
	})
	return card, nil
}

func (s *billingService) SyncCard(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := b.UpdateCardFromStripe(ctx); err != nil {
		return nil, err
	}
	return b.User, nil
}

func (s *billingService) DeleteCards(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := b.DeleteCards(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.TopicCardsDeleted, &kafka.BillingEvent{
		UserID:           userID.String(),
		StripeCustomerID: b.StripeID(),
	})
	return b.User, nil
}

func (s *billingService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	b, err := s.billable(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.Subscriptions(ctx)
}

// publish отправляет событие. Ошибка только логируется: операция в Stripe
// и в БД уже выполнена.
func (s *billingService) publish(ctx context.Context, topic string, event *kafka.BillingEvent) {
	if err := s.producer.PublishBillingEvent(ctx, topic, event); err != nil {
		s.metrics.IncEventPublishFailed(topic)
		s.log.Warnw("Failed to publish billing event", "topic", topic, "userID", event.UserID, "error", err)
	}
}
