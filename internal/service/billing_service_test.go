package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/internal/kafka"
	"github.com/Dhoini/offline-cashier/internal/repository"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

type stubGateway struct {
	customers map[string]*stripe.Customer
	tokens    map[string]*stripe.Token
	created   []*stripe.CustomerParams
	seq       int
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		customers: make(map[string]*stripe.Customer),
		tokens:    make(map[string]*stripe.Token),
	}
}

func (g *stubGateway) RetrieveCustomer(_ context.Context, id string, _ ...string) (*stripe.Customer, error) {
	cus, ok := g.customers[id]
	if !ok {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: 404}
	}
	out := *cus
	return &out, nil
}

func (g *stubGateway) CreateCustomer(_ context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	g.created = append(g.created, params)
	g.seq++
	cus := &stripe.Customer{
		ID:            fmt.Sprintf("cus_%d", g.seq),
		Sources:       &stripe.PaymentSourceList{},
		Subscriptions: &stripe.SubscriptionList{},
	}
	g.customers[cus.ID] = cus
	return cus, nil
}

func (g *stubGateway) UpdateCustomer(_ context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	cus := g.customers[id]
	cus.DefaultSource = &stripe.PaymentSource{ID: *params.DefaultSource}
	out := *cus
	return &out, nil
}

func (g *stubGateway) RetrieveToken(_ context.Context, id string) (*stripe.Token, error) {
	return g.tokens[id], nil
}

func (g *stubGateway) CreateCard(_ context.Context, customerID, token string) (*stripe.Card, error) {
	card := *g.tokens[token].Card
	cus := g.customers[customerID]
	cus.Sources.Data = append(cus.Sources.Data, &stripe.PaymentSource{
		ID: card.ID, Type: stripe.PaymentSourceTypeCard, Card: &card,
	})
	return &card, nil
}

func (g *stubGateway) DeleteCard(_ context.Context, customerID, cardID string) error {
	cus := g.customers[customerID]
	var kept []*stripe.PaymentSource
	for _, src := range cus.Sources.Data {
		if src.ID != cardID {
			kept = append(kept, src)
		}
	}
	cus.Sources.Data = kept
	if cus.DefaultSource != nil && cus.DefaultSource.ID == cardID {
		cus.DefaultSource = nil
	}
	return nil
}

type publishedEvent struct {
	topic string
	event kafka.BillingEvent
}

type recordingProducer struct {
	events []publishedEvent
	err    error
}

func (p *recordingProducer) PublishBillingEvent(_ context.Context, topic string, event *kafka.BillingEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, event: *event})
	return nil
}

func (p *recordingProducer) Close() error { return nil }

type countingMetrics struct {
	skipped       int
	created       int
	publishFailed map[string]int
}

func (m *countingMetrics) ObserveStripeCall(string, string, time.Duration) {}
func (m *countingMetrics) IncCardUpdateSkipped()                         { m.skipped++ }
func (m *countingMetrics) IncCustomerCreated()                           { m.created++ }
func (m *countingMetrics) IncEventPublishFailed(topic string) {
	if m.publishFailed == nil {
		m.publishFailed = make(map[string]int)
	}
	m.publishFailed[topic]++
}

type serviceFixture struct {
	svc      BillingService
	users    *repository.InMemoryUserRepository
	subs     *repository.InMemorySubscriptionRepository
	gateway  *stubGateway
	producer *recordingProducer
	metrics  *countingMetrics
	user     *domain.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		users:    repository.NewInMemoryUserRepository(logger.Nop()),
		subs:     repository.NewInMemorySubscriptionRepository(logger.Nop()),
		gateway:  newStubGateway(),
		producer: &recordingProducer{},
		metrics:  &countingMetrics{},
		user:     domain.NewUser("a@b.com", "Ann"),
	}
	require.NoError(t, f.users.Create(context.Background(), f.user))
	f.svc = NewBillingService(f.users, f.subs, f.gateway, f.producer, f.metrics, logger.Nop())
	return f
}

func (f *serviceFixture) createCustomer(t *testing.T) *stripe.Customer {
	t.Helper()
	cus, err := f.svc.CreateCustomer(context.Background(), f.user.ID, CreateCustomerInput{})
	require.NoError(t, err)
	return cus
}

func TestCreateCustomer(t *testing.T) {
	f := newServiceFixture(t)

	cus := f.createCustomer(t)

	stored, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OfflineCashierStripeID)
	assert.Equal(t, cus.ID, *stored.OfflineCashierStripeID)

	require.Len(t, f.gateway.created, 1)
	params := f.gateway.created[0]
	assert.Equal(t, "a@b.com", *params.Email)
	assert.Equal(t, "Ann", *params.Name)
	assert.Equal(t, f.user.ID.String(), params.Metadata["user_id"])

	assert.Equal(t, 1, f.metrics.created)
	require.Len(t, f.producer.events, 1)
	assert.Equal(t, kafka.TopicCustomerCreated, f.producer.events[0].topic)
	assert.Equal(t, cus.ID, f.producer.events[0].event.StripeCustomerID)
}

func TestCreateCustomer_AlreadyExists(t *testing.T) {
	f := newServiceFixture(t)
	f.createCustomer(t)

	_, err := f.svc.CreateCustomer(context.Background(), f.user.ID, CreateCustomerInput{})
	assert.ErrorIs(t, err, ErrCustomerExists)
	assert.Len(t, f.gateway.created, 1)
}

func TestCreateCustomer_UnknownUser(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreateCustomer(context.Background(), uuid.New(), CreateCustomerInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCustomer_NoStripeID(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.GetCustomer(context.Background(), f.user.ID)
	assert.ErrorIs(t, err, domain.ErrNoStripeID)
}

func TestUpdateCard(t *testing.T) {
	f := newServiceFixture(t)
	f.createCustomer(t)
	f.gateway.tokens["tok_visa"] = &stripe.Token{
		ID: "tok_visa", Type: stripe.TokenTypeCard,
		Card: &stripe.Card{ID: "card_1", Brand: stripe.CardBrandVisa, Last4: "4242"},
	}

	card, err := f.svc.UpdateCard(context.Background(), f.user.ID, "tok_visa")
	require.NoError(t, err)
	require.NotNil(t, card)

	stored, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Visa", *stored.OfflineCashierCardBrand)
	assert.Equal(t, "4242", *stored.OfflineCashierCardLast4)

	last := f.producer.events[len(f.producer.events)-1]
	assert.Equal(t, kafka.TopicCardUpdated, last.topic)
	assert.Equal(t, "card_1", last.event.CardID)
	assert.Equal(t, "4242", last.event.CardLastFour)

	// the same card again is skipped
	events := len(f.producer.events)
	card, err = f.svc.UpdateCard(context.Background(), f.user.ID, "tok_visa")
	require.NoError(t, err)
	assert.Nil(t, card)
	assert.Equal(t, 1, f.metrics.skipped)
	assert.Len(t, f.producer.events, events)
}

func TestPublishFailureIsNotReturned(t *testing.T) {
	f := newServiceFixture(t)
	f.producer.err = errors.New("broker unavailable")

	_, err := f.svc.CreateCustomer(context.Background(), f.user.ID, CreateCustomerInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.publishFailed[kafka.TopicCustomerCreated])
}

func TestSyncAndDeleteCards(t *testing.T) {
	f := newServiceFixture(t)
	cus := f.createCustomer(t)
	card := &stripe.Card{ID: "card_1", Brand: stripe.CardBrandMasterCard, Last4: "4444"}
	remote := f.gateway.customers[cus.ID]
	remote.Sources.Data = []*stripe.PaymentSource{{ID: "card_1", Type: stripe.PaymentSourceTypeCard, Card: card}}
	remote.DefaultSource = &stripe.PaymentSource{ID: "card_1"}

	user, err := f.svc.SyncCard(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "MasterCard", *user.OfflineCashierCardBrand)

	user, err = f.svc.DeleteCards(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, user.OfflineCashierCardBrand)
	assert.Empty(t, remote.Sources.Data)

	last := f.producer.events[len(f.producer.events)-1]
	assert.Equal(t, kafka.TopicCardsDeleted, last.topic)
}

func TestListSubscriptions_NewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"t1", "t2", "t3"} {
		sub := domain.NewSubscription(f.user.ID, name, "sub_"+name, "plan", 1)
		sub.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.subs.Create(context.Background(), sub))
	}

	subs, err := f.svc.ListSubscriptions(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "t3", subs[0].Name)
	assert.Equal(t, "t1", subs[2].Name)
}
