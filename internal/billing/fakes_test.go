package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
)

// fakeGateway хранит клиентов и токены в памяти и записывает вызовы
type fakeGateway struct {
	customers map[string]*stripe.Customer
	tokens    map[string]*stripe.Token

	calls          []string
	retrieveExpand [][]string
	createParams   []*stripe.CustomerParams
	updateParams   []*stripe.CustomerParams

	// dropDefaultOnUpdate имитирует ответ обновления без default_source
	dropDefaultOnUpdate bool
	// unexpandedUpdate имитирует ответ обновления без sources
	unexpandedUpdate bool

	errs map[string]error
	seq  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		customers: make(map[string]*stripe.Customer),
		tokens:    make(map[string]*stripe.Token),
		errs:      make(map[string]error),
	}
}

func (g *fakeGateway) addCustomer(id string, cards ...*stripe.Card) *stripe.Customer {
	cus := &stripe.Customer{ID: id, Sources: &stripe.PaymentSourceList{}}
	for _, card := range cards {
		cus.Sources.Data = append(cus.Sources.Data, cardSource(card))
	}
	if len(cards) > 0 {
		cus.DefaultSource = &stripe.PaymentSource{ID: cards[0].ID}
	}
	g.customers[id] = cus
	return cus
}

func (g *fakeGateway) addCardToken(id string, card *stripe.Card) {
	g.tokens[id] = &stripe.Token{ID: id, Type: stripe.TokenTypeCard, Card: card}
}

func (g *fakeGateway) mutations() []string {
	var out []string
	for _, c := range g.calls {
		switch c {
		case "CreateCustomer", "UpdateCustomer", "CreateCard", "DeleteCard":
			out = append(out, c)
		}
	}
	return out
}

func cardSource(card *stripe.Card) *stripe.PaymentSource {
	return &stripe.PaymentSource{ID: card.ID, Type: stripe.PaymentSourceTypeCard, Card: card}
}

func (g *fakeGateway) RetrieveCustomer(_ context.Context, id string, expand ...string) (*stripe.Customer, error) {
	g.calls = append(g.calls, "RetrieveCustomer")
	g.retrieveExpand = append(g.retrieveExpand, expand)
	if err := g.errs["RetrieveCustomer"]; err != nil {
		return nil, err
	}
	cus, ok := g.customers[id]
	if !ok {
		return nil, &stripe.Error{
			Code:           stripe.ErrorCodeResourceMissing,
			HTTPStatusCode: 404,
			Msg:            fmt.Sprintf("No such customer: '%s'", id),
		}
	}

	out := *cus
	if len(expand) == 0 {
		out.Sources = nil
		out.Subscriptions = nil
	}
	return &out, nil
}

func (g *fakeGateway) CreateCustomer(_ context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	g.calls = append(g.calls, "CreateCustomer")
	g.createParams = append(g.createParams, params)
	if err := g.errs["CreateCustomer"]; err != nil {
		return nil, err
	}
	g.seq++
	id := fmt.Sprintf("cus_%d", g.seq)
	cus := g.addCustomer(id)
	cus.Subscriptions = &stripe.SubscriptionList{}
	if params.Email != nil {
		cus.Email = *params.Email
	}

	raw := *cus
	raw.Sources = nil
	raw.Subscriptions = nil
	return &raw, nil
}

func (g *fakeGateway) UpdateCustomer(_ context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	g.calls = append(g.calls, "UpdateCustomer")
	g.updateParams = append(g.updateParams, params)
	if err := g.errs["UpdateCustomer"]; err != nil {
		return nil, err
	}
	cus := g.customers[id]
	if params.DefaultSource != nil {
		cus.DefaultSource = &stripe.PaymentSource{ID: *params.DefaultSource}
	}

	out := *cus
	if g.dropDefaultOnUpdate {
		out.DefaultSource = nil
	}
	if g.unexpandedUpdate {
		out.Sources = nil
	}
	return &out, nil
}

func (g *fakeGateway) RetrieveToken(_ context.Context, id string) (*stripe.Token, error) {
	g.calls = append(g.calls, "RetrieveToken")
	if err := g.errs["RetrieveToken"]; err != nil {
		return nil, err
	}
	tok, ok := g.tokens[id]
	if !ok {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: 404}
	}
	return tok, nil
}

func (g *fakeGateway) CreateCard(_ context.Context, customerID, token string) (*stripe.Card, error) {
	g.calls = append(g.calls, "CreateCard")
	if err := g.errs["CreateCard"]; err != nil {
		return nil, err
	}
	card := *g.tokens[token].Card
	cus := g.customers[customerID]
	cus.Sources.Data = append(cus.Sources.Data, cardSource(&card))
	return &card, nil
}

func (g *fakeGateway) DeleteCard(_ context.Context, customerID, cardID string) error {
	g.calls = append(g.calls, "DeleteCard")
	if err := g.errs["DeleteCard"]; err != nil {
		return err
	}
	cus := g.customers[customerID]
	kept := cus.Sources.Data[:0]
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

// fakeUsers считает сохранения и запоминает последний снимок
type fakeUsers struct {
	saved int
	last  domain.User
	err   error
}

func (r *fakeUsers) Save(_ context.Context, user *domain.User) error {
	if r.err != nil {
		return r.err
	}
	r.saved++
	r.last = *user
	return nil
}

// fakeSubscriptions сортирует подписки по запрошенному порядку
type fakeSubscriptions struct {
	items     []domain.Subscription
	lastOrder domain.Order
}

func (r *fakeSubscriptions) ListByUserID(_ context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error) {
	r.lastOrder = order
	var out []domain.Subscription
	for _, s := range r.items {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order.Desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type fixture struct {
	user    *domain.User
	gateway *fakeGateway
	users   *fakeUsers
	subs    *fakeSubscriptions
	b       *Billable
}

func newFixture() *fixture {
	f := &fixture{
		user:    domain.NewUser("a@b.com", "Ann"),
		gateway: newFakeGateway(),
		users:   &fakeUsers{},
		subs:    &fakeSubscriptions{},
	}
	f.b = New(f.user, f.gateway, f.users, f.subs, nil)
	return f
}
