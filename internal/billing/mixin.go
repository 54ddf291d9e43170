package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// bankAccountBrand значение card_brand для банковского счета по умолчанию
const bankAccountBrand = "Bank Account"

// BillingMixin общее поведение биллинговой библиотеки.
//
// Методы, которые владелец может переопределить, вызываются через self,
// поэтому AsStripeCustomer внутри UpdateCardFromStripe попадает в версию
// адаптера, а не в версию по умолчанию.
type BillingMixin struct {
	self    Customer
	gateway Gateway
	log     *logger.Logger
}

func newBillingMixin(self Customer, gateway Gateway, log *logger.Logger) BillingMixin {
	return BillingMixin{
		self:    self,
		gateway: gateway,
		log:     log,
	}
}

// AsStripeCustomer версия библиотеки по умолчанию: без expand, поэтому на
// API 2020-08-27 и новее в ответе нет sources и subscriptions.
func (m *BillingMixin) AsStripeCustomer(ctx context.Context) (*stripe.Customer, error) {
	id := m.self.StripeID()
	if id == "" {
		return nil, domain.ErrNoStripeID
	}
	return m.gateway.RetrieveCustomer(ctx, id)
}

// CreateAsStripeCustomer версия библиотеки по умолчанию: возвращает сырой
// ответ создания.
func (m *BillingMixin) CreateAsStripeCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	p := withDefaultEmail(params, m.self)

	customer, err := m.gateway.CreateCustomer(ctx, p)
	if err != nil {
		return nil, err
	}

	m.self.SetStripeID(customer.ID)
	if err := m.self.Save(ctx); err != nil {
		return nil, err
	}

	return customer, nil
}

// UpdateCard версия библиотеки по умолчанию: данные карты берутся из
// sources обновленного клиента.
func (m *BillingMixin) UpdateCard(ctx context.Context, token string) (*stripe.Card, error) {
	customer, err := m.self.AsStripeCustomer(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := m.gateway.RetrieveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if sameSource(tok, customer) {
		return nil, nil
	}

	card, err := m.gateway.CreateCard(ctx, customer.ID, tok.ID)
	if err != nil {
		return nil, err
	}

	updated, err := m.gateway.UpdateCustomer(ctx, customer.ID, &stripe.CustomerParams{
		DefaultSource: stripe.String(card.ID),
	})
	if err != nil {
		return nil, err
	}

	if src := findSource(updated, sourceID(updated.DefaultSource)); src != nil {
		m.FillCardDetails(src.Card)
	}

	if err := m.self.Save(ctx); err != nil {
		return nil, err
	}

	return card, nil
}

// HasStripeID есть ли у пользователя клиент в Stripe
func (m *BillingMixin) HasStripeID() bool {
	return m.self.StripeID() != ""
}

// HasCardOnFile сохранены ли локально данные карты
func (m *BillingMixin) HasCardOnFile() bool {
	return m.self.CardBrand() != ""
}

// OnGenericTrial действует ли пробный период, не привязанный к подписке
func (m *BillingMixin) OnGenericTrial(now time.Time) bool {
	trialEndsAt := m.self.TrialEndsAt()
	return trialEndsAt != nil && now.Before(*trialEndsAt)
}

// FillCardDetails копирует бренд и последние цифры карты.
// nil ничего не меняет.
func (m *BillingMixin) FillCardDetails(card *stripe.Card) {
	if card == nil {
		return
	}
	m.self.SetCardBrand(string(card.Brand))
	m.self.SetCardLastFour(card.Last4)
}

// FillBankAccountDetails то же для банковского счета
func (m *BillingMixin) FillBankAccountDetails(account *stripe.BankAccount) {
	if account == nil {
		return
	}
	m.self.SetCardBrand(bankAccountBrand)
	m.self.SetCardLastFour(account.Last4)
}

// DefaultCard возвращает источник оплаты по умолчанию (карту или счет),
// nil если его нет.
func (m *BillingMixin) DefaultCard(ctx context.Context) (*stripe.PaymentSource, error) {
	customer, err := m.self.AsStripeCustomer(ctx)
	if err != nil {
		return nil, err
	}
	return findSource(customer, sourceID(customer.DefaultSource)), nil
}

// Cards возвращает карты клиента
func (m *BillingMixin) Cards(ctx context.Context) ([]*stripe.Card, error) {
	customer, err := m.self.AsStripeCustomer(ctx)
	if err != nil {
		return nil, err
	}

	var cards []*stripe.Card
	if customer.Sources == nil {
		return cards, nil
	}
	for _, src := range customer.Sources.Data {
		if src != nil && src.Type == stripe.PaymentSourceTypeCard && src.Card != nil {
			cards = append(cards, src.Card)
		}
	}
	return cards, nil
}

// UpdateCardFromStripe обновляет локальные данные карты по источнику по
// умолчанию в Stripe и сохраняет пользователя.
func (m *BillingMixin) UpdateCardFromStripe(ctx context.Context) error {
	src, err := m.DefaultCard(ctx)
	if err != nil {
		return err
	}

	switch {
	case src == nil:
		m.self.SetCardBrand("")
		m.self.SetCardLastFour("")
	case src.Card != nil:
		m.FillCardDetails(src.Card)
	case src.BankAccount != nil:
		m.FillBankAccountDetails(src.BankAccount)
	}

	return m.self.Save(ctx)
}

// DeleteCards удаляет все карты клиента в Stripe и обновляет локальные данные
func (m *BillingMixin) DeleteCards(ctx context.Context) error {
	cards, err := m.Cards(ctx)
	if err != nil {
		return err
	}

	customerID := m.self.StripeID()
	for _, card := range cards {
		if err := m.gateway.DeleteCard(ctx, customerID, card.ID); err != nil {
			return err
		}
	}

	m.log.Infow("Deleted customer cards", "stripeCustomerID", customerID, "count", len(cards))
	return m.UpdateCardFromStripe(ctx)
}

// Subscription возвращает самую новую подписку с данным именем
func (m *BillingMixin) Subscription(ctx context.Context, name string) (*domain.Subscription, error) {
	subs, err := m.self.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].Name == name {
			return &subs[i], nil
		}
	}
	return nil, domain.NewNotFoundError("subscription", name)
}

func withDefaultEmail(params *stripe.CustomerParams, self Customer) *stripe.CustomerParams {
	p := stripe.CustomerParams{}
	if params != nil {
		p = *params
	}
	if p.Email == nil {
		if email, err := self.Get(domain.ColumnEmail); err == nil {
			if s, ok := email.(string); ok {
				p.Email = stripe.String(s)
			}
		}
	}
	return &p
}

// sameSource совпадает ли источник токена с источником клиента по умолчанию
func sameSource(tok *stripe.Token, customer *stripe.Customer) bool {
	id := tokenSourceID(tok)
	return id != "" && id == sourceID(customer.DefaultSource)
}

func tokenSourceID(tok *stripe.Token) string {
	if tok == nil {
		return ""
	}
	switch tok.Type {
	case stripe.TokenTypeCard:
		if tok.Card != nil {
			return tok.Card.ID
		}
	case stripe.TokenTypeBankAccount:
		if tok.BankAccount != nil {
			return tok.BankAccount.ID
		}
	}
	return ""
}

func sourceID(src *stripe.PaymentSource) string {
	if src == nil {
		return ""
	}
	return src.ID
}

func findSource(customer *stripe.Customer, id string) *stripe.PaymentSource {
	if customer == nil || customer.Sources == nil || id == "" {
		return nil
	}
	for _, src := range customer.Sources.Data {
		if src != nil && src.ID == id {
			return src
		}
	}
	return nil
}
