package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/offline-cashier/internal/metrics"
	"github.com/Dhoini/offline-cashier/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Операции Stripe API, используемые в метриках и логах
const (
	OpRetrieveCustomer = "customer.retrieve"
	OpCreateCustomer   = "customer.create"
	OpUpdateCustomer   = "customer.update"
	OpRetrieveToken    = "token.retrieve"
	OpCreateCard       = "card.create"
	OpDeleteCard       = "card.delete"
)

// Client определяет методы для взаимодействия со Stripe API.
// Ошибки Stripe возвращаются без преобразования: вызывающий код сам решает,
// что с ними делать.
type Client interface {
	// RetrieveCustomer получает клиента по ID, раскрывая указанные вложенные ресурсы.
	RetrieveCustomer(ctx context.Context, id string, expand ...string) (*stripe.Customer, error)

	// CreateCustomer создает нового клиента в Stripe.
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)

	// UpdateCustomer обновляет клиента в Stripe.
	UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)

	// RetrieveToken получает токен карты или счета.
	RetrieveToken(ctx context.Context, id string) (*stripe.Token, error)

	// CreateCard добавляет карту из токена в источники клиента.
	CreateCard(ctx context.Context, customerID, token string) (*stripe.Card, error)

	// DeleteCard удаляет карту из источников клиента.
	DeleteCard(ctx context.Context, customerID, cardID string) error
}

// Config конфигурация клиента Stripe
type Config struct {
	APIKey string
	// BaseURL переопределяет адрес API (stripe-mock, тесты). Пусто - api.stripe.com.
	BaseURL    string
	HTTPClient *http.Client
}

// stripeClient реализует интерфейс Client.
type stripeClient struct {
	client  *client.API
	log     *logger.Logger
	metrics metrics.BillingMetrics
}

// NewStripeClient создает новый экземпляр клиента Stripe.
// Повторные попытки SDK отключены: каждый вызов выполняется ровно один раз.
func NewStripeClient(cfg Config, log *logger.Logger, m metrics.BillingMetrics) Client {
	if m == nil {
		m = metrics.NewNoop()
	}

	backendConfig := &stripe.BackendConfig{
		LeveledLogger:     log,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BaseURL != "" {
		backendConfig.URL = stripe.String(cfg.BaseURL)
	}
	if cfg.HTTPClient != nil {
		backendConfig.HTTPClient = cfg.HTTPClient
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)
	sc := client.New(cfg.APIKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &stripeClient{
		client:  sc,
		log:     log,
		metrics: m,
	}
}

// RetrieveCustomer получает клиента из Stripe по ID.
func (sc *stripeClient) RetrieveCustomer(ctx context.Context, id string, expand ...string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	for _, field := range expand {
		params.AddExpand(field)
	}

	start := time.Now()
	cus, err := sc.client.Customers.Get(id, params)
	sc.observe(OpRetrieveCustomer, start, err)
	if err != nil {
		return nil, err
	}

	sc.log.Debugw("Stripe customer retrieved", "stripeCustomerID", cus.ID, "expand", expand)
	return cus, nil
}

// CreateCustomer создает нового клиента в Stripe.
func (sc *stripeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	p := stripe.CustomerParams{}
	if params != nil {
		p = *params
	}
	p.Context = ctx

	start := time.Now()
	cus, err := sc.client.Customers.New(&p)
	sc.observe(OpCreateCustomer, start, err)
	if err != nil {
		return nil, err
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID)
	return cus, nil
}

// UpdateCustomer обновляет клиента в Stripe.
func (sc *stripeClient) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	p := stripe.CustomerParams{}
	if params != nil {
		p = *params
	}
	p.Context = ctx

	start := time.Now()
	cus, err := sc.client.Customers.Update(id, &p)
	sc.observe(OpUpdateCustomer, start, err)
	if err != nil {
		return nil, err
	}

	sc.log.Infow("Stripe customer updated", "stripeCustomerID", cus.ID)
	return cus, nil
}

// RetrieveToken получает токен из Stripe.
func (sc *stripeClient) RetrieveToken(ctx context.Context, id string) (*stripe.Token, error) {
	params := &stripe.TokenParams{}
	params.Context = ctx

	start := time.Now()
	tok, err := sc.client.Tokens.Get(id, params)
	sc.observe(OpRetrieveToken, start, err)
	if err != nil {
		return nil, err
	}

	sc.log.Debugw("Stripe token retrieved", "tokenID", tok.ID, "type", string(tok.Type))
	return tok, nil
}

// CreateCard создает карту из токена в источниках клиента.
func (sc *stripeClient) CreateCard(ctx context.Context, customerID, token string) (*stripe.Card, error) {
	params := &stripe.CardParams{
		Customer: stripe.String(customerID),
		Token:    stripe.String(token),
	}
	params.Context = ctx

	start := time.Now()
	card, err := sc.client.Cards.New(params)
	sc.observe(OpCreateCard, start, err)
	if err != nil {
		return nil, err
	}

	sc.log.Infow("Stripe card created", "stripeCustomerID", customerID, "cardID", card.ID)
	return card, nil
}

// DeleteCard удаляет карту клиента.
func (sc *stripeClient) DeleteCard(ctx context.Context, customerID, cardID string) error {
	params := &stripe.CardParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	start := time.Now()
	_, err := sc.client.Cards.Del(cardID, params)
	sc.observe(OpDeleteCard, start, err)
	if err != nil {
		return err
	}

	sc.log.Infow("Stripe card deleted", "stripeCustomerID", customerID, "cardID", cardID)
	return nil
}

func (sc *stripeClient) observe(operation string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		logStripeError(sc.log, operation, err)
	}
	sc.metrics.ObserveStripeCall(operation, outcome, time.Since(start))
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", fmt.Sprint(err),
		)
	}
}
