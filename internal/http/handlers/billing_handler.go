package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/internal/middleware"
	"github.com/Dhoini/offline-cashier/internal/repository"
	"github.com/Dhoini/offline-cashier/internal/service"
	"github.com/Dhoini/offline-cashier/pkg/logger"
	"github.com/Dhoini/offline-cashier/pkg/req"
	"github.com/Dhoini/offline-cashier/pkg/res"
)

// BillingHandler обрабатывает HTTP запросы биллинга текущего пользователя.
type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
	debug   bool
}

// NewBillingHandler создает новый экземпляр BillingHandler.
// debug включает debug_info в ответах с ошибками.
func NewBillingHandler(svc service.BillingService, log *logger.Logger, debug bool) *BillingHandler {
	return &BillingHandler{
		service: svc,
		log:     log,
		debug:   debug,
	}
}

// --- DTO ---

type CreateCustomerRequest struct {
	// Email не указан - используется email пользователя
	Email       *string           `json:"email" validate:"omitempty,email"`
	Description string            `json:"description" validate:"max=350"`
	Metadata    map[string]string `json:"metadata" validate:"max=20"`
}

type UpdateCardRequest struct {
	Token string `json:"token" validate:"required"`
}

type CardResponse struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	LastFour string `json:"last_four"`
	ExpMonth int64  `json:"exp_month,omitempty"`
	ExpYear  int64  `json:"exp_year,omitempty"`
}

type SourceResponse struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Brand    string `json:"brand,omitempty"`
	LastFour string `json:"last_four,omitempty"`
}

type CustomerResponse struct {
	ID              string           `json:"id"`
	Email           string           `json:"email,omitempty"`
	Name            string           `json:"name,omitempty"`
	DefaultSourceID string           `json:"default_source_id,omitempty"`
	Sources         []SourceResponse `json:"sources"`
	Subscriptions   []string         `json:"subscriptions"`
	CreatedAt       string           `json:"created_at,omitempty"`
}

type UserBillingResponse struct {
	UserID       string  `json:"user_id"`
	StripeID     *string `json:"stripe_id"`
	CardBrand    *string `json:"card_brand"`
	CardLastFour *string `json:"card_last_four"`
	TrialEndsAt  *string `json:"trial_ends_at"`
}

type SubscriptionResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StripeID    string  `json:"stripe_id"`
	StripePlan  string  `json:"stripe_plan"`
	Quantity    int     `json:"quantity"`
	TrialEndsAt *string `json:"trial_ends_at,omitempty"`
	EndsAt      *string `json:"ends_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// --- Обработчики ---

// CreateCustomer обрабатывает POST /billing/customer
func (h *BillingHandler) CreateCustomer(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	body, ok := req.HandleBody[CreateCustomerRequest](c, h.log)
	if !ok {
		return
	}

	customer, err := h.service.CreateCustomer(c.Request.Context(), userID, service.CreateCustomerInput{
		Email:       body.Email,
		Description: body.Description,
		Metadata:    body.Metadata,
	})
	if err != nil {
		h.handleError(c, err, "Failed to create customer")
		return
	}

	res.JsonResponse(c.Writer, toCustomerResponse(customer), http.StatusCreated)
}

// GetCustomer обрабатывает GET /billing/customer
func (h *BillingHandler) GetCustomer(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "Failed to get customer")
		return
	}

	res.JsonResponse(c.Writer, toCustomerResponse(customer), http.StatusOK)
}

// UpdateCard обрабатывает PUT /billing/card.
// 204, если карта из токена уже карта по умолчанию.
func (h *BillingHandler) UpdateCard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	body, ok := req.HandleBody[UpdateCardRequest](c, h.log)
	if !ok {
		return
	}

	card, err := h.service.UpdateCard(c.Request.Context(), userID, body.Token)
	if err != nil {
		h.handleError(c, err, "Failed to update card")
		return
	}
	if card == nil {
		c.Status(http.StatusNoContent)
		return
	}

	res.JsonResponse(c.Writer, CardResponse{
		ID:       card.ID,
		Brand:    string(card.Brand),
		LastFour: card.Last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
	}, http.StatusOK)
}

// SyncCard обрабатывает POST /billing/card/sync
func (h *BillingHandler) SyncCard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	user, err := h.service.SyncCard(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "Failed to sync card")
		return
	}

	res.JsonResponse(c.Writer, toUserBillingResponse(user), http.StatusOK)
}

// DeleteCards обрабатывает DELETE /billing/cards
func (h *BillingHandler) DeleteCards(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	user, err := h.service.DeleteCards(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "Failed to delete cards")
		return
	}

	res.JsonResponse(c.Writer, toUserBillingResponse(user), http.StatusOK)
}

// ListSubscriptions обрабатывает GET /billing/subscriptions
func (h *BillingHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	subs, err := h.service.ListSubscriptions(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err, "Failed to list subscriptions")
		return
	}

	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubscriptionResponse{
			ID:          sub.ID.String(),
			Name:        sub.Name,
			StripeID:    sub.StripeID,
			StripePlan:  sub.StripePlan,
			Quantity:    sub.Quantity,
			TrialEndsAt: formatTime(sub.TrialEndsAt),
			EndsAt:      formatTime(sub.EndsAt),
			CreatedAt:   sub.CreatedAt.Format(time.RFC3339),
		})
	}

	res.JsonResponse(c.Writer, out, http.StatusOK)
}

func (h *BillingHandler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := middleware.UserID(c)
	if err != nil {
		res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: "Unauthorized"}, http.StatusUnauthorized, h.log)
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}

// handleError переводит ошибку сервиса в HTTP статус
func (h *BillingHandler) handleError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	resp := res.ErrorResponse{Error: message}

	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		resp.Error = "User not found"
	case errors.Is(err, domain.ErrNoStripeID):
		resp.Error = "User is not a Stripe customer yet"
	case errors.Is(err, service.ErrCustomerExists):
		resp.Error = "Stripe customer already exists"
	case errors.As(err, &stripeErr) && stripeErr.Msg != "":
		resp.Details = stripeErr.Msg
	}
	if h.debug {
		resp.DebugInfo = err.Error()
	}

	_ = c.Error(err)
	res.JsonErrorResponse(c.Writer, resp, status, h.log)
	c.Abort()
}

func statusFor(err error) int {
	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoStripeID), errors.Is(err, service.ErrCustomerExists):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidData):
		return http.StatusBadRequest
	case errors.As(err, &stripeErr):
		// 401/403 от Stripe означают проблему с ключом сервиса, а не с пользователем
		if stripeErr.HTTPStatusCode == http.StatusUnauthorized || stripeErr.HTTPStatusCode == http.StatusForbidden {
			return http.StatusBadGateway
		}
		if stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 {
			return stripeErr.HTTPStatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toCustomerResponse(customer *stripe.Customer) CustomerResponse {
	out := CustomerResponse{
		ID:            customer.ID,
		Email:         customer.Email,
		Name:          customer.Name,
		Sources:       []SourceResponse{},
		Subscriptions: []string{},
	}
	if customer.Created > 0 {
		out.CreatedAt = time.Unix(customer.Created, 0).UTC().Format(time.RFC3339)
	}
	if customer.DefaultSource != nil {
		out.DefaultSourceID = customer.DefaultSource.ID
	}
	if customer.Sources != nil {
		for _, src := range customer.Sources.Data {
			if src == nil {
				continue
			}
			item := SourceResponse{ID: src.ID, Type: string(src.Type)}
			switch {
			case src.Card != nil:
				item.Brand = string(src.Card.Brand)
				item.LastFour = src.Card.Last4
			case src.BankAccount != nil:
				item.LastFour = src.BankAccount.Last4
			}
			out.Sources = append(out.Sources, item)
		}
	}
	if customer.Subscriptions != nil {
		for _, sub := range customer.Subscriptions.Data {
			if sub == nil {
				continue
			}
			out.Subscriptions = append(out.Subscriptions, sub.ID)
		}
	}
	return out
}

func toUserBillingResponse(user *domain.User) UserBillingResponse {
	return UserBillingResponse{
		UserID:       user.ID.String(),
		StripeID:     user.OfflineCashierStripeID,
		CardBrand:    user.OfflineCashierCardBrand,
		CardLastFour: user.OfflineCashierCardLast4,
		TrialEndsAt:  formatTime(user.OfflineCashierTrialEndsAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
