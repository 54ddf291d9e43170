package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// SubscriptionRepository определяет методы для работы с хранилищем подписок.
type SubscriptionRepository interface {
	// Create сохраняет новую подписку в хранилище.
	Create(ctx context.Context, sub *domain.Subscription) error

	// ListByUserID возвращает подписки пользователя в заданном порядке.
	ListByUserID(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error)
}

// sortableColumns колонки, по которым разрешена сортировка подписок
var sortableColumns = map[string]bool{
	domain.ColumnCreatedAt: true,
	domain.ColumnUpdatedAt: true,
	domain.ColumnName:      true,
}

// ValidateOrder проверяет, что сортировка идет по разрешенной колонке
func ValidateOrder(order domain.Order) error {
	if !sortableColumns[order.Column] {
		return fmt.Errorf("%w: order by %q", ErrInvalidData, order.Column)
	}
	return nil
}

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	subscriptions map[uuid.UUID]domain.Subscription
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		log:           log,
	}
}

// Create создает новую подписку. Пустое время создания заполняется текущим.
func (r *InMemorySubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.subscriptions[sub.ID]; exists {
		return ErrDuplicate
	}

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = sub.CreatedAt

	r.subscriptions[sub.ID] = *sub
	return nil
}

// ListByUserID возвращает подписки пользователя
func (r *InMemorySubscriptionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subs := make([]domain.Subscription, 0)
	for _, sub := range r.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}

	sort.SliceStable(subs, func(i, j int) bool {
		if order.Desc {
			return lessBy(order.Column, subs[j], subs[i])
		}
		return lessBy(order.Column, subs[i], subs[j])
	})

	return subs, nil
}

func lessBy(column string, a, b domain.Subscription) bool {
	switch column {
	case domain.ColumnUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case domain.ColumnName:
		return a.Name < b.Name
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
