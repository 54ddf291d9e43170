package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// UserRepository интерфейс для работы с пользователями CMS
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Save(ctx context.Context, user *domain.User) error
}

// InMemoryUserRepository реализация репозитория в памяти
type InMemoryUserRepository struct {
	users map[uuid.UUID]domain.User
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryUserRepository создает новый репозиторий пользователей в памяти
func NewInMemoryUserRepository(log *logger.Logger) *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]domain.User),
		log:   log,
	}
}

// GetByID возвращает копию пользователя по ID
func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.NewNotFoundError("user", id.String())
	}

	user.HasMany = make(map[string]domain.Relation)
	return &user, nil
}

// Create добавляет пользователя
func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Проверка на уникальность email
	for _, u := range r.users {
		if u.Email == user.Email || u.ID == user.ID {
			return ErrDuplicate
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = snapshot(user)

	return nil
}

// Save сохраняет существующего пользователя
func (r *InMemoryUserRepository) Save(ctx context.Context, user *domain.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return domain.NewNotFoundError("user", user.ID.String())
	}

	for id, u := range r.users {
		if u.Email == user.Email && id != user.ID {
			return ErrDuplicate
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = snapshot(user)

	r.log.Debugw("User saved", "userID", user.ID)
	return nil
}

// snapshot копирует пользователя вместе с nullable-полями
func snapshot(user *domain.User) domain.User {
	u := *user
	u.OfflineCashierStripeID = copyString(user.OfflineCashierStripeID)
	u.OfflineCashierCardBrand = copyString(user.OfflineCashierCardBrand)
	u.OfflineCashierCardLast4 = copyString(user.OfflineCashierCardLast4)
	if user.OfflineCashierTrialEndsAt != nil {
		t := *user.OfflineCashierTrialEndsAt
		u.OfflineCashierTrialEndsAt = &t
	}
	u.HasMany = nil
	return u
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
