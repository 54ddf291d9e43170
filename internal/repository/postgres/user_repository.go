package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/internal/repository"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

const uniqueViolation = "23505"

// UserRepository репозиторий пользователей через PostgreSQL.
// Биллинговые поля лежат в колонках offline_cashier_* таблицы users.
type UserRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository создает новый репозиторий пользователей через PostgreSQL
func NewUserRepository(db *pgxpool.Pool, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
	}
}

// GetByID возвращает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, name,
		       offline_cashier_stripe_id, offline_cashier_card_brand,
		       offline_cashier_card_last_four, offline_cashier_trial_ends_at,
		       created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{HasMany: make(map[string]domain.Relation)}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.OfflineCashierStripeID,
		&user.OfflineCashierCardBrand,
		&user.OfflineCashierCardLast4,
		&user.OfflineCashierTrialEndsAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Create создает нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, name,
			offline_cashier_stripe_id, offline_cashier_card_brand,
			offline_cashier_card_last_four, offline_cashier_trial_ends_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.OfflineCashierStripeID,
		user.OfflineCashierCardBrand,
		user.OfflineCashierCardLast4,
		user.OfflineCashierTrialEndsAt,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Save сохраняет существующего пользователя
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2,
		    offline_cashier_stripe_id = $3, offline_cashier_card_brand = $4,
		    offline_cashier_card_last_four = $5, offline_cashier_trial_ends_at = $6,
		    updated_at = $7
		WHERE id = $8
	`

	user.UpdatedAt = time.Now()
	result, err := r.db.Exec(ctx, query,
		user.Email,
		user.Name,
		user.OfflineCashierStripeID,
		user.OfflineCashierCardBrand,
		user.OfflineCashierCardLast4,
		user.OfflineCashierTrialEndsAt,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("user", user.ID.String())
	}

	r.log.Debugw("User saved", "userID", user.ID)
	return nil
}
