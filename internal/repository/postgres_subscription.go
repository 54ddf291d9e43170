package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// postgresSubscriptionRepo реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория для PostgreSQL.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{
		db:  db,
		log: log,
	}
}

// Create сохраняет новую подписку в базе данных.
func (r *postgresSubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = sub.CreatedAt

	query := `
        INSERT INTO offline_cashier_subscriptions (
            id, user_id, name, stripe_id, stripe_plan, quantity,
            trial_ends_at, ends_at, created_at, updated_at
        ) VALUES (
            :id, :user_id, :name, :stripe_id, :stripe_plan, :quantity,
            :trial_ends_at, :ends_at, :created_at, :updated_at
        )`
	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		r.log.Errorw("Failed to create subscription in DB", "error", err, "subscriptionID", sub.ID, "userID", sub.UserID)
		return fmt.Errorf("repository: failed to create subscription: %w", err)
	}

	r.log.Debugw("Successfully created subscription in DB", "subscriptionID", sub.ID, "userID", sub.UserID)
	return nil
}

// ListByUserID возвращает подписки пользователя.
// Колонка сортировки проверяется по белому списку до подстановки в запрос.
func (r *postgresSubscriptionRepo) ListByUserID(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	direction := "ASC"
	if order.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
        SELECT id, user_id, name, stripe_id, stripe_plan, quantity,
               trial_ends_at, ends_at, created_at, updated_at
        FROM offline_cashier_subscriptions
        WHERE user_id = $1
        ORDER BY %s %s`, order.Column, direction)

	subs := make([]domain.Subscription, 0)
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		r.log.Errorw("Failed to get subscriptions by user ID from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get subscriptions by user ID: %w", err)
	}

	r.log.Debugw("Successfully retrieved subscriptions by user ID", "userID", userID, "count", len(subs))
	return subs, nil
}
