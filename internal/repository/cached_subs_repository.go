package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// CachedSubscriptionRepository реализует SubscriptionRepository с кешированием
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(
	repo SubscriptionRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) SubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create сохраняет подписку в БД и сбрасывает кеш пользователя
func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	if err := r.repo.Create(ctx, sub); err != nil {
		return err
	}

	if err := r.cache.InvalidateUserSubscriptionsCache(ctx, sub.UserID); err != nil {
		r.log.Warnw("Failed to invalidate user subscriptions cache", "error", err, "userID", sub.UserID)
	}

	return nil
}

// ListByUserID возвращает подписки пользователя (сначала из кеша, потом из БД).
// Ошибки кеша не мешают чтению из БД.
func (r *CachedSubscriptionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	cachedSubs, err := r.cache.GetCachedUserSubscriptions(ctx, userID, order)
	if err != nil {
		r.log.Warnw("Error getting user subscriptions from cache", "error", err, "userID", userID)
	}
	if cachedSubs != nil {
		r.log.Debugw("User subscriptions found in cache", "userID", userID, "count", len(cachedSubs))
		return cachedSubs, nil
	}

	subs, err := r.repo.ListByUserID(ctx, userID, order)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheUserSubscriptions(ctx, userID, order, subs); err != nil {
		r.log.Warnw("Failed to cache user subscriptions", "error", err, "userID", userID)
	}

	return subs, nil
}
