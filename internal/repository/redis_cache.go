package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

const (
	userSubscriptionsKeyPrefix = "offline_cashier:user_subscriptions:"

	// DefaultCacheTTL TTL для кэша
	DefaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository кеширует списки подписок пользователей.
// Списки одного пользователя лежат в одном hash, поле - порядок сортировки,
// поэтому инвалидация удаляет все порядки сразу.
type RedisCacheRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает кеш поверх готового клиента
func NewRedisCacheRepository(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

func userSubscriptionsKey(userID uuid.UUID) string {
	return userSubscriptionsKeyPrefix + userID.String()
}

func orderField(order domain.Order) string {
	if order.Desc {
		return order.Column + ":desc"
	}
	return order.Column + ":asc"
}

// CacheUserSubscriptions кеширует список подписок пользователя
func (r *RedisCacheRepository) CacheUserSubscriptions(ctx context.Context, userID uuid.UUID, order domain.Order, subs []domain.Subscription) error {
	key := userSubscriptionsKey(userID)

	data, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("failed to marshal user subscriptions: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, orderField(order), data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache user subscriptions: %w", err)
	}

	r.log.Debugw("User subscriptions cached successfully", "userID", userID, "count", len(subs))
	return nil
}

// GetCachedUserSubscriptions получает список из кеша. Промах - nil, nil.
func (r *RedisCacheRepository) GetCachedUserSubscriptions(ctx context.Context, userID uuid.UUID, order domain.Order) ([]domain.Subscription, error) {
	data, err := r.client.HGet(ctx, userSubscriptionsKey(userID), orderField(order)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user subscriptions from cache: %w", err)
	}

	subs := make([]domain.Subscription, 0)
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user subscriptions: %w", err)
	}

	return subs, nil
}

// InvalidateUserSubscriptionsCache удаляет кеш подписок пользователя
func (r *RedisCacheRepository) InvalidateUserSubscriptionsCache(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, userSubscriptionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user subscriptions cache: %w", err)
	}

	r.log.Debugw("User subscriptions cache invalidated", "userID", userID)
	return nil
}
