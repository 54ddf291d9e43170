package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// DriverName имя драйвера database/sql для PostgreSQL
const DriverName = "pgx"

// RetryConfig настройки повторных попыток подключения при старте
type RetryConfig struct {
	MaxInterval    time.Duration
	MaxElapsedTime time.Duration
}

// DefaultRetryConfig используется, если поля RetryConfig не заданы
var DefaultRetryConfig = RetryConfig{
	MaxInterval:    5 * time.Second,
	MaxElapsedTime: 30 * time.Second,
}

// WithRetry выполняет подключение с экспоненциальной задержкой.
// Используется только для инфраструктуры при старте, вызовы Stripe не повторяются.
func WithRetry(ctx context.Context, cfg RetryConfig, log *logger.Logger, target string, connect func(ctx context.Context) error) error {
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultRetryConfig.MaxInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = DefaultRetryConfig.MaxElapsedTime
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = cfg.MaxElapsedTime
	bo.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		err := connect(ctx)
		if err != nil {
			log.Warnw("Connection attempt failed", "target", target, "attempt", attempt, "error", err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("failed to connect to %s after %d attempts: %w", target, attempt, err)
	}

	log.Infow("Connected", "target", target, "attempts", attempt)
	return nil
}

// Connect открывает sqlx-подключение к PostgreSQL через драйвер pgx
func Connect(ctx context.Context, dsn string, retry RetryConfig, log *logger.Logger) (*sqlx.DB, error) {
	var conn *sqlx.DB
	err := WithRetry(ctx, retry, log, "postgres (sqlx)", func(ctx context.Context) error {
		db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
		if err != nil {
			return err
		}
		conn = db
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}
