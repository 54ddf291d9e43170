package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Dhoini/offline-cashier/internal/config"
	"github.com/Dhoini/offline-cashier/internal/db"
	"github.com/Dhoini/offline-cashier/internal/http/handlers"
	"github.com/Dhoini/offline-cashier/internal/http/routes"
	"github.com/Dhoini/offline-cashier/internal/kafka"
	"github.com/Dhoini/offline-cashier/internal/metrics"
	"github.com/Dhoini/offline-cashier/internal/middleware"
	"github.com/Dhoini/offline-cashier/internal/repository"
	"github.com/Dhoini/offline-cashier/internal/repository/postgres"
	"github.com/Dhoini/offline-cashier/internal/service"
	"github.com/Dhoini/offline-cashier/internal/stripe"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config         *config.Config
	Registry       *prometheus.Registry
	BillingService service.BillingService
	Router         *gin.Engine
	Logger         *logger.Logger

	server  *http.Server
	closers []func() error
}

// NewApp создает и инициализирует приложение.
// Пустой DSN - хранилища в памяти, пустой адрес Redis - без кеша,
// без брокеров Kafka события не публикуются.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: metrics.NewRegistry(),
		Logger:   log,
	}
	billingMetrics := metrics.NewBillingMetrics(a.Registry)
	retry := db.RetryConfig{MaxElapsedTime: cfg.Database.ConnectTimeout}

	users, subs, err := a.initStorage(ctx, retry)
	if err != nil {
		a.Close()
		return nil, err
	}

	subs, err = a.initCache(ctx, subs, retry)
	if err != nil {
		a.Close()
		return nil, err
	}

	producer, err := a.initProducer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway := stripe.NewStripeClient(stripe.Config{
		APIKey:  cfg.Stripe.APIKey,
		BaseURL: cfg.Stripe.BaseURL,
	}, log, billingMetrics)

	a.BillingService = service.NewBillingService(users, subs, gateway, producer, billingMetrics, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Router = gin.New()
	routes.SetupRoutes(a.Router, routes.Deps{
		BillingHandler: handlers.NewBillingHandler(a.BillingService, log, !cfg.IsProduction()),
		Auth:           middleware.NewJWTMiddleware(log, &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}),
		Registry:       a.Registry,
	}, log)

	a.server = &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      a.Router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) initStorage(ctx context.Context, retry db.RetryConfig) (repository.UserRepository, repository.SubscriptionRepository, error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warnw("Database DSN is not set, using in-memory storage")
		return repository.NewInMemoryUserRepository(a.Logger), repository.NewInMemorySubscriptionRepository(a.Logger), nil
	}

	pool, err := postgres.NewConnection(ctx, a.Config.Database.DSN, retry, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("users storage: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	sqlDB, err := db.Connect(ctx, a.Config.Database.DSN, retry, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("subscriptions storage: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	a.Logger.Infow("Database connection established")
	return postgres.NewUserRepository(pool, a.Logger), repository.NewPostgresSubscriptionRepository(sqlDB, a.Logger), nil
}

func (a *App) initCache(ctx context.Context, base repository.SubscriptionRepository, retry db.RetryConfig) (repository.SubscriptionRepository, error) {
	if a.Config.Redis.Addr == "" {
		a.Logger.Infow("Using non-cached subscription repository")
		return base, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	err := db.WithRetry(ctx, retry, a.Logger, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	cache := repository.NewRedisCacheRepository(client, a.Config.Redis.CacheTTL, a.Logger)
	a.closers = append(a.closers, cache.Close)

	a.Logger.Infow("Using cached subscription repository", "ttl", a.Config.Redis.CacheTTL)
	return repository.NewCachedSubscriptionRepository(base, cache, a.Logger), nil
}

func (a *App) initProducer(ctx context.Context) (kafka.Producer, error) {
	brokers := a.Config.Kafka.Brokers
	if len(brokers) == 0 {
		a.Logger.Warnw("Kafka brokers are not set, billing events will not be published")
		return kafka.NoopProducer{}, nil
	}

	if err := kafka.EnsureKafkaTopics(ctx, brokers, a.Config.Kafka.Partitions, a.Config.Kafka.ReplicationFactor, a.Logger); err != nil {
		return nil, fmt.Errorf("kafka topics: %w", err)
	}

	producer, err := kafka.NewKafkaProducer(brokers, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, producer.Close)
	return producer, nil
}

// Run запускает HTTP сервер и блокируется до отмены ctx, после чего
// останавливает сервер, дожидаясь текущих запросов.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infow("Starting HTTP server", "port", a.Config.App.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Infow("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.Logger.Infow("HTTP server gracefully stopped")
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Errorw("Error closing resource", "error", err)
		}
	}
	a.closers = nil
}
