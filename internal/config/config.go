package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port     string `mapstructure:"port"`
		Env      string `mapstructure:"env"`
		LogLevel string `mapstructure:"logLevel"`
	} `mapstructure:"app"`
	Database struct {
		// DSN пустой - хранилища в памяти
		DSN            string        `mapstructure:"dsn"`
		ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	} `mapstructure:"database"`
	Redis struct {
		// Addr пустой - подписки читаются без кеша
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"redis"`
	Kafka struct {
		// Brokers пустой - события не публикуются
		Brokers           []string `mapstructure:"brokers"`
		Partitions        int      `mapstructure:"partitions"`
		ReplicationFactor int      `mapstructure:"replicationFactor"`
	} `mapstructure:"kafka"`
	Stripe struct {
		APIKey  string `mapstructure:"apiKey"`
		BaseURL string `mapstructure:"baseURL"`
	} `mapstructure:"stripe"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
}

var defaults = map[string]any{
	"app.port":                "8080",
	"app.env":                 "development",
	"app.logLevel":            "info",
	"database.dsn":            "",
	"database.connectTimeout": 30 * time.Second,
	"redis.addr":              "",
	"redis.password":          "",
	"redis.db":                0,
	"redis.cacheTTL":          15 * time.Minute,
	"kafka.brokers":           []string{},
	"kafka.partitions":        3,
	"kafka.replicationFactor": 1,
	"stripe.apiKey":           "",
	"stripe.baseURL":          "",
	"auth.jwtSecret":          "",
}

// IsProduction запущен ли сервис в production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.APIKey == "" {
		errs = append(errs, errors.New("stripe.apiKey is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	if c.App.Port == "" {
		errs = append(errs, errors.New("app.port is required"))
	}
	return errors.Join(errs...)
}

// LoadConfig загружает конфигурацию из config.yaml в каталоге dir и
// переменных окружения (stripe.apiKey -> STRIPE_APIKEY).
// Вне production сначала подгружается .env, если он есть.
func LoadConfig(dir string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		envFile := ".env"
		if dir != "" {
			envFile = dir + string(os.PathSeparator) + ".env"
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// APP_ENV приоритетнее app.env из файла
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.App.Env = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
