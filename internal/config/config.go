package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend string `env:"STORE_BACKEND" default:"memory"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`

	MessageHistoryLimit int           `env:"MESSAGE_HISTORY_LIMIT" default:"100"`
	DeliveryTimeout     time.Duration `env:"DELIVERY_TIMEOUT" default:"3s"`

	MaxConnections      int64   `env:"MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP int     `env:"MAX_CONNECTIONS_PER_IP" default:"20"`
	ConnRatePerSecond   float64 `env:"CONN_RATE_PER_SECOND" default:"10"`
	ConnRateBurst       int     `env:"CONN_RATE_BURST" default:"20"`
}

func Load() (*Config, error) {
	// best effort: absent .env is the normal case in production
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of memory, redis, postgres; got %q", cfg.StoreBackend)
	}

	if cfg.MessageHistoryLimit <= 0 {
		return nil, fmt.Errorf("MESSAGE_HISTORY_LIMIT must be positive, got %d", cfg.MessageHistoryLimit)
	}
	if cfg.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("DELIVERY_TIMEOUT must be positive, got %s", cfg.DeliveryTimeout)
	}
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}

	return &cfg, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
