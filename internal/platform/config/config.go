package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Postgres captures database connection settings.
type Postgres struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig captures advisory lock backend settings. An empty URL means
// redis is not configured and in-process locking is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures event bus settings. Empty brokers disable change events.
type Kafka struct {
	Brokers       []string
	ConsumerGroup string
}

// Server is the top-level process configuration.
type Server struct {
	Addr     string
	Postgres Postgres
	Redis    RedisConfig
	Kafka    Kafka
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr: envOr("STATEGRAPH_ADDR", ":8080"),
		Postgres: Postgres{
			DSN:          os.Getenv("STATEGRAPH_POSTGRES_DSN"),
			MaxOpenConns: envIntOr("STATEGRAPH_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns: envIntOr("STATEGRAPH_POSTGRES_MAX_IDLE", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("STATEGRAPH_REDIS_URL"),
			PoolSize:     envIntOr("STATEGRAPH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("STATEGRAPH_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			ConsumerGroup: envOr("STATEGRAPH_KAFKA_GROUP", "stategraph"),
		},
	}
	if brokers := os.Getenv("STATEGRAPH_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
