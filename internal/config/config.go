package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port        string
	MongoURI    string
	MongoDB     string
	JWTSecret   string
	JWTTTL      time.Duration
	Cache       CacheConfig
	NATSURL     string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	Tracing     bool
}

type CacheConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
}

// Load reads the environment. A .env file in the working directory is
// loaded first when present; variables already set take precedence.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Warn("error loading .env file", "error", err)
		}
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	metricsPort, err := strconv.Atoi(getEnv("METRICS_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_PORT: %w", err)
	}
	tracing, err := strconv.ParseBool(getEnv("TRACING_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		MongoURI:  getEnv("MONGO_URI", ""),
		MongoDB:   getEnv("MONGO_DB", "storefront"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    ttl,
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", CacheMemory),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		NATSURL:     getEnv("NATS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		MetricsPort: metricsPort,
		Tracing:     tracing,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDB == "" {
		return fmt.Errorf("MONGO_DB is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.MetricsPort < 0 {
		return fmt.Errorf("METRICS_PORT must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
