package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is read from the environment once at startup. TrustDev gates the
// X-Tenant override header and the default-tenant fallback; it must never be
// set in production.
type Config struct {
	DatabaseURL string
	Port        int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DirectoryTTL   time.Duration
	TokenRetention time.Duration

	TrustDev bool
}

// Load reads the environment. DATABASE_URL is the only required variable.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           envInt("PORT", 8080),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTTL:      envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:     envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		RedisAddr:      envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		DirectoryTTL:   envDuration("TENANT_DIRECTORY_TTL", 30*time.Minute),
		TokenRetention: envDuration("TOKEN_RETENTION", 90*24*time.Hour),
		TrustDev:       os.Getenv("TRUST_DEV") == "true",
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
