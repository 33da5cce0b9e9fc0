// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the process configuration, loaded from the environment
// with an optional .env file.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	RoundDelay    time.Duration
	LogLevel      logrus.Level
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment")
	}

	cfg := &Config{
		Addr:          getEnv("FADU_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RoundDelay:    5 * time.Second,
		LogLevel:      logrus.InfoLevel,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	if raw := os.Getenv("FADU_ROUND_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: parse FADU_ROUND_DELAY: %w", err)
		}
		cfg.RoundDelay = d
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		lvl, err := logrus.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("config: parse LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
