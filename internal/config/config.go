// Package config loads service configuration from the environment. A .env
// file in the working directory is read first when present, matching local
// development setups; real deployments set the variables directly.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the bot process.
type Config struct {
	TelegramToken string
	RedisAddr     string
	NATSURL       string
	PostgresDSN   string // empty disables the audit store
	MetricsAddr   string

	SearchWindow       time.Duration
	IdleWindow         time.Duration
	SearchScanInterval time.Duration
	IdleScanInterval   time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything except the Telegram token.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] skipping .env: %v", err)
	}

	cfg := Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		NATSURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		SearchWindow:       getDuration("SEARCH_WINDOW", 2*time.Minute),
		IdleWindow:         getDuration("IDLE_WINDOW", 20*time.Minute),
		SearchScanInterval: getDuration("SEARCH_SCAN_INTERVAL", 5*time.Second),
		IdleScanInterval:   getDuration("IDLE_SCAN_INTERVAL", time.Minute),
	}

	if cfg.TelegramToken == "" {
		return Config{}, fmt.Errorf("config: TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
