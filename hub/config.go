package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the hub's runtime settings, sourced from the environment
// with an optional .env file.
type Config struct {
	ListenAddr string

	// Approval store selection: Postgres wins over Redis, memory is the
	// single-node fallback.
	PostgresURL   string
	RedisAddr     string
	RedisPassword string

	// Optional event fan-out.
	NatsURL string

	// Staleness thresholds.
	StaleCheckInterval time.Duration
	DegradedAfter      time.Duration
	OfflineAfter       time.Duration
}

// LoadConfig reads the environment. A missing .env is not an error.
func LoadConfig() *Config {
	for _, path := range []string{".env", "../.env", "/app/.env"} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded environment from %s", path)
			break
		}
	}

	return &Config{
		ListenAddr:         envOr("HUB_LISTEN_ADDR", ":8090"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		NatsURL:            os.Getenv("NATS_URL"),
		StaleCheckInterval: durationOr("STALE_CHECK_INTERVAL", 10*time.Second),
		DegradedAfter:      durationOr("DEGRADED_AFTER", 15*time.Second),
		OfflineAfter:       durationOr("OFFLINE_AFTER", 45*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v: %v", key, v, fallback, err)
		return fallback
	}
	return d
}
