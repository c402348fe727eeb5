// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server settings read from the environment. Every field has
// a working default so the binary runs with no configuration at all.
type Config struct {
	Addr string

	TurnTimeout     time.Duration // per-turn countdown before auto-skip
	GracePeriod     time.Duration // offline player / empty room retention
	HandSize        int           // cards dealt to each player at game start
	PlacementWindow time.Duration // min interval between accepted placements per connection

	CardsFile string
	RedisAddr string
	PGHost    string
}

// Load reads the configuration from environment variables.
func Load() Config {
	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	return Config{
		Addr:            addr,
		TurnTimeout:     time.Duration(getEnvInt("TURN_SECONDS", 30)) * time.Second,
		GracePeriod:     time.Duration(getEnvInt("GRACE_SECONDS", 120)) * time.Second,
		HandSize:        getEnvInt("HAND_SIZE", 5),
		PlacementWindow: time.Duration(getEnvInt("PLACEMENT_THROTTLE_MS", 1000)) * time.Millisecond,
		CardsFile:       getEnv("CARDS_FILE", "data/cards.json"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		PGHost:          os.Getenv("PG_HOST"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
