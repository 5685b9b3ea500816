// Package config loads process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabaseURLEnv                  = "DATABASE_URL"
	HTTPHostEnv                     = "HTTP_HOST"
	HTTPPortEnv                     = "HTTP_PORT"
	CORSOriginsEnv                  = "CORS_ORIGINS"
	LogLevelEnv                     = "LOG_LEVEL"
	RateLimitPerSecEnv              = "RATE_LIMIT_PER_SEC"
	LeaderboardRefreshIntervalEnv   = "LEADERBOARD_REFRESH_INTERVAL"
)

// Config holds everything read from the environment at process start.
type Config struct {
	DatabaseURL                string
	HTTPHost                   string
	HTTPPort                   int
	CORSOrigins                []string
	LogLevel                   string
	RateLimitPerSec            int
	LeaderboardRefreshInterval time.Duration
}

// Load reads a .env file (if present) and then the process environment,
// applying defaults for anything unset. A missing .env file is not fatal,
// matching how this service is expected to run both locally and deployed
// with real environment variables already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file found, reading environment directly")
	}

	dbURL := getStringOrDefault(DatabaseURLEnv, "")
	if dbURL == "" {
		return Config{}, fmt.Errorf("config: %s is required", DatabaseURLEnv)
	}

	corsOrigins := getStringOrDefault(CORSOriginsEnv, "*")

	rateLimit, err := getIntOrDefault(RateLimitPerSecEnv, 20)
	if err != nil {
		return Config{}, err
	}

	port, err := getIntOrDefault(HTTPPortEnv, 8080)
	if err != nil {
		return Config{}, err
	}

	refresh, err := getDurationOrDefault(LeaderboardRefreshIntervalEnv, 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DatabaseURL:                dbURL,
		HTTPHost:                   getStringOrDefault(HTTPHostEnv, "localhost"),
		HTTPPort:                   port,
		CORSOrigins:                splitCSV(corsOrigins),
		LogLevel:                   getStringOrDefault(LogLevelEnv, "info"),
		RateLimitPerSec:            rateLimit,
		LeaderboardRefreshInterval: refresh,
	}, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getIntOrDefault(key string, defaultVal int) (int, error) {
	s := getStringOrDefault(key, "")
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDurationOrDefault(key string, defaultVal time.Duration) (time.Duration, error) {
	s := getStringOrDefault(key, "")
	if s == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration: %w", key, err)
	}
	return d, nil
}
