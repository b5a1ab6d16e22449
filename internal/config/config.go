// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the recommendation service.
type Config struct {
	Port                   string
	DatabaseURL            string
	RedisURL               string
	DigestHour             int // local hour (0-23) at which the daily digest cron fires
	SimilarityRefreshHours int // how often the similarity sweep recomputes stale edges
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	digestHour := 8
	if s := os.Getenv("DIGEST_HOUR"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 23 {
			return nil, fmt.Errorf("DIGEST_HOUR must be an hour between 0 and 23, got %q", s)
		}
		digestHour = v
	}

	refresh := 24
	if s := os.Getenv("SIMILARITY_REFRESH_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SIMILARITY_REFRESH_HOURS must be a positive integer, got %q", s)
		}
		refresh = v
	}

	port := os.Getenv("RECS_PORT")
	if port == "" {
		port = "8083"
	}

	return &Config{
		Port:                   port,
		DatabaseURL:            dbURL,
		RedisURL:               redisURL,
		DigestHour:             digestHour,
		SimilarityRefreshHours: refresh,
	}, nil
}
