package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the engine.
type Config struct {
	DatabaseURL string
	ServerPort  int

	RosterServiceURL      string
	RatingServiceURL      string
	LeaderboardServiceURL string
	TournamentServiceURL  string

	ExternalCallTimeout time.Duration
	OutboxInterval      time.Duration
}

// Load reads configuration from environment variables. A .env file is loaded
// first when present, so local development does not need exported variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		ServerPort:            port,
		RosterServiceURL:      os.Getenv("ROSTER_SERVICE_URL"),
		RatingServiceURL:      os.Getenv("RATING_SERVICE_URL"),
		LeaderboardServiceURL: os.Getenv("LEADERBOARD_SERVICE_URL"),
		TournamentServiceURL:  os.Getenv("TOURNAMENT_SERVICE_URL"),
	}

	for name, value := range map[string]string{
		"ROSTER_SERVICE_URL":      cfg.RosterServiceURL,
		"RATING_SERVICE_URL":      cfg.RatingServiceURL,
		"LEADERBOARD_SERVICE_URL": cfg.LeaderboardServiceURL,
		"TOURNAMENT_SERVICE_URL":  cfg.TournamentServiceURL,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable is not set", name)
		}
	}

	cfg.ExternalCallTimeout, err = durationEnv("EXTERNAL_CALL_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.OutboxInterval, err = durationEnv("OUTBOX_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return value, nil
}
