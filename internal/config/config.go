package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv        string
	Port          string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string
	RedisURL      string
	PredictionURL string

	// Connection limits for the WebSocket endpoint.
	MaxConnections      int64
	MaxConnectionsPerIP int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		PredictionURL: getEnv("PREDICTION_URL", "http://localhost:9090"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	maxConns, err := getEnvInt("MAX_CONNECTIONS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnections = int64(maxConns)

	maxPerIP, err := getEnvInt("MAX_CONNECTIONS_PER_IP", 20)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnectionsPerIP = maxPerIP

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
