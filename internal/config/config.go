// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven knob the registry reads at startup.
// Field names mirror the env vars documented in spec.md section 6.
type Config struct {
	Port int

	PostgresURL string
	QdrantURL   string

	APIKey string

	RateLimitMax      int
	RateLimitWindowMS int

	SearchWeightSim   float64
	SearchWeightRep   float64
	SearchWeightAvail float64
	LexicalStandInScore float64

	HeartbeatTTLMS  int
	MinRepDiscover  float64

	CORSOrigin string
	LogLevel   string

	EmbedModel string
}

// Load reads configuration from the process environment, loading a local
// .env file first when present (ignored if missing).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvInt("PORT", 3001),

		PostgresURL: os.Getenv("POSTGRES_URL"),
		QdrantURL:   os.Getenv("QDRANT_URL"),

		APIKey: os.Getenv("REGISTRY_API_KEY"),

		RateLimitMax:      getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindowMS: getEnvInt("RATE_LIMIT_WINDOW_MS", 60000),

		SearchWeightSim:     getEnvFloat("SEARCH_WEIGHT_SIM", 0.7),
		SearchWeightRep:     getEnvFloat("SEARCH_WEIGHT_REP", 0.25),
		SearchWeightAvail:   getEnvFloat("SEARCH_WEIGHT_AVAIL", 0.2),
		LexicalStandInScore: getEnvFloat("LEXICAL_STANDIN_SCORE", 0.45),

		HeartbeatTTLMS: getEnvInt("HEARTBEAT_TTL_MS", 60000),
		MinRepDiscover: getEnvFloat("MIN_REP_DISCOVER", 0),

		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		EmbedModel: os.Getenv("EMBED_MODEL"),
	}

	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}
	if cfg.QdrantURL == "" {
		return nil, fmt.Errorf("QDRANT_URL is required")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
