package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModelName          = "gemini-1.5-flash-latest"
	DefaultEmbeddingModelName = "text-embedding-004"
	DefaultDatabaseURL        = "file::memory:?cache=shared"
	DefaultFetchTimeout       = 10 * time.Second
)

// ErrMissingAPIKey is returned by Load when no Gemini credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable is required")

type Config struct {
	GeminiAPIKey       string
	ModelName          string
	EmbeddingModelName string
	DatabaseURL        string
	LogLevel           string
	FetchTimeout       time.Duration
}

// Load reads a .env file if one exists and then the process environment.
// The returned bool reports whether a .env file was found.
func Load() (Config, bool, error) {
	dotenvFound := godotenv.Load() == nil

	cfg := Config{
		GeminiAPIKey:       strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		ModelName:          getEnv("GEMINI_MODEL_NAME", DefaultModelName),
		EmbeddingModelName: getEnv("GEMINI_EMBEDDING_MODEL", DefaultEmbeddingModelName),
		DatabaseURL:        getEnv("DATABASE_URL", DefaultDatabaseURL),
		LogLevel:           strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		FetchTimeout:       time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", int(DefaultFetchTimeout/time.Second))) * time.Second,
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, dotenvFound, ErrMissingAPIKey
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if cfg.FetchTimeout <= 0 {
		return Config{}, dotenvFound, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive, got %s", cfg.FetchTimeout)
	}

	return cfg, dotenvFound, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
