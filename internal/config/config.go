package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"duvidapp/internal/errors"
)

// Token store drivers
const (
	TokenStoreMemory   = "memory"
	TokenStoreSQLite   = "sqlite"
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// Config represents the complete application configuration
type Config struct {
	API        APIConfig
	Server     ServerConfig
	Session    SessionConfig
	TokenStore TokenStoreConfig
	UI         UIConfig
}

// APIConfig holds settings for the remote REST backend
type APIConfig struct {
	BaseURL                string
	RequestTimeout         time.Duration
	AnswerFetchConcurrency int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	MetricsEnabled bool
}

// SessionConfig controls per-browser workspaces
type SessionConfig struct {
	IdleTimeout time.Duration
	CookieName  string
}

// TokenStoreConfig selects where bearer tokens are persisted
type TokenStoreConfig struct {
	Driver        string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// UIConfig holds notification behaviour
type UIConfig struct {
	ToastTTL time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		API:        *loadAPIConfig(),
		Server:     *loadServerConfig(),
		Session:    *loadSessionConfig(),
		TokenStore: *loadTokenStoreConfig(),
		UI:         *loadUIConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:                strings.TrimRight(getEnvOrDefault("DUVIDAPP_API_URL", "https://duvidapp.onrender.com"), "/"),
		RequestTimeout:         getEnvDurationOrDefault("REQUEST_TIMEOUT", 15*time.Second),
		AnswerFetchConcurrency: getEnvIntOrDefault("ANSWER_FETCH_CONCURRENCY", 8),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

func loadSessionConfig() *SessionConfig {
	return &SessionConfig{
		IdleTimeout: getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		CookieName:  getEnvOrDefault("SESSION_COOKIE", "duvidapp_sid"),
	}
}

func loadTokenStoreConfig() *TokenStoreConfig {
	driver := strings.ToLower(getEnvOrDefault("TOKEN_STORE", TokenStoreMemory))

	dsn := os.Getenv("TOKEN_STORE_DSN")
	if dsn == "" && driver == TokenStoreSQLite {
		dsn = "./duvidapp.db" // default
	}

	return &TokenStoreConfig{
		Driver:        driver,
		DSN:           dsn,
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
	}
}

func loadUIConfig() *UIConfig {
	return &UIConfig{
		ToastTTL: getEnvDurationOrDefault("TOAST_TTL", 5*time.Second),
	}
}

func validateConfig(config *Config) error {
	if config.API.BaseURL == "" {
		return errors.ConfigInvalid("DUVIDAPP_API_URL is required")
	}
	if !strings.HasPrefix(config.API.BaseURL, "http://") && !strings.HasPrefix(config.API.BaseURL, "https://") {
		return errors.ConfigInvalid("DUVIDAPP_API_URL must be an http(s) URL")
	}
	if config.API.RequestTimeout <= 0 {
		return errors.ConfigInvalid("REQUEST_TIMEOUT must be positive")
	}
	if config.API.AnswerFetchConcurrency < 1 {
		return errors.ConfigInvalid("ANSWER_FETCH_CONCURRENCY must be at least 1")
	}
	if config.UI.ToastTTL <= 0 {
		return errors.ConfigInvalid("TOAST_TTL must be positive")
	}

	switch config.TokenStore.Driver {
	case TokenStoreMemory, TokenStoreSQLite, TokenStoreRedis:
	case TokenStorePostgres:
		if config.TokenStore.DSN == "" {
			return errors.ConfigInvalid("TOKEN_STORE_DSN is required for the postgres token store")
		}
	default:
		return errors.ConfigInvalid("unknown TOKEN_STORE driver: " + config.TokenStore.Driver)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
