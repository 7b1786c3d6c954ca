/*
Package config loads the server configuration.

SOURCES (later wins):
  1. Built-in defaults
  2. YAML config file (optional, --config flag)
  3. .env file in the working directory (optional)
  4. Environment variables

The JWT secret has an insecure default so a fresh checkout runs out of
the box; a warning is logged until it is replaced.
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureDefaultSecret = "insecure-development-secret-change-me-please-32b"

// Config holds everything the server needs.
type Config struct {
	Port         string        `yaml:"port"`
	DatabasePath string        `yaml:"database_path"`
	LogLevel     string        `yaml:"log_level"`
	JWTSecret    string        `yaml:"jwt_secret"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	RateBurst    int           `yaml:"rate_burst"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CORSOrigins  []string      `yaml:"cors_origins"`

	// ReplayInterval drives the background replay scheduler; zero
	// disables it (use the replay CLI command from cron instead).
	ReplayInterval time.Duration `yaml:"replay_interval"`
}

func defaults() Config {
	return Config{
		Port:         "8080",
		DatabasePath: "./pocketledger.db",
		LogLevel:     "info",
		JWTSecret:    insecureDefaultSecret,
		RateLimitRPS: 10,
		RateBurst:    30,
		CacheTTL:     15 * time.Minute,
		CORSOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},

		ReplayInterval: time.Hour,
	}
}

// Load builds the configuration from file, .env, and environment.
// yamlPath may be empty.
func Load(yamlPath string) (Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", yamlPath, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RateLimitRPS = getEnvAsFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateBurst = getEnvAsInt("RATE_BURST", cfg.RateBurst)
	cfg.CacheTTL = getEnvAsDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.ReplayInterval = getEnvAsDuration("REPLAY_INTERVAL", cfg.ReplayInterval)

	if cfg.JWTSecret == insecureDefaultSecret {
		slog.Warn("using default insecure JWT secret; set JWT_SECRET for production")
	}
	if len(cfg.JWTSecret) < 32 {
		return cfg, fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(cfg.JWTSecret))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float in environment, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}
