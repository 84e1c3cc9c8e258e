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

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	AutoMigrate       bool
	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	// Redis backs the availability rule cache and booking event pub/sub.
	// Both degrade to no-op implementations when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RuleCacheTTL  time.Duration
	EventsChannel string

	VideoProviderURL     string
	VideoProviderAPIKey  string
	VideoProviderTimeout time.Duration
	VideoRetrySchedule   string

	LogLevel     string
	LogFormat    string
	LogFile      string
	LogMaxSizeMB int
}

// Load loads configuration from .env (optional), an optional YAML file named by
// CONFIG_FILE, and environment variables. Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	return load(src)
}

func load(src source) (*Config, error) {
	var err error
	cfg := &Config{}

	cfg.ProdOrigins = src.get("PROD_ORIGINS", "")
	cfg.IsProduction = src.get("APP_ENV", "dev") == PROD_STRING
	cfg.HTTPAddr = src.get("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = src.get("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	if cfg.AutoMigrate, err = src.getBool("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	// JWT secret is required for validating identity tokens
	cfg.JWTSecret = src.get("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTAccessTokenTTL, err = src.getDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	cfg.RedisAddr = src.get("REDIS_ADDR", "")
	cfg.RedisPassword = src.get("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = src.getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RuleCacheTTL, err = src.getDuration("RULE_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	cfg.EventsChannel = src.get("EVENTS_CHANNEL", "scheduler.booking.events")

	cfg.VideoProviderURL = src.get("VIDEO_PROVIDER_URL", "")
	cfg.VideoProviderAPIKey = src.get("VIDEO_PROVIDER_API_KEY", "")
	if cfg.VideoProviderTimeout, err = src.getDuration("VIDEO_PROVIDER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.VideoProviderTimeout <= 0 {
		return nil, fmt.Errorf("VIDEO_PROVIDER_TIMEOUT must be positive")
	}
	cfg.VideoRetrySchedule = src.get("VIDEO_RETRY_SCHEDULE", "@every 1m")

	cfg.LogLevel = src.get("LOG_LEVEL", "info")
	cfg.LogFormat = src.get("LOG_FORMAT", "json")
	cfg.LogFile = src.get("LOG_FILE", "")
	if cfg.LogMaxSizeMB, err = src.getInt("LOG_MAX_SIZE_MB", 100); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readFile reads a flat YAML mapping of KEY: value pairs.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return values, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

// get returns the value of the key if set, otherwise the provided default value.
func (s source) get(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	if v, ok := s.file[key]; ok {
		return v
	}
	return defaultValue
}

// getInt retrieves a value as an integer.
// It returns an error if the value is set but is not a valid integer.
func (s source) getInt(key string, defaultValue int) (int, error) {
	valStr := s.get(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

// getDuration parses values such as "15m" or "5s".
func (s source) getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := s.get(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

func (s source) getBool(key string, defaultValue bool) (bool, error) {
	valStr := s.get(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}
