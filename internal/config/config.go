package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hfauzan/audiotube/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port       string
	DBPath     string
	ScratchDir string
	LogLevel   string
	LogFormat  string

	// Storage backend. When UploadEndpoint is set the cloud uploader is used,
	// otherwise results land in MediaDir and are served under BaseURL/media.
	UploadEndpoint string
	UploadPreset   string
	UploadFolder   string
	MediaDir       string
	BaseURL        string

	// Optional metadata cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session credentials for the authenticated acquisition strategy.
	SessionCookie string

	StalenessThreshold time.Duration
	MaxJobLifetime     time.Duration
	StrategyAttempts   int
	BackoffBase        time.Duration
	BackoffCap         time.Duration

	RequestsPerSecond int
	BurstSize         int
}

// Load loads configuration from the environment (and a .env file if present)
// with defaults.
func Load() *Config {
	// Missing .env is fine; plain env vars still apply.
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", constants.DefaultPort),
		DBPath:     getEnv("DB_PATH", constants.DefaultDBPath),
		ScratchDir: getEnv("SCRATCH_DIR", os.TempDir()),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),

		UploadEndpoint: getEnv("UPLOAD_ENDPOINT", ""),
		UploadPreset:   getEnv("UPLOAD_PRESET", ""),
		UploadFolder:   getEnv("UPLOAD_FOLDER", constants.DefaultUploadFolder),
		MediaDir:       getEnv("MEDIA_DIR", constants.DefaultMediaDir),
		BaseURL:        getEnv("BASE_URL", constants.DefaultBaseURL),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionCookie: getEnv("YT_SESSION_COOKIE", ""),

		StalenessThreshold: getEnvDuration("STALENESS_THRESHOLD", constants.DefaultStalenessThreshold),
		MaxJobLifetime:     getEnvDuration("MAX_JOB_LIFETIME", constants.DefaultMaxJobLifetime),
		StrategyAttempts:   getEnvInt("STRATEGY_ATTEMPTS", constants.DefaultStrategyAttempts),
		BackoffBase:        getEnvDuration("BACKOFF_BASE", constants.DefaultBackoffBase),
		BackoffCap:         getEnvDuration("BACKOFF_CAP", constants.DefaultBackoffCap),

		RequestsPerSecond: getEnvInt("REQUESTS_PER_SECOND", constants.DefaultRequestsPerSecond),
		BurstSize:         getEnvInt("BURST_SIZE", constants.DefaultBurstSize),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DBPath
	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate ScratchDir
	if c.ScratchDir == "" {
		errors = append(errors, "SCRATCH_DIR cannot be empty")
	}

	// Validate UploadEndpoint / BaseURL
	if c.UploadEndpoint != "" {
		if _, err := url.Parse(c.UploadEndpoint); err != nil {
			errors = append(errors, fmt.Sprintf("UPLOAD_ENDPOINT is not a valid URL: %s", c.UploadEndpoint))
		}
	} else if c.BaseURL == "" {
		errors = append(errors, "BASE_URL cannot be empty when no UPLOAD_ENDPOINT is configured")
	}

	// Validate timing knobs
	if c.StalenessThreshold <= 0 {
		errors = append(errors, "STALENESS_THRESHOLD must be positive")
	}
	if c.MaxJobLifetime <= 0 {
		errors = append(errors, "MAX_JOB_LIFETIME must be positive")
	}
	if c.StrategyAttempts < 1 {
		errors = append(errors, fmt.Sprintf("STRATEGY_ATTEMPTS must be at least 1, got: %d", c.StrategyAttempts))
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
