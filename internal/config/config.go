package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port                   string
	DBPath                 string
	DatabaseBackend        string // "sqlite" or "postgres"
	PostgresURL            string // Required when DatabaseBackend is "postgres"
	PostgresMaxConn        int32
	HTTPSEnabled           bool   // Marks session cookies Secure
	SessionSecret          string // HMAC key for session cookies, at least 32 chars
	WebhookSecret          string // HMAC key for payment webhook signatures
	WelcomeCredits         int64  // Credits granted on signup (0 disables the grant)
	ReadingCost            int64  // Credits debited per reading
	PolicyFile             string // Optional YAML file overriding rate limit policies
	RateLimitBackend       string // "memory" or "redis"
	RedisURL               string // Required when RateLimitBackend is "redis"
	CleanupIntervalMinutes int

	// Outbound audit event delivery (disabled when URL is empty)
	AuditWebhookURL    string
	AuditWebhookSecret string

	// Periodic ledger snapshots (sqlite backend only)
	BackupEnabled       bool
	BackupDir           string
	BackupIntervalHours int
	BackupRetentionDays int // 0 keeps snapshots forever

	// Off-host snapshot storage (optional, requires BackupEnabled)
	BackupS3Bucket          string
	BackupS3Region          string
	BackupS3Endpoint        string
	BackupS3AccessKeyID     string
	BackupS3SecretAccessKey string
	BackupS3PathStyle       bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DBPath:                 getEnv("DB_PATH", "./arcana.db"),
		DatabaseBackend:        getEnv("DATABASE_BACKEND", "sqlite"),
		PostgresURL:            getEnv("POSTGRES_URL", ""),
		PostgresMaxConn:        int32(getEnvInt("POSTGRES_MAX_CONNS", 25)),
		HTTPSEnabled:           getEnvBool("HTTPS_ENABLED", false),
		SessionSecret:          getEnv("SESSION_SECRET", ""),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		WelcomeCredits:         getEnvInt64("WELCOME_CREDITS", 3),
		ReadingCost:            getEnvInt64("READING_COST", 1),
		PolicyFile:             getEnv("RATE_LIMIT_POLICY_FILE", ""),
		RateLimitBackend:       getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisURL:               getEnv("REDIS_URL", ""),
		CleanupIntervalMinutes: getEnvInt("CLEANUP_INTERVAL_MINUTES", 60),

		AuditWebhookURL:    getEnv("AUDIT_WEBHOOK_URL", ""),
		AuditWebhookSecret: getEnv("AUDIT_WEBHOOK_SECRET", ""),

		BackupEnabled:       getEnvBool("BACKUP_ENABLED", false),
		BackupDir:           getEnv("BACKUP_DIR", "./backups"),
		BackupIntervalHours: getEnvInt("BACKUP_INTERVAL_HOURS", 24),
		BackupRetentionDays: getEnvInt("BACKUP_RETENTION_DAYS", 14),

		BackupS3Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Region:          getEnv("BACKUP_S3_REGION", ""),
		BackupS3Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupS3AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		BackupS3SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		BackupS3PathStyle:       getEnvBool("BACKUP_S3_PATH_STYLE", false),
	}

	// The webhook secret may be operated separately from the session secret
	// but does not have to be.
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.SessionSecret
	}
	if cfg.AuditWebhookSecret == "" {
		cfg.AuditWebhookSecret = cfg.WebhookSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate ensures configuration values are sensible
func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.DatabaseBackend {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when DATABASE_BACKEND is postgres")
		}
	default:
		return fmt.Errorf("DATABASE_BACKEND must be sqlite or postgres, got %q", c.DatabaseBackend)
	}

	if c.PostgresMaxConn <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNS must be positive, got %d", c.PostgresMaxConn)
	}

	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(c.SessionSecret))
	}

	if c.WelcomeCredits < 0 {
		return fmt.Errorf("WELCOME_CREDITS must be 0 (disabled) or positive, got %d", c.WelcomeCredits)
	}

	if c.ReadingCost <= 0 {
		return fmt.Errorf("READING_COST must be positive, got %d", c.ReadingCost)
	}

	switch c.RateLimitBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND is redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimitBackend)
	}

	if c.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL_MINUTES must be positive, got %d", c.CleanupIntervalMinutes)
	}

	if c.AuditWebhookURL != "" {
		if !strings.HasPrefix(c.AuditWebhookURL, "http://") && !strings.HasPrefix(c.AuditWebhookURL, "https://") {
			return fmt.Errorf("AUDIT_WEBHOOK_URL must be an http or https URL, got %q", c.AuditWebhookURL)
		}
	}

	if c.BackupEnabled {
		if c.DatabaseBackend != "sqlite" {
			return fmt.Errorf("BACKUP_ENABLED requires the sqlite backend, got %q", c.DatabaseBackend)
		}
		if c.BackupDir == "" {
			return fmt.Errorf("BACKUP_DIR cannot be empty when backups are enabled")
		}
		if c.BackupIntervalHours <= 0 {
			return fmt.Errorf("BACKUP_INTERVAL_HOURS must be positive, got %d", c.BackupIntervalHours)
		}
		if c.BackupRetentionDays < 0 {
			return fmt.Errorf("BACKUP_RETENTION_DAYS must be 0 (unlimited) or positive, got %d", c.BackupRetentionDays)
		}
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
