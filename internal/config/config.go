package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	SyncSchedule   string // cron expression with seconds field
	ReportSchedule string
	TimeZone       string
	DefaultUserID  string

	// Database configuration
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string

	// Provider configuration
	GraphFacebookURL   string
	GraphInstagramURL  string
	InstagramToken     string // user-level default, overridden by persisted settings
	InstagramPageToken string // page-level default, overridden by persisted settings
	HTTPTimeout        time.Duration

	// Sync tuning
	SyncMediaLimit  int
	SyncConcurrency int
	SyncTimeout     time.Duration
	LookbackDays    int

	// Report writer
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxAttempts int

	// Report archive configuration
	ArchiveBackend   string // "none", "azure", "minio" or "local"
	StorageAccount   string
	StorageContainer string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	ArchiveDir       string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Optional infrastructure
	KafkaBrokers []string
	KafkaTopic   string
	RedisURL     string
	RunLockTTL   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		SyncSchedule:   getEnv("SYNC_SCHEDULE", "0 0 */6 * * *"),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "0 0 9 * * MON"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),
		DefaultUserID:  getEnv("DEFAULT_USER_ID", ""),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "viralbot.db"),

		GraphFacebookURL:   getEnv("GRAPH_FACEBOOK_URL", "https://graph.facebook.com/v22.0"),
		GraphInstagramURL:  getEnv("GRAPH_INSTAGRAM_URL", "https://graph.instagram.com/v22.0"),
		InstagramToken:     getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
		InstagramPageToken: getEnv("INSTAGRAM_PAGE_ACCESS_TOKEN", ""),
		HTTPTimeout:        getDurationEnv("HTTP_TIMEOUT", 30*time.Second),

		SyncMediaLimit:  getIntEnv("SYNC_MEDIA_LIMIT", 100),
		SyncConcurrency: getIntEnv("SYNC_CONCURRENCY", 4),
		SyncTimeout:     getDurationEnv("SYNC_TIMEOUT", 10*time.Minute),
		LookbackDays:    getIntEnv("LOOKBACK_DAYS", 30),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIMaxAttempts: getIntEnv("OPENAI_MAX_ATTEMPTS", 2),

		ArchiveBackend:   getEnv("ARCHIVE_BACKEND", "none"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),
		MinioEndpoint:    getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:      getEnv("MINIO_BUCKET", "reports"),
		MinioUseSSL:      getBoolEnv("MINIO_USE_SSL", true),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "archive"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		KafkaBrokers: getSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "viralbot.events"),
		RedisURL:     getEnv("REDIS_URL", ""),
		RunLockTTL:   getDurationEnv("RUN_LOCK_TTL", 15*time.Minute),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DATABASE_DRIVER must be 'postgres' or 'sqlite'")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.SyncMediaLimit <= 0 {
		return fmt.Errorf("SYNC_MEDIA_LIMIT must be positive")
	}

	if c.SyncConcurrency <= 0 {
		return fmt.Errorf("SYNC_CONCURRENCY must be positive")
	}

	if c.LookbackDays <= 0 {
		return fmt.Errorf("LOOKBACK_DAYS must be positive")
	}

	switch c.ArchiveBackend {
	case "none", "local":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when ARCHIVE_BACKEND is 'azure'")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when ARCHIVE_BACKEND is 'minio'")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND must be one of none, azure, minio, local")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
