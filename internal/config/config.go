package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	CORS        CORSConfig
	CRM         CRMConfig
	Translation TranslationConfig
	Sync        SyncConfig
	RateLimit   RateLimitConfig
	Admin       AdminConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	PoolMin      int
	PoolMax      int
	QueryTimeout time.Duration
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// CRMConfig holds the listing CRM API settings.
type CRMConfig struct {
	BaseURL  string
	APIKey   string
	AgencyID string
	Timeout  time.Duration

	// PhotoBaseURL prefixes the CRM photo paths <agency>/<id>/<letter>-<n>.jpg.
	PhotoBaseURL string
}

// TranslationConfig holds translation provider and pipeline pacing settings.
type TranslationConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	UnitCost       float64
	SourceLanguage string
	Languages      []string
	BatchSize      int
	MaxBatchSize   int
	CallDelay      time.Duration
	BatchDelay     time.Duration
	CallTimeout    time.Duration
	Workers        int
	RequestsPerSec float64
}

// SyncConfig holds CRM sync settings.
type SyncConfig struct {
	BatchSize int
	MaxPages  int
}

// RateLimitConfig holds limits for public write endpoints.
type RateLimitConfig struct {
	LeadLimit  int
	LeadWindow time.Duration
}

// AdminConfig holds admin surface credentials.
type AdminConfig struct {
	Token    string
	Operator string
}

// Load reads configuration from a local .env file (when present) and environment variables.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "catalogsync")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("DB_QUERY_TIMEOUT", "10s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")

	v.SetDefault("CRM_BASE_URL", "https://procesos.inmovilla.com/api/v1")
	v.SetDefault("CRM_TIMEOUT", "30s")
	v.SetDefault("CRM_PHOTO_BASE_URL", "https://fotos15.inmovilla.com")

	v.SetDefault("TRANSLATION_BASE_URL", "https://api.perplexity.ai")
	v.SetDefault("TRANSLATION_MODEL", "sonar")
	v.SetDefault("TRANSLATION_UNIT_COST", 0.0002)
	v.SetDefault("TRANSLATION_SOURCE_LANGUAGE", "es")
	v.SetDefault("TRANSLATION_LANGUAGES", "en,fr,de,it,pl")
	v.SetDefault("TRANSLATION_BATCH_SIZE", 10)
	v.SetDefault("TRANSLATION_MAX_BATCH_SIZE", 50)
	v.SetDefault("TRANSLATION_CALL_DELAY", "500ms")
	v.SetDefault("TRANSLATION_BATCH_DELAY", "1s")
	v.SetDefault("TRANSLATION_CALL_TIMEOUT", "60s")
	v.SetDefault("TRANSLATION_WORKERS", 1)
	v.SetDefault("TRANSLATION_RPS", 2.0)

	v.SetDefault("SYNC_BATCH_SIZE", 20)
	v.SetDefault("SYNC_MAX_PAGES", 500)

	v.SetDefault("RATE_LIMIT_LEAD_LIMIT", 3)
	v.SetDefault("RATE_LIMIT_LEAD_WINDOW", "1h")

	v.SetDefault("ADMIN_OPERATOR", "admin")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			Name:         v.GetString("DB_NAME"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			PoolMin:      v.GetInt("DB_POOL_MIN"),
			PoolMax:      v.GetInt("DB_POOL_MAX"),
			QueryTimeout: v.GetDuration("DB_QUERY_TIMEOUT"),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString("CORS_ORIGINS")),
		},
		CRM: CRMConfig{
			BaseURL:  v.GetString("CRM_BASE_URL"),
			APIKey:   v.GetString("CRM_API_KEY"),
			AgencyID: v.GetString("CRM_AGENCY_ID"),
			Timeout:  v.GetDuration("CRM_TIMEOUT"),

			PhotoBaseURL: v.GetString("CRM_PHOTO_BASE_URL"),
		},
		Translation: TranslationConfig{
			APIKey:         v.GetString("TRANSLATION_API_KEY"),
			BaseURL:        v.GetString("TRANSLATION_BASE_URL"),
			Model:          v.GetString("TRANSLATION_MODEL"),
			UnitCost:       v.GetFloat64("TRANSLATION_UNIT_COST"),
			SourceLanguage: v.GetString("TRANSLATION_SOURCE_LANGUAGE"),
			Languages:      splitList(v.GetString("TRANSLATION_LANGUAGES")),
			BatchSize:      v.GetInt("TRANSLATION_BATCH_SIZE"),
			MaxBatchSize:   v.GetInt("TRANSLATION_MAX_BATCH_SIZE"),
			CallDelay:      v.GetDuration("TRANSLATION_CALL_DELAY"),
			BatchDelay:     v.GetDuration("TRANSLATION_BATCH_DELAY"),
			CallTimeout:    v.GetDuration("TRANSLATION_CALL_TIMEOUT"),
			Workers:        v.GetInt("TRANSLATION_WORKERS"),
			RequestsPerSec: v.GetFloat64("TRANSLATION_RPS"),
		},
		Sync: SyncConfig{
			BatchSize: v.GetInt("SYNC_BATCH_SIZE"),
			MaxPages:  v.GetInt("SYNC_MAX_PAGES"),
		},
		RateLimit: RateLimitConfig{
			LeadLimit:  v.GetInt("RATE_LIMIT_LEAD_LIMIT"),
			LeadWindow: v.GetDuration("RATE_LIMIT_LEAD_WINDOW"),
		},
		Admin: AdminConfig{
			Token:    v.GetString("ADMIN_TOKEN"),
			Operator: v.GetString("ADMIN_OPERATOR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
// Provider and CRM credentials are optional here; the services report
// themselves as not configured when they are missing.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if c.Translation.SourceLanguage == "" {
		return fmt.Errorf("TRANSLATION_SOURCE_LANGUAGE is required")
	}
	if len(c.Translation.Languages) == 0 {
		return fmt.Errorf("TRANSLATION_LANGUAGES is required")
	}
	for _, lang := range c.Translation.Languages {
		if lang == c.Translation.SourceLanguage {
			return fmt.Errorf("TRANSLATION_LANGUAGES must not contain the source language %q", lang)
		}
	}
	if c.Translation.MaxBatchSize < 1 {
		return fmt.Errorf("TRANSLATION_MAX_BATCH_SIZE must be at least 1")
	}
	if c.Translation.BatchSize < 1 || c.Translation.BatchSize > c.Translation.MaxBatchSize {
		return fmt.Errorf("TRANSLATION_BATCH_SIZE must be between 1 and %d", c.Translation.MaxBatchSize)
	}
	if c.Translation.CallDelay < 0 || c.Translation.BatchDelay < 0 {
		return fmt.Errorf("translation delays must be non-negative")
	}
	if c.Translation.Workers < 1 {
		return fmt.Errorf("TRANSLATION_WORKERS must be at least 1")
	}

	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be at least 1")
	}

	if c.RateLimit.LeadLimit < 1 {
		return fmt.Errorf("RATE_LIMIT_LEAD_LIMIT must be at least 1")
	}
	if c.RateLimit.LeadWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_LEAD_WINDOW must be positive")
	}

	if c.Server.Env == "production" && c.Admin.Token == "" {
		return fmt.Errorf("ADMIN_TOKEN is required in production")
	}

	return nil
}

// splitList splits a comma-separated string into a slice of trimmed, non-empty values.
func splitList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
