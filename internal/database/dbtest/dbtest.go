// Package dbtest opens a migrated PostgreSQL database for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stwalsh4118/catalogsync/internal/config"
	"github.com/stwalsh4118/catalogsync/internal/database"
)

// Config returns the database configuration used by integration tests.
func Config() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:         getEnvOrDefault("DB_HOST", "localhost"),
		Port:         getEnvOrDefault("DB_PORT", "5432"),
		Name:         getEnvOrDefault("DB_NAME", "catalogsync_test"),
		User:         getEnvOrDefault("DB_USER", "postgres"),
		Password:     getEnvOrDefault("DB_PASSWORD", "postgres"),
		PoolMin:      1,
		PoolMax:      5,
		QueryTimeout: 5 * time.Second,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Open connects to the test database, applies migrations and truncates the
// catalog tables. The test is skipped in -short mode or when no database answers.
func Open(t *testing.T) *database.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.NewPostgresPool(ctx, Config())
	if err != nil {
		t.Skipf("Skipping integration test, database unavailable: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = db.Pool.Exec(ctx, `TRUNCATE property_features, property_metadata, encargos,
		discrepancias_dismissed, translation_log, rate_limits, leads RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate test tables: %v", err)
	}

	return db
}
