package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// TranslationLogRepository appends to and reads the translation audit trail.
type TranslationLogRepository interface {
	// Insert appends entry, assigning ID and CreatedAt when unset.
	Insert(ctx context.Context, entry *models.TranslationLogEntry) error

	// ListRecent returns the newest entries first.
	ListRecent(ctx context.Context, limit int) ([]models.TranslationLogEntry, error)
}

type translationLogRepository struct {
	db *database.Database
}

// NewTranslationLogRepository creates a new instance of TranslationLogRepository.
func NewTranslationLogRepository(db *database.Database) TranslationLogRepository {
	return &translationLogRepository{db: db}
}

func (r *translationLogRepository) Insert(ctx context.Context, entry *models.TranslationLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.TargetLanguages == nil {
		entry.TargetLanguages = []string{}
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO translation_log
			(id, property_id, status, source_language, target_languages,
			 tokens_used, cost_estimate, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID,
		entry.ListingID,
		entry.Status,
		entry.SourceLanguage,
		entry.TargetLanguages,
		entry.TokensUsed,
		entry.CostEstimate,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert translation log for listing %d: %w", entry.ListingID, err)
	}
	return nil
}

func (r *translationLogRepository) ListRecent(ctx context.Context, limit int) ([]models.TranslationLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, property_id, status, source_language, target_languages,
			tokens_used, cost_estimate, error_message, created_at
		FROM translation_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query translation log: %w", err)
	}
	defer rows.Close()

	results := []models.TranslationLogEntry{}
	for rows.Next() {
		var e models.TranslationLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.ListingID,
			&e.Status,
			&e.SourceLanguage,
			&e.TargetLanguages,
			&e.TokensUsed,
			&e.CostEstimate,
			&e.ErrorMessage,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan translation log row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating translation log rows: %w", err)
	}
	return results, nil
}
