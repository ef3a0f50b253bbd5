package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// DismissalRepository stores operator acknowledgements of discrepancies.
type DismissalRepository interface {
	// Upsert records the dismissal. Re-dismissing the same tuple only refreshes who and when.
	Upsert(ctx context.Context, record models.DismissalRecord) error

	// ListAll returns every dismissal.
	ListAll(ctx context.Context) ([]models.DismissalRecord, error)
}

type dismissalRepository struct {
	db *database.Database
}

// NewDismissalRepository creates a new instance of DismissalRepository.
func NewDismissalRepository(db *database.Database) DismissalRepository {
	return &dismissalRepository{db: db}
}

func (r *dismissalRepository) Upsert(ctx context.Context, rec models.DismissalRecord) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO discrepancias_dismissed (ref, campo, valor_encargo, valor_web, dismissed_by, dismissed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (ref, campo, valor_encargo, valor_web)
		DO UPDATE SET dismissed_by = EXCLUDED.dismissed_by, dismissed_at = EXCLUDED.dismissed_at
	`, rec.Reference, rec.Field, rec.LedgerValue, rec.PublishedValue, rec.DismissedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert dismissal for %s/%s: %w", rec.Reference, rec.Field, err)
	}
	return nil
}

func (r *dismissalRepository) ListAll(ctx context.Context) ([]models.DismissalRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, ref, campo, valor_encargo, valor_web, dismissed_by, dismissed_at
		FROM discrepancias_dismissed
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dismissals: %w", err)
	}
	defer rows.Close()

	results := []models.DismissalRecord{}
	for rows.Next() {
		var rec models.DismissalRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Reference,
			&rec.Field,
			&rec.LedgerValue,
			&rec.PublishedValue,
			&rec.DismissedBy,
			&rec.DismissedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dismissal row: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dismissal rows: %w", err)
	}
	return results, nil
}
