package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// LedgerRepository reads brokerage mandates. The ledger is owned by another
// workflow, so there are no write methods.
type LedgerRepository interface {
	// ListMandates returns mandates whose contract type is in categories.
	// An empty categories slice returns nothing.
	ListMandates(ctx context.Context, categories []string) ([]models.LedgerEntry, error)
}

type ledgerRepository struct {
	db *database.Database
}

// NewLedgerRepository creates a new instance of LedgerRepository.
func NewLedgerRepository(db *database.Database) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ListMandates(ctx context.Context, categories []string) ([]models.LedgerEntry, error) {
	if len(categories) == 0 {
		return []models.LedgerEntry{}, nil
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, ref, precio, precio_nuevo, tipo_inmueble, habitaciones, banos,
			estado, tipo_contrato, created_at
		FROM encargos
		WHERE tipo_contrato = ANY($1)
		ORDER BY ref, id
	`, categories)
	if err != nil {
		return nil, fmt.Errorf("failed to query mandates: %w", err)
	}
	defer rows.Close()

	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.LedgerEntry])
	if err != nil {
		return nil, fmt.Errorf("failed to scan mandate rows: %w", err)
	}
	return results, nil
}
