package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// FeaturesRepository reads and writes property_features.
type FeaturesRepository interface {
	// ListAll returns every features row keyed by listing id.
	ListAll(ctx context.Context) (map[int64]*models.PropertyFeatures, error)

	// FindByID returns nil, nil when the listing has no features row.
	FindByID(ctx context.Context, id int64) (*models.PropertyFeatures, error)

	// Upsert writes an operator-curated features row. Nil fields keep their stored value.
	Upsert(ctx context.Context, features models.PropertyFeatures) error
}

type featuresRepository struct {
	db *database.Database
}

// NewFeaturesRepository creates a new instance of FeaturesRepository.
func NewFeaturesRepository(db *database.Database) FeaturesRepository {
	return &featuresRepository{db: db}
}

const selectFeaturesColumns = `
	SELECT cod_ofer, superficie, habitaciones, habitaciones_simples,
		habitaciones_dobles, banos, precio, updated_at
	FROM property_features
`

func (r *featuresRepository) ListAll(ctx context.Context) (map[int64]*models.PropertyFeatures, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, selectFeaturesColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	results := make(map[int64]*models.PropertyFeatures)
	for rows.Next() {
		f, err := scanFeatures(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan features row: %w", err)
		}
		results[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating features rows: %w", err)
	}
	return results, nil
}

func (r *featuresRepository) FindByID(ctx context.Context, id int64) (*models.PropertyFeatures, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	f, err := scanFeatures(r.db.Pool.QueryRow(ctx, selectFeaturesColumns+` WHERE cod_ofer = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query features for listing %d: %w", id, err)
	}
	return f, nil
}

func (r *featuresRepository) Upsert(ctx context.Context, f models.PropertyFeatures) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO property_features
			(cod_ofer, superficie, habitaciones, habitaciones_simples, habitaciones_dobles, banos, precio)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cod_ofer) DO UPDATE SET
			superficie = coalesce(EXCLUDED.superficie, property_features.superficie),
			habitaciones = coalesce(EXCLUDED.habitaciones, property_features.habitaciones),
			habitaciones_simples = coalesce(EXCLUDED.habitaciones_simples, property_features.habitaciones_simples),
			habitaciones_dobles = coalesce(EXCLUDED.habitaciones_dobles, property_features.habitaciones_dobles),
			banos = coalesce(EXCLUDED.banos, property_features.banos),
			precio = coalesce(EXCLUDED.precio, property_features.precio),
			updated_at = now()
	`, f.ID, f.Area, f.Rooms, f.SingleRooms, f.DoubleRooms, f.Baths, f.Price)
	if err != nil {
		return fmt.Errorf("failed to upsert features for listing %d: %w", f.ID, err)
	}
	return nil
}

func scanFeatures(row pgx.Row) (*models.PropertyFeatures, error) {
	var f models.PropertyFeatures
	if err := row.Scan(
		&f.ID,
		&f.Area,
		&f.Rooms,
		&f.SingleRooms,
		&f.DoubleRooms,
		&f.Baths,
		&f.Price,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
