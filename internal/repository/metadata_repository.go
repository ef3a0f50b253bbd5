package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// ErrNotFound is returned by write operations that target a listing id that does not exist.
var ErrNotFound = errors.New("record not found")

// descriptionKeyPrefix prefixes language codes inside the descriptions JSONB column.
const descriptionKeyPrefix = "description_"

// SyncWriteResult counts what one sync batch did.
type SyncWriteResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// CandidateFilter selects listings for a translation batch.
type CandidateFilter struct {
	// IDs restricts the selection to explicit listings. Source-text and
	// missing-language checks are left to the caller in that mode.
	IDs            []int64
	SourceLanguage string
	TargetLanguage []string
	AfterID        int64
	Limit          int
	Force          bool
}

// MetadataRepository reads and writes property_metadata.
//
// Writers are split by ownership: sync owns the snapshot, reference,
// availability and source-language slot; translation owns the other
// description languages; operators own admin_overrides and the dedicated
// columns. No method writes outside its own subset.
type MetadataRepository interface {
	// UpsertFromSync writes one batch in a single transaction. Existing rows only
	// change when the snapshot, reference, availability or non-empty source text differ.
	// Features rows are seeded for listings that have none; existing ones are left alone.
	UpsertFromSync(ctx context.Context, rows []models.SyncRow, sourceLanguage string) (SyncWriteResult, error)

	// MarkUnavailableExcept flags every available listing whose id is not in seen.
	MarkUnavailableExcept(ctx context.Context, seen []int64) (int64, error)

	// FindByID returns nil, nil when the listing does not exist.
	FindByID(ctx context.Context, id int64) (*models.PropertyMetadata, error)

	// ListAll returns every listing ordered by id.
	ListAll(ctx context.Context) ([]models.PropertyMetadata, error)

	// ListTranslationCandidates returns available listings matching filter, ordered by id.
	ListTranslationCandidates(ctx context.Context, filter CandidateFilter) ([]models.PropertyMetadata, error)

	// ListMissingSourceText returns up to limit available listings whose source
	// language slot is empty, ordered by id.
	ListMissingSourceText(ctx context.Context, sourceLanguage string, limit int) ([]models.PropertyMetadata, error)

	// MergeDescriptions unions bag into the stored descriptions. Keys already
	// holding non-empty text are kept unless force is set. Nothing is ever deleted.
	MergeDescriptions(ctx context.Context, id int64, bag models.DescriptionBag, force bool) error

	// SetPriceOverride pins the price: dedicated column, admin_overrides and the
	// features mirror are written in one transaction.
	SetPriceOverride(ctx context.Context, id int64, price float64) error
}

type metadataRepository struct {
	db *database.Database
}

// NewMetadataRepository creates a new instance of MetadataRepository.
func NewMetadataRepository(db *database.Database) MetadataRepository {
	return &metadataRepository{db: db}
}

const upsertFromSyncQuery = `
	INSERT INTO property_metadata (cod_ofer, ref, full_data, nodisponible, descriptions, created_at, updated_at)
	VALUES (
		$1, $2, $3, $4,
		CASE WHEN $5::text = '' THEN '{}'::jsonb ELSE jsonb_build_object($6::text, $5::text) END,
		$7, $7
	)
	ON CONFLICT (cod_ofer) DO UPDATE SET
		ref = EXCLUDED.ref,
		full_data = EXCLUDED.full_data,
		nodisponible = EXCLUDED.nodisponible,
		descriptions = CASE
			WHEN $5::text = '' THEN property_metadata.descriptions
			ELSE property_metadata.descriptions || jsonb_build_object($6::text, $5::text)
		END,
		updated_at = EXCLUDED.updated_at
	WHERE property_metadata.ref IS DISTINCT FROM EXCLUDED.ref
		OR property_metadata.full_data IS DISTINCT FROM EXCLUDED.full_data
		OR property_metadata.nodisponible IS DISTINCT FROM EXCLUDED.nodisponible
		OR ($5::text <> '' AND property_metadata.descriptions->>$6::text IS DISTINCT FROM $5::text)
	RETURNING (xmax = 0) AS inserted
`

const seedFeaturesQuery = `
	INSERT INTO property_features (cod_ofer, superficie, habitaciones, habitaciones_simples, habitaciones_dobles, banos, precio)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (cod_ofer) DO NOTHING
`

// UpsertFromSync queues every row into one pgx batch inside a transaction, so
// a failing row rolls the whole batch back and the caller can retry row by row.
func (r *metadataRepository) UpsertFromSync(ctx context.Context, rows []models.SyncRow, sourceLanguage string) (SyncWriteResult, error) {
	var result SyncWriteResult
	if len(rows) == 0 {
		return result, nil
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sourceKey := descriptionKeyPrefix + sourceLanguage
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(upsertFromSyncQuery,
			row.ID,
			strings.TrimSpace(row.Reference),
			row.Snapshot,
			row.Unavailable,
			strings.TrimSpace(row.SourceText),
			sourceKey,
			row.SyncedAt,
		)
	}
	for _, row := range rows {
		f := featuresFromSnapshot(row.Snapshot)
		b.Queue(seedFeaturesQuery, row.ID, f.Area, f.Rooms, f.SingleRooms, f.DoubleRooms, f.Baths, f.Price)
	}

	br := tx.SendBatch(ctx, b)
	for _, row := range rows {
		var inserted bool
		err := br.QueryRow().Scan(&inserted)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			result.Unchanged++
		case err != nil:
			_ = br.Close()
			return SyncWriteResult{}, fmt.Errorf("failed to upsert listing %d: %w", row.ID, err)
		case inserted:
			result.Inserted++
		default:
			result.Updated++
		}
	}
	for _, row := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return SyncWriteResult{}, fmt.Errorf("failed to seed features for listing %d: %w", row.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return SyncWriteResult{}, fmt.Errorf("failed to close sync batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return SyncWriteResult{}, fmt.Errorf("failed to commit sync batch: %w", err)
	}
	return result, nil
}

// featuresFromSnapshot derives the initial features row. Zero values become NULL.
func featuresFromSnapshot(s models.ListingSnapshot) models.PropertyFeatures {
	var f models.PropertyFeatures
	if area := float64(s.BuiltArea); area > 0 {
		f.Area = &area
	} else if usable := float64(s.UsableArea); usable > 0 {
		f.Area = &usable
	}
	if single := int(s.SingleRooms); single > 0 {
		f.SingleRooms = &single
	}
	if double := int(s.DoubleRooms); double > 0 {
		f.DoubleRooms = &double
	}
	if total := int(s.SingleRooms) + int(s.DoubleRooms); total > 0 {
		f.Rooms = &total
	}
	if baths := int(s.Baths); baths > 0 {
		f.Baths = &baths
	}
	if price := float64(s.SalePrice); price > 0 {
		f.Price = &price
	} else if list := float64(s.ListPrice); list > 0 {
		f.Price = &list
	}
	return f
}

// MarkUnavailableExcept flags listings the CRM no longer returns.
func (r *metadataRepository) MarkUnavailableExcept(ctx context.Context, seen []int64) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE property_metadata
		SET nodisponible = TRUE, updated_at = now()
		WHERE nodisponible = FALSE AND NOT (cod_ofer = ANY($1))
	`, seen)
	if err != nil {
		return 0, fmt.Errorf("failed to mark unseen listings unavailable: %w", err)
	}
	return tag.RowsAffected(), nil
}

const selectMetadataColumns = `
	SELECT cod_ofer, ref, tipo, poblacion, precio, nodisponible,
		full_data, admin_overrides, descriptions, updated_at
	FROM property_metadata
`

// FindByID returns the listing or nil, nil when it does not exist.
func (r *metadataRepository) FindByID(ctx context.Context, id int64) (*models.PropertyMetadata, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, selectMetadataColumns+` WHERE cod_ofer = $1`, id)
	meta, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query listing %d: %w", id, err)
	}
	return meta, nil
}

// ListAll returns every listing ordered by id.
func (r *metadataRepository) ListAll(ctx context.Context) ([]models.PropertyMetadata, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, selectMetadataColumns+` ORDER BY cod_ofer`)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return collectMetadata(rows)
}

// ListTranslationCandidates selects available listings for a translation batch.
func (r *metadataRepository) ListTranslationCandidates(ctx context.Context, filter CandidateFilter) ([]models.PropertyMetadata, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	const available = `coalesce((admin_overrides->>'disponible')::boolean, NOT nodisponible)`

	var (
		rows pgx.Rows
		err  error
	)
	if len(filter.IDs) > 0 {
		rows, err = r.db.Pool.Query(ctx,
			selectMetadataColumns+` WHERE cod_ofer = ANY($1) AND `+available+` ORDER BY cod_ofer`,
			filter.IDs,
		)
	} else {
		limit := filter.Limit
		if limit <= 0 {
			limit = 10
		}
		targetKeys := make([]string, 0, len(filter.TargetLanguage))
		for _, lang := range filter.TargetLanguage {
			targetKeys = append(targetKeys, descriptionKeyPrefix+lang)
		}
		rows, err = r.db.Pool.Query(ctx, selectMetadataColumns+`
			WHERE `+available+`
				AND cod_ofer > $1
				AND coalesce(trim(descriptions->>$2::text), '') <> ''
				AND ($3::boolean OR EXISTS (
					SELECT 1 FROM unnest($4::text[]) AS k
					WHERE coalesce(trim(descriptions->>k), '') = ''
				))
			ORDER BY cod_ofer
			LIMIT $5`,
			filter.AfterID,
			descriptionKeyPrefix+filter.SourceLanguage,
			filter.Force,
			targetKeys,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query translation candidates: %w", err)
	}
	return collectMetadata(rows)
}

// ListMissingSourceText selects available listings for the source-text backfill.
func (r *metadataRepository) ListMissingSourceText(ctx context.Context, sourceLanguage string, limit int) ([]models.PropertyMetadata, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, selectMetadataColumns+`
		WHERE coalesce((admin_overrides->>'disponible')::boolean, NOT nodisponible)
			AND coalesce(trim(descriptions->>$1::text), '') = ''
		ORDER BY cod_ofer
		LIMIT $2`,
		descriptionKeyPrefix+sourceLanguage,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings without source text: %w", err)
	}
	return collectMetadata(rows)
}

// MergeDescriptions unions bag into the stored descriptions column.
func (r *metadataRepository) MergeDescriptions(ctx context.Context, id int64, bag models.DescriptionBag, force bool) error {
	if len(bag) == 0 {
		return nil
	}

	payload, err := json.Marshal(encodeDescriptions(bag))
	if err != nil {
		return fmt.Errorf("failed to encode descriptions for listing %d: %w", id, err)
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE property_metadata
		SET descriptions = descriptions || (
				SELECT coalesce(jsonb_object_agg(n.key, n.value), '{}'::jsonb)
				FROM jsonb_each($2::jsonb) AS n
				WHERE $3::boolean OR coalesce(trim(property_metadata.descriptions->>n.key), '') = ''
			),
			updated_at = now()
		WHERE cod_ofer = $1
	`, id, string(payload), force)
	if err != nil {
		return fmt.Errorf("failed to merge descriptions for listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetPriceOverride pins the price across the metadata row and the features mirror.
func (r *metadataRepository) SetPriceOverride(ctx context.Context, id int64, price float64) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin price override transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE property_metadata
		SET precio = $2,
			admin_overrides = admin_overrides || jsonb_build_object('precio', $2::numeric),
			updated_at = now()
		WHERE cod_ofer = $1
	`, id, price)
	if err != nil {
		return fmt.Errorf("failed to override price for listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO property_features (cod_ofer, precio) VALUES ($1, $2)
		ON CONFLICT (cod_ofer) DO UPDATE SET precio = EXCLUDED.precio, updated_at = now()
	`, id, price); err != nil {
		return fmt.Errorf("failed to mirror price for listing %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit price override for listing %d: %w", id, err)
	}
	return nil
}

func scanMetadata(row pgx.Row) (*models.PropertyMetadata, error) {
	var (
		meta         models.PropertyMetadata
		descriptions []byte
	)
	err := row.Scan(
		&meta.ID,
		&meta.Reference,
		&meta.Type,
		&meta.City,
		&meta.Price,
		&meta.Unavailable,
		&meta.Snapshot,
		&meta.Overrides,
		&descriptions,
		&meta.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	meta.Descriptions = decodeDescriptions(descriptions)
	return &meta, nil
}

func collectMetadata(rows pgx.Rows) ([]models.PropertyMetadata, error) {
	defer rows.Close()

	results := []models.PropertyMetadata{}
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		results = append(results, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return results, nil
}

// encodeDescriptions maps language codes to the stored description_<lang> keys.
func encodeDescriptions(bag models.DescriptionBag) map[string]string {
	out := make(map[string]string, len(bag))
	for lang, text := range bag {
		out[descriptionKeyPrefix+lang] = text
	}
	return out
}

// decodeDescriptions reads the stored column into a bag. Unknown keys and
// non-string values are dropped rather than failing the row.
func decodeDescriptions(data []byte) models.DescriptionBag {
	bag := models.DescriptionBag{}
	if len(data) == 0 {
		return bag
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return bag
	}
	for key, value := range raw {
		text, ok := value.(string)
		if !ok || !strings.HasPrefix(key, descriptionKeyPrefix) {
			continue
		}
		bag[strings.TrimPrefix(key, descriptionKeyPrefix)] = text
	}
	return bag
}
