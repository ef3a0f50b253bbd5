package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/catalogsync/internal/database/dbtest"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

func TestFeaturesRepository_UpsertKeepsUnsetFields(t *testing.T) {
	db := dbtest.Open(t)
	meta := NewMetadataRepository(db)
	repo := NewFeaturesRepository(db)
	ctx := context.Background()

	_, err := meta.UpsertFromSync(ctx, []models.SyncRow{syncRow(1, "A", "", 1)}, "es")
	require.NoError(t, err)

	baths := 3
	require.NoError(t, repo.Upsert(ctx, models.PropertyFeatures{ID: 1, Baths: &baths}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Contains(t, all, int64(1))
	assert.Equal(t, 3, *all[1].Baths)
	assert.Equal(t, 80.0, *all[1].Area)

	missing, err := repo.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLedgerRepository_ListMandatesFiltersCategories(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO encargos (ref, precio, precio_nuevo, tipo_inmueble, habitaciones, banos, estado, tipo_contrato)
		VALUES ('2751', 150000, 0, 'Piso', 3, 2, 'activo', 'venta-sin-exclusiva'),
		       ('9000', 0, 0, '', 0, 0, 'activo', 'busqueda')
	`)
	require.NoError(t, err)

	entries, err := repo.ListMandates(ctx, models.ComparableContracts)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2751", entries[0].Reference)
	assert.Equal(t, 150000.0, entries[0].Price)

	none, err := repo.ListMandates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDismissalRepository_UpsertIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDismissalRepository(db)
	ctx := context.Background()

	rec := models.DismissalRecord{
		Reference: "2751", Field: models.FieldPrice,
		LedgerValue: "150000", PublishedValue: "145000", DismissedBy: "ana",
	}
	require.NoError(t, repo.Upsert(ctx, rec))
	rec.DismissedBy = "luis"
	require.NoError(t, repo.Upsert(ctx, rec))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "luis", all[0].DismissedBy)
}

func TestTranslationLogRepository_InsertAndList(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewTranslationLogRepository(db)
	ctx := context.Background()

	entry := &models.TranslationLogEntry{
		ListingID:       7,
		Status:          models.TranslationStatusSuccess,
		SourceLanguage:  "es",
		TargetLanguages: []string{"en", "fr"},
		TokensUsed:      1200,
		CostEstimate:    0.00024,
	}
	require.NoError(t, repo.Insert(ctx, entry))
	assert.NotEmpty(t, entry.ID)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, []string{"en", "fr"}, recent[0].TargetLanguages)
	assert.InDelta(t, 0.00024, recent[0].CostEstimate, 1e-9)
}

func TestRateLimitRepository_Lifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	c, err := repo.Get(ctx, "submit_lead:1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, repo.Start(ctx, "submit_lead:1.2.3.4", now, now.Add(time.Hour)))
	require.NoError(t, repo.Increment(ctx, "submit_lead:1.2.3.4", now))

	c, err = repo.Get(ctx, "submit_lead:1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Count)

	require.NoError(t, repo.Start(ctx, "submit_lead:1.2.3.4", now, now.Add(time.Hour)))
	c, err = repo.Get(ctx, "submit_lead:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count)

	assert.ErrorIs(t, repo.Increment(ctx, "missing", now), ErrNotFound)
}

func TestLeadRepository_Create(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewLeadRepository(db)

	lead := &models.Lead{Name: "Ana", Email: "ana@example.com", SourceIP: "1.2.3.4"}
	require.NoError(t, repo.Create(context.Background(), lead))
	assert.NotEmpty(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())
}
