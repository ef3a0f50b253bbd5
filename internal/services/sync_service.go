package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stwalsh4118/catalogsync/internal/crm"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/repository"
)

// maxItemErrors bounds the per-item error list of batch results.
const maxItemErrors = 50

// Sync defaults
const (
	DefaultSyncBatchSize = 20
	DefaultSyncMaxPages  = 500
	DefaultBackfillLimit = 50
	MaxBackfillLimit     = 500
)

// ErrListingNotFound is returned when a listing is unknown to the CRM or the store.
var ErrListingNotFound = errors.New("listing not found")

// ItemError describes one listing that failed inside a batch operation.
type ItemError struct {
	Reference string `json:"ref,omitempty"`
	Language  string `json:"language,omitempty"`
	Error     string `json:"error"`
	ID        int64  `json:"id"`
}

// SyncResult summarizes one full sync run.
type SyncResult struct {
	Errors      []ItemError `json:"errors"`
	Fetched     int         `json:"fetched"`
	Upserted    int         `json:"upserted"`
	Unchanged   int         `json:"unchanged"`
	Failed      int         `json:"failed"`
	Deactivated int64       `json:"deactivated"`
	Pages       int         `json:"pages"`
	Complete    bool        `json:"complete"`
}

func (r *SyncResult) addError(e ItemError) {
	if len(r.Errors) < maxItemErrors {
		r.Errors = append(r.Errors, e)
	}
}

// BackfillResult summarizes one source-text backfill run. Empty counts
// listings whose CRM detail has no description either; Gone counts listings
// the CRM no longer returns as available.
type BackfillResult struct {
	Errors   []ItemError `json:"errors"`
	Checked  int         `json:"checked"`
	Filled   int         `json:"filled"`
	Empty    int         `json:"empty"`
	Gone     int         `json:"gone"`
	Failed   int         `json:"failed"`
	Complete bool        `json:"complete"`
}

func (r *BackfillResult) addError(e ItemError) {
	if len(r.Errors) < maxItemErrors {
		r.Errors = append(r.Errors, e)
	}
}

// SyncOptions configures the sync engine.
type SyncOptions struct {
	SourceLanguage string
	BatchSize      int
	MaxPages       int
}

// SyncService copies listings from the CRM into the canonical store.
type SyncService interface {
	// SyncAll pages through the CRM until an empty page. A transport failure
	// stops the run and is returned together with the partial result; batches
	// already written stay written.
	SyncAll(ctx context.Context) (*SyncResult, error)

	// SyncOne refreshes a single listing.
	// Returns ErrListingNotFound when the CRM does not know it or reports it unavailable.
	SyncOne(ctx context.Context, id int64) error

	// BackfillSourceText re-fetches the detail of up to limit available listings
	// whose source-language description is empty and stores the text the CRM has.
	// Authentication and rate-limit failures stop the run and are returned with
	// the partial result; other per-listing failures are counted and skipped.
	BackfillSourceText(ctx context.Context, limit int) (*BackfillResult, error)
}

type syncService struct {
	client crm.Client
	repo   repository.MetadataRepository
	log    *logger.Logger
	now    func() time.Time
	opts   SyncOptions
}

// NewSyncService creates a new instance of SyncService. A nil client makes
// every call fail with crm.ErrNotConfigured.
func NewSyncService(client crm.Client, repo repository.MetadataRepository, opts SyncOptions, log *logger.Logger) SyncService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSyncBatchSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultSyncMaxPages
	}
	return &syncService{
		client: client,
		repo:   repo,
		log:    log.WithComponent("sync"),
		now:    time.Now,
		opts:   opts,
	}
}

func (s *syncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{Errors: []ItemError{}}
	if s.client == nil {
		return result, crm.ErrNotConfigured
	}

	started := s.now()
	seen := make(map[int64]bool)
	seenIDs := []int64{}
	pending := make([]models.SyncRow, 0, s.opts.BatchSize)

	s.log.Info("Starting full sync", map[string]interface{}{
		"batch_size": s.opts.BatchSize,
	})

	var fetchErr error
	for page := 1; ; page++ {
		if page > s.opts.MaxPages {
			s.log.Warn("Sync stopped at page limit", map[string]interface{}{
				"max_pages": s.opts.MaxPages,
			})
			break
		}

		listings, err := s.client.ListListings(ctx, page)
		if err != nil {
			fetchErr = fmt.Errorf("failed to fetch page %d: %w", page, err)
			break
		}
		if len(listings) == 0 {
			result.Complete = true
			break
		}
		result.Pages++

		for _, listing := range listings {
			id := int64(listing.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			seenIDs = append(seenIDs, id)
			result.Fetched++

			pending = append(pending, toSyncRow(listing, started))
			if len(pending) >= s.opts.BatchSize {
				s.writeBatch(ctx, pending, result)
				pending = make([]models.SyncRow, 0, s.opts.BatchSize)
			}
		}
	}
	if len(pending) > 0 {
		s.writeBatch(ctx, pending, result)
	}

	if fetchErr != nil {
		s.log.Error("Sync aborted", fetchErr, map[string]interface{}{
			"fetched":  result.Fetched,
			"upserted": result.Upserted,
		})
		return result, fetchErr
	}

	// Retiring requires a complete, non-empty listing set; an empty CRM answer
	// would otherwise hide the whole catalog.
	if result.Complete && result.Fetched > 0 {
		n, err := s.repo.MarkUnavailableExcept(ctx, seenIDs)
		if err != nil {
			s.log.Error("Failed to retire missing listings", err, nil)
			result.addError(ItemError{Error: err.Error()})
		} else {
			result.Deactivated = n
		}
	}

	s.log.Info("Sync finished", map[string]interface{}{
		"pages":       result.Pages,
		"fetched":     result.Fetched,
		"upserted":    result.Upserted,
		"unchanged":   result.Unchanged,
		"failed":      result.Failed,
		"deactivated": result.Deactivated,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
	return result, nil
}

// writeBatch writes rows in one transaction, falling back to one row at a time
// so a single bad listing does not sink its neighbours.
func (s *syncService) writeBatch(ctx context.Context, rows []models.SyncRow, result *SyncResult) {
	res, err := s.repo.UpsertFromSync(ctx, rows, s.opts.SourceLanguage)
	if err == nil {
		result.Upserted += res.Inserted + res.Updated
		result.Unchanged += res.Unchanged
		return
	}

	s.log.Warn("Batch write failed, retrying row by row", map[string]interface{}{
		"rows":  len(rows),
		"error": err.Error(),
	})
	for _, row := range rows {
		res, err := s.repo.UpsertFromSync(ctx, []models.SyncRow{row}, s.opts.SourceLanguage)
		if err != nil {
			result.Failed++
			result.addError(ItemError{ID: row.ID, Reference: row.Reference, Error: err.Error()})
			s.log.Error("Failed to write listing", err, map[string]interface{}{
				"listing_id": row.ID,
				"ref":        row.Reference,
			})
			continue
		}
		result.Upserted += res.Inserted + res.Updated
		result.Unchanged += res.Unchanged
	}
}

func (s *syncService) SyncOne(ctx context.Context, id int64) error {
	if s.client == nil {
		return crm.ErrNotConfigured
	}

	listing, err := s.client.GetListingDetail(ctx, id)
	if err != nil {
		s.log.Error("Failed to fetch listing detail", err, map[string]interface{}{
			"listing_id": id,
		})
		return fmt.Errorf("failed to fetch listing %d: %w", id, err)
	}
	if listing == nil || bool(listing.Unavailable) {
		s.log.Warn("Listing not available in CRM", map[string]interface{}{
			"listing_id": id,
			"found":      listing != nil,
		})
		return fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
	}

	if _, err := s.repo.UpsertFromSync(ctx, []models.SyncRow{toSyncRow(*listing, s.now())}, s.opts.SourceLanguage); err != nil {
		s.log.Error("Failed to write listing", err, map[string]interface{}{
			"listing_id": id,
		})
		return fmt.Errorf("failed to write listing %d: %w", id, err)
	}

	s.log.Info("Listing synced", map[string]interface{}{
		"listing_id": id,
		"ref":        listing.Reference,
	})
	return nil
}

func (s *syncService) BackfillSourceText(ctx context.Context, limit int) (*BackfillResult, error) {
	result := &BackfillResult{Errors: []ItemError{}}
	if s.client == nil {
		return result, crm.ErrNotConfigured
	}
	switch {
	case limit <= 0:
		limit = DefaultBackfillLimit
	case limit > MaxBackfillLimit:
		limit = MaxBackfillLimit
	}

	rows, err := s.repo.ListMissingSourceText(ctx, s.opts.SourceLanguage, limit)
	if err != nil {
		return result, fmt.Errorf("failed to select listings without source text: %w", err)
	}

	s.log.Info("Starting source text backfill", map[string]interface{}{
		"listings": len(rows),
		"limit":    limit,
	})

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		detail, err := s.client.GetListingDetail(ctx, row.ID)
		if err != nil {
			if errors.Is(err, crm.ErrAuthentication) || errors.Is(err, crm.ErrRateLimited) {
				s.log.Error("Backfill aborted", err, map[string]interface{}{
					"listing_id": row.ID,
					"filled":     result.Filled,
				})
				return result, fmt.Errorf("failed to fetch listing %d: %w", row.ID, err)
			}
			result.Failed++
			result.addError(ItemError{ID: row.ID, Reference: row.Reference, Error: err.Error()})
			continue
		}
		if detail == nil || bool(detail.Unavailable) {
			result.Gone++
			continue
		}

		sr := toSyncRow(*detail, s.now())
		if sr.SourceText == "" {
			result.Empty++
			continue
		}
		if _, err := s.repo.UpsertFromSync(ctx, []models.SyncRow{sr}, s.opts.SourceLanguage); err != nil {
			result.Failed++
			result.addError(ItemError{ID: row.ID, Reference: row.Reference, Error: err.Error()})
			s.log.Error("Failed to write source text", err, map[string]interface{}{"listing_id": row.ID})
			continue
		}
		result.Filled++
	}
	result.Complete = true

	s.log.Info("Source text backfill finished", map[string]interface{}{
		"checked": result.Checked,
		"filled":  result.Filled,
		"empty":   result.Empty,
		"gone":    result.Gone,
		"failed":  result.Failed,
	})
	return result, nil
}

func toSyncRow(l models.ListingSnapshot, syncedAt time.Time) models.SyncRow {
	return models.SyncRow{
		ID:          int64(l.ID),
		Reference:   strings.TrimSpace(string(l.Reference)),
		SourceText:  strings.TrimSpace(string(l.Description)),
		Snapshot:    l,
		Unavailable: bool(l.Unavailable),
		SyncedAt:    syncedAt,
	}
}
