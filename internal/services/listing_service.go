package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/resolver"
)

var (
	// ErrInvalidPrice is returned for non-positive price overrides.
	ErrInvalidPrice = errors.New("price must be greater than zero")

	// ErrInvalidFeatures is returned for empty or negative features edits.
	ErrInvalidFeatures = errors.New("invalid features")
)

// ListingService serves resolved listings and operator edits.
type ListingService interface {
	// List resolves every stored listing.
	List(ctx context.Context) ([]models.PublishedView, error)

	// Get resolves one listing. Returns ErrListingNotFound when it does not exist.
	Get(ctx context.Context, id int64) (*models.PublishedView, error)

	// SetPrice pins an operator price that later syncs cannot change.
	SetPrice(ctx context.Context, id int64, price float64) (*models.PublishedView, error)

	// UpdateFeatures stores operator-curated features. Nil fields keep their
	// stored value; the price mirror is owned by SetPrice and is ignored here.
	UpdateFeatures(ctx context.Context, features models.PropertyFeatures) (*models.PublishedView, error)
}

type listingService struct {
	meta     repository.MetadataRepository
	features repository.FeaturesRepository
	log      *logger.Logger
	view     resolver.Options
}

// NewListingService creates a new instance of ListingService. view sets the
// source language and photo base URL used when resolving.
func NewListingService(meta repository.MetadataRepository, features repository.FeaturesRepository, view resolver.Options, log *logger.Logger) ListingService {
	return &listingService{
		meta:     meta,
		features: features,
		log:      log.WithComponent("listings"),
		view:     view,
	}
}

func (s *listingService) List(ctx context.Context) ([]models.PublishedView, error) {
	return loadViews(ctx, s.meta, s.features, s.view)
}

func (s *listingService) Get(ctx context.Context, id int64) (*models.PublishedView, error) {
	meta, err := s.meta.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %d: %w", id, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
	}

	features, err := s.features.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load features for listing %d: %w", id, err)
	}

	view := resolver.ResolveWith(*meta, features, s.view)
	return &view, nil
}

func (s *listingService) SetPrice(ctx context.Context, id int64, price float64) (*models.PublishedView, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidPrice, price)
	}

	if err := s.meta.SetPriceOverride(ctx, id, price); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
		}
		s.log.Error("Failed to set price override", err, map[string]interface{}{
			"listing_id": id,
			"price":      price,
		})
		return nil, fmt.Errorf("failed to set price for listing %d: %w", id, err)
	}

	s.log.Info("Price override set", map[string]interface{}{
		"listing_id": id,
		"price":      price,
	})
	return s.Get(ctx, id)
}

func (s *listingService) UpdateFeatures(ctx context.Context, f models.PropertyFeatures) (*models.PublishedView, error) {
	f.Price = nil
	if err := validateFeatures(f); err != nil {
		return nil, err
	}

	meta, err := s.meta.FindByID(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %d: %w", f.ID, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("listing %d: %w", f.ID, ErrListingNotFound)
	}

	if err := s.features.Upsert(ctx, f); err != nil {
		s.log.Error("Failed to update features", err, map[string]interface{}{"listing_id": f.ID})
		return nil, fmt.Errorf("failed to update features for listing %d: %w", f.ID, err)
	}

	s.log.Info("Features updated", map[string]interface{}{"listing_id": f.ID})
	return s.Get(ctx, f.ID)
}

func validateFeatures(f models.PropertyFeatures) error {
	if f.Area == nil && f.Rooms == nil && f.SingleRooms == nil && f.DoubleRooms == nil && f.Baths == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalidFeatures)
	}
	if f.Area != nil && *f.Area < 0 {
		return fmt.Errorf("%w: negative area", ErrInvalidFeatures)
	}
	for _, v := range []*int{f.Rooms, f.SingleRooms, f.DoubleRooms, f.Baths} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: negative count", ErrInvalidFeatures)
		}
	}
	return nil
}

// loadViews resolves every stored listing against its features row.
func loadViews(ctx context.Context, meta repository.MetadataRepository, features repository.FeaturesRepository, opts resolver.Options) ([]models.PublishedView, error) {
	rows, err := meta.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	feats, err := features.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	return resolver.ResolveAll(rows, feats, opts), nil
}
