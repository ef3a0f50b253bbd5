// Package app wires the store, the outbound integrations and the services
// shared by the HTTP server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/catalogsync/internal/config"
	"github.com/stwalsh4118/catalogsync/internal/crm"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/handlers"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/resolver"
	"github.com/stwalsh4118/catalogsync/internal/services"
	"github.com/stwalsh4118/catalogsync/internal/translator"
)

// App holds the wired services. Close releases the database pool.
type App struct {
	DB           *database.Database
	Sync         services.SyncService
	Listings     services.ListingService
	Discrepancy  services.DiscrepancyService
	Translation  services.TranslationService
	Leads        services.LeadService
	RateLimiter  services.RateLimiter
	Integrations handlers.Integrations
}

// New connects to the database, applies pending migrations and builds every service.
// Missing CRM or provider credentials are logged and leave those services unconfigured.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("Database ready", map[string]interface{}{
		"host":       cfg.Database.Host,
		"database":   cfg.Database.Name,
		"pool_min":   cfg.Database.PoolMin,
		"pool_max":   cfg.Database.PoolMax,
		"migrations": applied,
	})

	client, err := crm.NewClient(crm.Options{
		BaseURL:  cfg.CRM.BaseURL,
		APIKey:   cfg.CRM.APIKey,
		AgencyID: cfg.CRM.AgencyID,
		Timeout:  cfg.CRM.Timeout,
		Log:      log,
	})
	if err != nil {
		if !errors.Is(err, crm.ErrNotConfigured) {
			db.Close()
			return nil, fmt.Errorf("failed to create crm client: %w", err)
		}
		log.Warn("CRM_API_KEY not set, sync is disabled", nil)
	}

	provider, err := translator.NewProvider(translator.Options{
		BaseURL:        cfg.Translation.BaseURL,
		APIKey:         cfg.Translation.APIKey,
		Model:          cfg.Translation.Model,
		Timeout:        cfg.Translation.CallTimeout,
		RequestsPerSec: cfg.Translation.RequestsPerSec,
	})
	if err != nil {
		if !errors.Is(err, translator.ErrNotConfigured) {
			db.Close()
			return nil, fmt.Errorf("failed to create translation provider: %w", err)
		}
		log.Warn("TRANSLATION_API_KEY not set, translation is disabled", nil)
	}

	metaRepo := repository.NewMetadataRepository(db)
	featuresRepo := repository.NewFeaturesRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	dismissalRepo := repository.NewDismissalRepository(db)
	logRepo := repository.NewTranslationLogRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	rateRepo := repository.NewRateLimitRepository(db)

	syncService := services.NewSyncService(client, metaRepo, services.SyncOptions{
		SourceLanguage: cfg.Translation.SourceLanguage,
		BatchSize:      cfg.Sync.BatchSize,
		MaxPages:       cfg.Sync.MaxPages,
	}, log)

	translationService := services.NewTranslationService(
		provider,
		translator.DefaultCatalog(),
		metaRepo,
		featuresRepo,
		logRepo,
		services.TranslationOptions{
			SourceLanguage: cfg.Translation.SourceLanguage,
			Languages:      cfg.Translation.Languages,
			BatchSize:      cfg.Translation.BatchSize,
			MaxBatchSize:   cfg.Translation.MaxBatchSize,
			CallDelay:      cfg.Translation.CallDelay,
			BatchDelay:     cfg.Translation.BatchDelay,
			CallTimeout:    cfg.Translation.CallTimeout,
			Workers:        cfg.Translation.Workers,
			UnitCost:       cfg.Translation.UnitCost,
		},
		log,
	)

	viewOpts := resolver.Options{
		SourceLanguage: cfg.Translation.SourceLanguage,
		PhotoBaseURL:   cfg.CRM.PhotoBaseURL,
	}

	integrations := handlers.Integrations{
		CRM:         client != nil,
		Translation: provider != nil,
		Admin:       cfg.Admin.Token != "",
	}

	return &App{
		DB:           db,
		Sync:         syncService,
		Listings:     services.NewListingService(metaRepo, featuresRepo, viewOpts, log),
		Discrepancy:  services.NewDiscrepancyService(ledgerRepo, metaRepo, featuresRepo, dismissalRepo, log),
		Translation:  translationService,
		Leads:        services.NewLeadService(leadRepo, log),
		RateLimiter:  services.NewRateLimiter(rateRepo, log),
		Integrations: integrations,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.DB.Close()
}
