package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/catalogsync/internal/app"
	"github.com/stwalsh4118/catalogsync/internal/config"
	"github.com/stwalsh4118/catalogsync/internal/handlers"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/middleware"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting catalogsync API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer a.Close()

	if cfg.Admin.Token == "" {
		log.Warn("ADMIN_TOKEN not set, admin routes will reject every request", nil)
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(a.DB, cfg.Server.Env, a.Integrations)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(a.Sync)
	listingHandler := handlers.NewListingHandler(a.Listings, a.Translation)
	discrepancyHandler := handlers.NewDiscrepancyHandler(a.Discrepancy)
	translationHandler := handlers.NewTranslationHandler(a.Translation)
	leadHandler := handlers.NewLeadHandler(a.Leads)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/leads",
			middleware.RateLimit(a.RateLimiter, services.ActionSubmitLead, cfg.RateLimit.LeadLimit, cfg.RateLimit.LeadWindow),
			leadHandler.Submit,
		)

		admin := v1.Group("/admin", middleware.AdminAuth(cfg.Admin.Token, cfg.Admin.Operator))
		{
			admin.POST("/sync", syncHandler.SyncAll)
			admin.POST("/sync/backfill", syncHandler.Backfill)
			admin.POST("/sync/:id", syncHandler.SyncOne)

			admin.GET("/listings", listingHandler.List)
			admin.GET("/listings/:id", listingHandler.Get)
			admin.PUT("/listings/:id/price", listingHandler.SetPrice)
			admin.PUT("/listings/:id/features", listingHandler.UpdateFeatures)
			admin.PUT("/listings/:id/descriptions/:lang", listingHandler.UpdateDescription)

			admin.GET("/discrepancies", discrepancyHandler.Report)
			admin.GET("/discrepancies/export", discrepancyHandler.Export)
			admin.POST("/discrepancies/dismiss", discrepancyHandler.Dismiss)

			admin.POST("/translations/run", translationHandler.Run)
			admin.GET("/translations/log", translationHandler.Log)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
