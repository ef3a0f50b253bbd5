package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/catalogsync/internal/crm"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/middleware"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// SyncHandler triggers CRM syncs from the admin panel.
type SyncHandler struct {
	service services.SyncService
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(service services.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// SyncOneResponse is returned after a single listing refresh.
type SyncOneResponse struct {
	ID     int64 `json:"id"`
	Synced bool  `json:"synced"`
}

// SyncAll handles POST /api/v1/admin/sync.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	result, err := h.service.SyncAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, crm.ErrNotConfigured) {
			apierrors.ServiceUnavailable(c, "CRM integration is not configured")
			return
		}
		var details map[string]interface{}
		if result != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Warn("Sync stopped early", map[string]interface{}{
					"fetched":  result.Fetched,
					"upserted": result.Upserted,
				})
			}
			details = map[string]interface{}{"partial": result}
		}
		apierrors.BadGatewayWithDetails(c, "CRM sync failed before completing", details, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Backfill handles POST /api/v1/admin/sync/backfill?limit=N.
func (h *SyncHandler) Backfill(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	result, err := h.service.BackfillSourceText(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, crm.ErrNotConfigured) {
			apierrors.ServiceUnavailable(c, "CRM integration is not configured")
			return
		}
		var details map[string]interface{}
		if result != nil && result.Checked > 0 {
			details = map[string]interface{}{"partial": result}
		}
		apierrors.BadGatewayWithDetails(c, "Source text backfill failed before completing", details, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SyncOne handles POST /api/v1/admin/sync/:id.
func (h *SyncHandler) SyncOne(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	if err := h.service.SyncOne(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			apierrors.NotFound(c, "Listing not found or not available in the CRM")
		case errors.Is(err, crm.ErrNotConfigured):
			apierrors.ServiceUnavailable(c, "CRM integration is not configured")
		default:
			apierrors.BadGateway(c, "CRM sync failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, SyncOneResponse{ID: id, Synced: true})
}

