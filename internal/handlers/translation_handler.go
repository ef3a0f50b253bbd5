package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// TranslationHandler runs the translation pipeline on demand.
type TranslationHandler struct {
	service services.TranslationService
}

// NewTranslationHandler creates a new TranslationHandler instance.
func NewTranslationHandler(service services.TranslationService) *TranslationHandler {
	return &TranslationHandler{service: service}
}

// RunTranslationRequest is the optional body of a translation run.
type RunTranslationRequest struct {
	IDs       []int64  `json:"ids" binding:"omitempty,max=50,dive,gt=0"`
	Languages []string `json:"languages" binding:"omitempty,dive,min=2,max=5"`
	BatchSize int      `json:"batchSize" binding:"omitempty,gte=1"`
	Force     bool     `json:"force"`

	// MaxBatches > 0 keeps running batches until nothing is left or the limit is hit.
	MaxBatches int `json:"maxBatches" binding:"omitempty,gte=1,lte=100"`
}

// TranslationLogResponse wraps the recent audit entries.
type TranslationLogResponse struct {
	Entries []models.TranslationLogEntry `json:"entries"`
	Count   int                          `json:"count"`
}

// Run handles POST /api/v1/admin/translations/run.
func (h *TranslationHandler) Run(c *gin.Context) {
	var req RunTranslationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	treq := services.TranslationRequest{
		IDs:       req.IDs,
		Languages: req.Languages,
		BatchSize: req.BatchSize,
		Force:     req.Force,
	}

	var (
		result *services.TranslationResult
		err    error
	)
	if req.MaxBatches > 0 {
		result, err = h.service.RunUntilDone(c.Request.Context(), treq, req.MaxBatches)
	} else {
		result, err = h.service.Run(c.Request.Context(), treq)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProviderNotConfigured):
			apierrors.ServiceUnavailable(c, "Translation provider is not configured")
		case errors.Is(err, services.ErrUnsupportedLanguage):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			var details map[string]interface{}
			if result != nil {
				details = map[string]interface{}{"partial": result}
			}
			apierrors.InternalServerErrorWithDetails(c, "Translation run failed", details, err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Log handles GET /api/v1/admin/translations/log?limit=N.
func (h *TranslationHandler) Log(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	entries, err := h.service.RecentLog(c.Request.Context(), limit)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load translation log", err)
		return
	}
	c.JSON(http.StatusOK, TranslationLogResponse{Entries: entries, Count: len(entries)})
}
