package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/middleware"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// xlsxContentType is the MIME type of Excel workbooks.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DiscrepancyHandler exposes the ledger comparison to operators.
type DiscrepancyHandler struct {
	service services.DiscrepancyService
	now     func() time.Time
}

// NewDiscrepancyHandler creates a new DiscrepancyHandler instance.
func NewDiscrepancyHandler(service services.DiscrepancyService) *DiscrepancyHandler {
	return &DiscrepancyHandler{service: service, now: time.Now}
}

// DiscrepancyResponse adds the live count to the report.
type DiscrepancyResponse struct {
	*models.DiscrepancyReport
	Total int `json:"total"`
}

// Report handles GET /api/v1/admin/discrepancies.
func (h *DiscrepancyHandler) Report(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to detect discrepancies", err)
		return
	}
	c.JSON(http.StatusOK, DiscrepancyResponse{DiscrepancyReport: report, Total: report.Count()})
}

// Export handles GET /api/v1/admin/discrepancies/export.
// The workbook is rendered in memory so a failure can still produce a JSON error.
func (h *DiscrepancyHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(c.Request.Context(), &buf); err != nil {
		apierrors.InternalServerError(c, "Failed to export discrepancies", err)
		return
	}

	filename := fmt.Sprintf("discrepancias-%s.xlsx", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Dismiss handles POST /api/v1/admin/discrepancies/dismiss.
func (h *DiscrepancyHandler) Dismiss(c *gin.Context) {
	var req models.Discrepancy
	if !bindJSON(c, &req) {
		return
	}

	err := h.service.Dismiss(c.Request.Context(), middleware.GetOperator(c), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			apierrors.Unauthorized(c, "An operator identity is required to dismiss discrepancies")
		case errors.Is(err, services.ErrInvalidField), errors.Is(err, services.ErrInvalidDiscrepancy):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			apierrors.InternalServerError(c, "Failed to dismiss discrepancy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
