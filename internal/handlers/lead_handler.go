package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// LeadHandler accepts contact requests from the public site.
type LeadHandler struct {
	service services.LeadService
}

// NewLeadHandler creates a new LeadHandler instance.
func NewLeadHandler(service services.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// LeadRequest is the public contact form.
type LeadRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Phone       string `json:"phone" binding:"omitempty,max=40"`
	Message     string `json:"message" binding:"omitempty,max=5000"`
	PropertyRef string `json:"propertyRef" binding:"omitempty,max=50"`
}

// LeadResponse echoes the stored lead id.
type LeadResponse struct {
	ID uuid.UUID `json:"id"`
}

// Submit handles POST /api/v1/leads.
func (h *LeadHandler) Submit(c *gin.Context) {
	var req LeadRequest
	if !bindJSON(c, &req) {
		return
	}

	lead := &models.Lead{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Message:     req.Message,
		PropertyRef: req.PropertyRef,
		SourceIP:    c.ClientIP(),
	}
	if err := h.service.Submit(c.Request.Context(), lead); err != nil {
		if errors.Is(err, services.ErrInvalidLead) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to submit contact request", err)
		return
	}

	c.JSON(http.StatusCreated, LeadResponse{ID: lead.ID})
}
