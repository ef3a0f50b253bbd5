package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// ListingHandler serves resolved listings and operator edits.
type ListingHandler struct {
	listings     services.ListingService
	translations services.TranslationService
}

// NewListingHandler creates a new ListingHandler instance.
func NewListingHandler(listings services.ListingService, translations services.TranslationService) *ListingHandler {
	return &ListingHandler{listings: listings, translations: translations}
}

// ListingsResponse wraps the resolved catalog.
type ListingsResponse struct {
	Listings []models.PublishedView `json:"listings"`
	Count    int                   `json:"count"`
}

// SetPriceRequest is the body of a price override.
type SetPriceRequest struct {
	Price float64 `json:"precio" binding:"required,gt=0"`
}

// UpdateFeaturesRequest is a partial features edit. Omitted fields are kept.
type UpdateFeaturesRequest struct {
	Area        *float64 `json:"superficie" binding:"omitempty,gte=0"`
	Rooms       *int     `json:"habitaciones" binding:"omitempty,gte=0,lte=100"`
	SingleRooms *int     `json:"habitacionesSimples" binding:"omitempty,gte=0,lte=100"`
	DoubleRooms *int     `json:"habitacionesDobles" binding:"omitempty,gte=0,lte=100"`
	Baths       *int     `json:"banos" binding:"omitempty,gte=0,lte=100"`
}

// UpdateDescriptionRequest is the body of a manual translation edit.
type UpdateDescriptionRequest struct {
	Text string `json:"text" binding:"required,max=20000"`
}

// List handles GET /api/v1/admin/listings.
func (h *ListingHandler) List(c *gin.Context) {
	views, err := h.listings.List(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load listings", err)
		return
	}
	c.JSON(http.StatusOK, ListingsResponse{Listings: views, Count: len(views)})
}

// Get handles GET /api/v1/admin/listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}

	view, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			apierrors.NotFound(c, "Listing not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to load listing", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetPrice handles PUT /api/v1/admin/listings/:id/price.
func (h *ListingHandler) SetPrice(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	var req SetPriceRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.listings.SetPrice(c.Request.Context(), id, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPrice):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, services.ErrListingNotFound):
			apierrors.NotFound(c, "Listing not found")
		default:
			apierrors.InternalServerError(c, "Failed to set price", err)
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateFeatures handles PUT /api/v1/admin/listings/:id/features.
func (h *ListingHandler) UpdateFeatures(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	var req UpdateFeaturesRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.listings.UpdateFeatures(c.Request.Context(), models.PropertyFeatures{
		ID:          id,
		Area:        req.Area,
		Rooms:       req.Rooms,
		SingleRooms: req.SingleRooms,
		DoubleRooms: req.DoubleRooms,
		Baths:       req.Baths,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFeatures):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, services.ErrListingNotFound):
			apierrors.NotFound(c, "Listing not found")
		default:
			apierrors.InternalServerError(c, "Failed to update features", err)
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateDescription handles PUT /api/v1/admin/listings/:id/descriptions/:lang.
func (h *ListingHandler) UpdateDescription(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		return
	}
	var req UpdateDescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	lang := c.Param("lang")
	if err := h.translations.UpdateTranslation(c.Request.Context(), id, lang, req.Text); err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedLanguage), errors.Is(err, services.ErrEmptyTranslation):
			apierrors.BadRequest(c, err.Error(), map[string]interface{}{"language": lang})
		case errors.Is(err, services.ErrListingNotFound):
			apierrors.NotFound(c, "Listing not found")
		default:
			apierrors.InternalServerError(c, "Failed to update description", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
