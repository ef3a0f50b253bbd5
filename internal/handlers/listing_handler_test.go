package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

func setupListingRouter(listings *MockListingService, translations *MockTranslationService) *gin.Engine {
	handler := NewListingHandler(listings, translations)
	return newTestRouter(func(_, admin *gin.RouterGroup) {
		admin.GET("/listings", handler.List)
		admin.GET("/listings/:id", handler.Get)
		admin.PUT("/listings/:id/price", handler.SetPrice)
		admin.PUT("/listings/:id/features", handler.UpdateFeatures)
		admin.PUT("/listings/:id/descriptions/:lang", handler.UpdateDescription)
	})
}

func TestListingHandler_List(t *testing.T) {
	listings := new(MockListingService)
	listings.On("List", mock.Anything).Return([]models.PublishedView{
		{ID: 1, Reference: "1000", Price: 100000},
		{ID: 2, Reference: "2000", Price: 200000},
	}, nil)

	w := serve(setupListingRouter(listings, nil), adminRequest(http.MethodGet, "/api/v1/admin/listings", "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var response ListingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "2000", response.Listings[1].Reference)
}

func TestListingHandler_Get(t *testing.T) {
	listings := new(MockListingService)
	listings.On("Get", mock.Anything, int64(1)).Return(&models.PublishedView{ID: 1, Reference: "1000"}, nil)
	listings.On("Get", mock.Anything, int64(2)).Return(nil, services.ErrListingNotFound)
	router := setupListingRouter(listings, nil)

	w := serve(router, adminRequest(http.MethodGet, "/api/v1/admin/listings/1", "", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ref":"1000"`)

	w = serve(router, adminRequest(http.MethodGet, "/api/v1/admin/listings/2", "", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingHandler_SetPrice(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
		call       bool
	}{
		{name: "pins price", body: `{"precio": 148000}`, wantStatus: http.StatusOK, call: true},
		{name: "missing price", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: apierrors.ErrValidation},
		{name: "negative price", body: `{"precio": -1}`, wantStatus: http.StatusBadRequest, wantCode: apierrors.ErrValidation},
		{name: "malformed body", body: `{"precio": "cheap"}`, wantStatus: http.StatusBadRequest, wantCode: apierrors.ErrBadRequest},
		{name: "unknown listing", body: `{"precio": 148000}`, svcErr: services.ErrListingNotFound, wantStatus: http.StatusNotFound, wantCode: apierrors.ErrNotFound, call: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			listings := new(MockListingService)
			var view *models.PublishedView
			if tt.svcErr == nil {
				view = &models.PublishedView{ID: 2751, Price: 148000}
			}
			listings.On("SetPrice", mock.Anything, int64(2751), 148000.0).Return(view, tt.svcErr)

			// Act
			w := serve(setupListingRouter(listings, nil), adminRequest(http.MethodPut, "/api/v1/admin/listings/2751/price", tt.body, ""))

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w.Body.Bytes()).Error.Code)
			}
			if !tt.call {
				listings.AssertNotCalled(t, "SetPrice", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestListingHandler_UpdateDescription(t *testing.T) {
	tests := []struct {
		name       string
		lang       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{name: "stored", lang: "en", body: `{"text":"Sea view flat"}`, wantStatus: http.StatusNoContent},
		{name: "unsupported language", lang: "ja", body: `{"text":"x"}`, svcErr: services.ErrUnsupportedLanguage, wantStatus: http.StatusBadRequest},
		{name: "unknown listing", lang: "en", body: `{"text":"x"}`, svcErr: services.ErrListingNotFound, wantStatus: http.StatusNotFound},
		{name: "empty body", lang: "en", body: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translations := new(MockTranslationService)
			translations.On("UpdateTranslation", mock.Anything, int64(7), tt.lang, mock.Anything).Return(tt.svcErr)

			w := serve(setupListingRouter(nil, translations),
				adminRequest(http.MethodPut, "/api/v1/admin/listings/7/descriptions/"+tt.lang, tt.body, ""))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestListingHandler_UpdateFeatures(t *testing.T) {
	t.Run("partial edit", func(t *testing.T) {
		listings := new(MockListingService)
		listings.On("UpdateFeatures", mock.Anything, mock.MatchedBy(func(f models.PropertyFeatures) bool {
			return f.ID == 7 && f.Rooms != nil && *f.Rooms == 3 && f.Baths == nil && f.Area == nil
		})).Return(&models.PublishedView{ID: 7, Rooms: 3}, nil)

		w := serve(setupListingRouter(listings, nil),
			adminRequest(http.MethodPut, "/api/v1/admin/listings/7/features", `{"habitaciones":3}`, ""))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"habitaciones":3`)
	})

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{name: "negative rooms", body: `{"habitaciones":-1}`, wantStatus: http.StatusBadRequest},
		{name: "nothing to update", body: `{}`, svcErr: services.ErrInvalidFeatures, wantStatus: http.StatusBadRequest},
		{name: "unknown listing", body: `{"banos":2}`, svcErr: services.ErrListingNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings := new(MockListingService)
			listings.On("UpdateFeatures", mock.Anything, mock.Anything).Return(nil, tt.svcErr)

			w := serve(setupListingRouter(listings, nil),
				adminRequest(http.MethodPut, "/api/v1/admin/listings/7/features", tt.body, ""))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
