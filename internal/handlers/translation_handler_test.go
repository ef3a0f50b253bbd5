package handlers

import (
	"encoding/json"
	"errors"
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

func setupTranslationRouter(svc *MockTranslationService) *gin.Engine {
	handler := NewTranslationHandler(svc)
	return newTestRouter(func(_, admin *gin.RouterGroup) {
		admin.POST("/translations/run", handler.Run)
		admin.GET("/translations/log", handler.Log)
	})
}

func TestTranslationHandler_Run(t *testing.T) {
	t.Run("empty body runs one default batch", func(t *testing.T) {
		svc := new(MockTranslationService)
		svc.On("Run", mock.Anything, services.TranslationRequest{}).
			Return(&services.TranslationResult{Success: true, Translated: 4, PerListingErrors: []services.ItemError{}}, nil)

		w := serve(setupTranslationRouter(svc), adminRequest(http.MethodPost, "/api/v1/admin/translations/run", "", ""))

		require.Equal(t, http.StatusOK, w.Code)
		var result services.TranslationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, 4, result.Translated)
	})

	t.Run("explicit request", func(t *testing.T) {
		svc := new(MockTranslationService)
		want := services.TranslationRequest{IDs: []int64{2751}, Languages: []string{"en"}, Force: true}
		svc.On("Run", mock.Anything, want).Return(&services.TranslationResult{Success: true}, nil)

		w := serve(setupTranslationRouter(svc), adminRequest(http.MethodPost, "/api/v1/admin/translations/run",
			`{"ids":[2751],"languages":["en"],"force":true}`, ""))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("max batches drains", func(t *testing.T) {
		svc := new(MockTranslationService)
		svc.On("RunUntilDone", mock.Anything, services.TranslationRequest{BatchSize: 5}, 3).
			Return(&services.TranslationResult{Success: true, Batches: 3}, nil)

		w := serve(setupTranslationRouter(svc), adminRequest(http.MethodPost, "/api/v1/admin/translations/run",
			`{"batchSize":5,"maxBatches":3}`, ""))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})
}

func TestTranslationHandler_RunErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "provider missing", svcErr: services.ErrProviderNotConfigured, wantStatus: http.StatusServiceUnavailable, wantCode: apierrors.ErrServiceUnavailable},
		{name: "unsupported language", body: `{"languages":["ja"]}`, svcErr: services.ErrUnsupportedLanguage, wantStatus: http.StatusBadRequest, wantCode: apierrors.ErrBadRequest},
		{name: "too many ids", body: `{"ids":[` + ids(51) + `]}`, wantStatus: http.StatusBadRequest, wantCode: apierrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTranslationService)
			svc.On("Run", mock.Anything, mock.Anything).Return(&services.TranslationResult{}, tt.svcErr)

			w := serve(setupTranslationRouter(svc), adminRequest(http.MethodPost, "/api/v1/admin/translations/run", tt.body, ""))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w.Body.Bytes()).Error.Code)
		})
	}
}

func TestTranslationHandler_RunFailureKeepsPartialResult(t *testing.T) {
	// Arrange
	svc := new(MockTranslationService)
	partial := &services.TranslationResult{Batches: 2, Processed: 10, Translated: 9, Errors: 1, PerListingErrors: []services.ItemError{}}
	svc.On("RunUntilDone", mock.Anything, services.TranslationRequest{}, 5).
		Return(partial, errors.New("failed to load translation candidates: connection reset"))

	// Act
	w := serve(setupTranslationRouter(svc), adminRequest(http.MethodPost, "/api/v1/admin/translations/run", `{"maxBatches":5}`, ""))

	// Assert
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	response := decodeError(t, w.Body.Bytes())
	assert.Equal(t, apierrors.ErrInternalServer, response.Error.Code)
	got, ok := response.Error.Details["partial"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), got["batches"])
	assert.Equal(t, float64(9), got["translated"])
	assert.Equal(t, false, got["success"])
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func ids(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ","
		}
		out += "1"
	}
	return out
}

func TestTranslationHandler_Log(t *testing.T) {
	svc := new(MockTranslationService)
	svc.On("RecentLog", mock.Anything, 0).Return([]models.TranslationLogEntry{{ListingID: 1, Status: models.TranslationStatusSuccess}}, nil)
	svc.On("RecentLog", mock.Anything, 20).Return([]models.TranslationLogEntry{}, nil)
	router := setupTranslationRouter(svc)

	w := serve(router, adminRequest(http.MethodGet, "/api/v1/admin/translations/log", "", ""))
	require.Equal(t, http.StatusOK, w.Code)
	var response TranslationLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)

	w = serve(router, adminRequest(http.MethodGet, "/api/v1/admin/translations/log?limit=20", "", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, adminRequest(http.MethodGet, "/api/v1/admin/translations/log?limit=-1", "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
