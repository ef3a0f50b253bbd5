package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/middleware"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdminToken = "test-token"

// newTestRouter mirrors the server middleware stack. Admin routes go under /admin.
func newTestRouter(register func(public, admin *gin.RouterGroup)) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger.Nop()), middleware.Recovery(logger.Nop()))
	public := router.Group("/api/v1")
	admin := public.Group("/admin", middleware.AdminAuth(testAdminToken, ""))
	register(public, admin)
	return router
}

func adminRequest(method, path, body, operator string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	if operator != "" {
		req.Header.Set(middleware.OperatorHeader, operator)
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// MockSyncService is a mock implementation of services.SyncService for testing
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncAll(ctx context.Context) (*services.SyncResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*services.SyncResult)
	return result, args.Error(1)
}

func (m *MockSyncService) SyncOne(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSyncService) BackfillSourceText(ctx context.Context, limit int) (*services.BackfillResult, error) {
	args := m.Called(ctx, limit)
	result, _ := args.Get(0).(*services.BackfillResult)
	return result, args.Error(1)
}

// MockListingService is a mock implementation of services.ListingService for testing
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) List(ctx context.Context) ([]models.PublishedView, error) {
	args := m.Called(ctx)
	views, _ := args.Get(0).([]models.PublishedView)
	return views, args.Error(1)
}

func (m *MockListingService) Get(ctx context.Context, id int64) (*models.PublishedView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*models.PublishedView)
	return view, args.Error(1)
}

func (m *MockListingService) SetPrice(ctx context.Context, id int64, price float64) (*models.PublishedView, error) {
	args := m.Called(ctx, id, price)
	view, _ := args.Get(0).(*models.PublishedView)
	return view, args.Error(1)
}

func (m *MockListingService) UpdateFeatures(ctx context.Context, features models.PropertyFeatures) (*models.PublishedView, error) {
	args := m.Called(ctx, features)
	view, _ := args.Get(0).(*models.PublishedView)
	return view, args.Error(1)
}

// MockDiscrepancyService is a mock implementation of services.DiscrepancyService for testing
type MockDiscrepancyService struct {
	mock.Mock
}

func (m *MockDiscrepancyService) Detect(ctx context.Context) (*models.DiscrepancyReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*models.DiscrepancyReport)
	return report, args.Error(1)
}

func (m *MockDiscrepancyService) Dismiss(ctx context.Context, operator string, d models.Discrepancy) error {
	return m.Called(ctx, operator, d).Error(0)
}

func (m *MockDiscrepancyService) ExportXLSX(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if data, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, data)
	}
	return args.Error(1)
}

// MockTranslationService is a mock implementation of services.TranslationService for testing
type MockTranslationService struct {
	mock.Mock
}

func (m *MockTranslationService) Run(ctx context.Context, req services.TranslationRequest) (*services.TranslationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*services.TranslationResult)
	return result, args.Error(1)
}

func (m *MockTranslationService) RunUntilDone(ctx context.Context, req services.TranslationRequest, maxBatches int) (*services.TranslationResult, error) {
	args := m.Called(ctx, req, maxBatches)
	result, _ := args.Get(0).(*services.TranslationResult)
	return result, args.Error(1)
}

func (m *MockTranslationService) UpdateTranslation(ctx context.Context, id int64, lang, text string) error {
	return m.Called(ctx, id, lang, text).Error(0)
}

func (m *MockTranslationService) RecentLog(ctx context.Context, limit int) ([]models.TranslationLogEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.TranslationLogEntry)
	return entries, args.Error(1)
}

// MockLeadService is a mock implementation of services.LeadService for testing
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Submit(ctx context.Context, lead *models.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

// stubPinger answers Ping with a fixed error.
type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}
