package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/catalogsync/internal/logger"
)

func init() {
	// Set Gin to test mode to reduce noise in tests
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("keeps upstream request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "upstream-123")

		w := serve(router, req)

		assert.Equal(t, "upstream-123", w.Body.String())
	})

	t.Run("empty without middleware", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(&gin.Context{}))
	})
}

func TestCORS(t *testing.T) {
	origins := []string{"http://localhost:3000"}
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")

		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.test")

		w := serve(router, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)

		w := serve(router, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), Logger(logger.NewWithWriter("production", &buf)))
	router.GET("/listings/:id", func(c *gin.Context) {
		require.NotNil(t, GetLogger(c))
		c.Status(http.StatusNotFound)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/listings/7", nil))

	out := buf.String()
	assert.Contains(t, out, "Request completed with client error")
	assert.Contains(t, out, `"path":"/listings/:id"`)
	assert.Contains(t, out, `"status":404`)
	assert.Nil(t, GetLogger(&gin.Context{}))
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(logger.Nop()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/normal", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.Contains(t, w.Body.String(), "request_id")

	w = serve(router, httptest.NewRequest(http.MethodGet, "/normal", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		header       string
		operator     string
		wantStatus   int
		wantOperator string
	}{
		{name: "valid token uses header operator", token: "s3cret", header: "Bearer s3cret", operator: "ana", wantStatus: http.StatusOK, wantOperator: "ana"},
		{name: "valid token falls back to default operator", token: "s3cret", header: "Bearer s3cret", wantStatus: http.StatusOK, wantOperator: "admin"},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing bearer prefix", token: "s3cret", header: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "no header", token: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "admin disabled", token: "", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			router := gin.New()
			router.Use(RequestID(), AdminAuth(tt.token, "admin"))
			router.GET("/admin", func(c *gin.Context) {
				c.String(http.StatusOK, GetOperator(c))
			})
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.operator != "" {
				req.Header.Set(OperatorHeader, tt.operator)
			}

			// Act
			w := serve(router, req)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantOperator, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

type countingLimiter struct {
	allow  int
	calls  int
	action string
	ip     string
}

func (l *countingLimiter) Check(ctx context.Context, action, identity string, limit int, window time.Duration) bool {
	l.calls++
	l.action = action
	l.ip = identity
	return l.calls <= l.allow
}

func TestRateLimit(t *testing.T) {
	// Arrange
	limiter := &countingLimiter{allow: 1}
	router := gin.New()
	router.Use(RequestID())
	router.POST("/leads", RateLimit(limiter, "submit_lead", 1, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	// Act
	first := serve(router, httptest.NewRequest(http.MethodPost, "/leads", nil))
	second := serve(router, httptest.NewRequest(http.MethodPost, "/leads", nil))

	// Assert
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "3600", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "TOO_MANY_REQUESTS")
	assert.Equal(t, "submit_lead", limiter.action)
	assert.Equal(t, "192.0.2.1", limiter.ip)
}
