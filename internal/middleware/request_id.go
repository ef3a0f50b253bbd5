package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the context key for the request ID
	RequestIDKey = "request_id"
	// RequestIDHeader is the HTTP header name for the request ID
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags each request with an id, reusing the one a proxy already set.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Keep an id set upstream, otherwise mint one
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Expose it to later handlers and echo it back
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID, or "" when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// abortWithError writes the same error envelope as the errors package.
// Middleware cannot import that package without a cycle.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
