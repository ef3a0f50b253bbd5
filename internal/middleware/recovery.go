package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/catalogsync/internal/logger"
)

// Recovery turns a handler panic into a 500 response and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				// Prefer the request-scoped logger so the panic carries its fields
				requestLogger := GetLogger(c)
				if requestLogger == nil {
					requestLogger = log
				}

				requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", recovered), map[string]interface{}{
					"request_id": GetRequestID(c),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				})

				// Respond with the standard envelope and stop the chain
				abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred")
			}
		}()

		c.Next()
	}
}
