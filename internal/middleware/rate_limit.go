package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter reports whether one more attempt of action by identity is allowed.
type Limiter interface {
	Check(ctx context.Context, action, identity string, limit int, window time.Duration) bool
}

// RateLimit rejects requests with 429 once the client IP used up its window.
func RateLimit(limiter Limiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Check(c.Request.Context(), action, c.ClientIP(), limit, window) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			abortWithError(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, try again later")
			return
		}
		c.Next()
	}
}

