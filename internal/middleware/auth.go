package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// OperatorKey is the context key for the authenticated operator name.
	OperatorKey = "operator"
	// OperatorHeader names the operator acting with the shared admin token.
	OperatorHeader = "X-Operator"
)

// AdminAuth requires "Authorization: Bearer <token>". The operator identity is
// taken from X-Operator, falling back to defaultOperator. An empty token
// disables the admin surface entirely.
func AdminAuth(token, defaultOperator string) gin.HandlerFunc {
	expected := []byte(token)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), expected) != 1 {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "A valid admin token is required")
			return
		}

		operator := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if operator == "" {
			operator = strings.TrimSpace(defaultOperator)
		}
		c.Set(OperatorKey, operator)

		if log := GetLogger(c); log != nil && operator != "" {
			c.Set(LoggerKey, log.With(map[string]interface{}{"operator": operator}))
		}

		c.Next()
	}
}

// GetOperator returns the operator set by AdminAuth, or "".
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}
