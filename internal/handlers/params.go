package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/catalogsync/internal/errors"
)

// listingID parses the :id path parameter. It writes a 400 and returns false
// when the id is not a positive integer.
func listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Invalid listing id", map[string]interface{}{"id": c.Param("id")})
		return 0, false
	}
	return id, true
}

// queryLimit parses the optional ?limit= parameter. Absent means 0. It writes
// a 400 and returns false when the value is not a positive integer.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		apierrors.BadRequest(c, "limit must be a positive integer", map[string]interface{}{"limit": raw})
		return 0, false
	}
	return n, true
}

// bindJSON binds the request body, writing the matching 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return false
	}
	return true
}
