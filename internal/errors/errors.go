package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/catalogsync/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrUpstream           = "UPSTREAM_ERROR"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// respond logs at warn level (error level when err is set) and writes the JSON body.
func respond(c *gin.Context, status int, code, message string, details map[string]interface{}, err error) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	if log != nil {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		}
		if details != nil {
			fields["details"] = details
		}
		if err != nil {
			log.Error("Request failed", err, fields)
		} else {
			log.Warn("Request rejected", fields)
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrNotFound, message, nil, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details, nil)
}

// Unauthorized returns a 401 response for requests without a valid operator token.
func Unauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, ErrUnauthorized, message, nil, nil)
}

// TooManyRequests returns a 429 response.
func TooManyRequests(c *gin.Context, message string) {
	respond(c, http.StatusTooManyRequests, ErrTooManyRequests, message, nil, nil)
}

// ServiceUnavailable returns a 503 response for integrations that are not configured.
func ServiceUnavailable(c *gin.Context, message string) {
	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, nil, nil)
}

// BadGateway returns a 502 response when the CRM or the translation provider fails.
// The upstream error is logged but not exposed.
func BadGateway(c *gin.Context, message string, err error) {
	respond(c, http.StatusBadGateway, ErrUpstream, message, nil, err)
}

// BadGatewayWithDetails is BadGateway with a details object, used to return
// the partial result of a run that stopped on an upstream failure.
func BadGatewayWithDetails(c *gin.Context, message string, details map[string]interface{}, err error) {
	respond(c, http.StatusBadGateway, ErrUpstream, message, details, err)
}

// InternalServerError returns a 500 Internal Server Error response.
// The actual error is logged and never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil, err)
}

// InternalServerErrorWithDetails is InternalServerError with a details object.
func InternalServerErrorWithDetails(c *gin.Context, message string, details map[string]interface{}, err error) {
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, details, err)
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details, nil)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gt":
		return "Must be greater than " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "dive":
		return "Contains an invalid element"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
