package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/Smartconnectcrm/smartconnect-website/errors"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler renders the last error pushed with c.Error. Application errors
// keep their message and status; anything else becomes a generic 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err
		response := ErrorResponse{TraceID: traceID(c)}

		var appError *apperrors.AppError
		if errors.As(err, &appError) {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			response.Error = appError.Message
			// Only include details for validation and not-found errors in debug mode
			if appError.Detail != "" && gin.IsDebugging() &&
				(appError.Type == apperrors.ValidationError || appError.Type == apperrors.NotFoundError) {
				response.Details = appError.Detail
			}
			if appError.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(appError.RetryAfter))
			}

			c.JSON(statusCode, response)
			return
		}

		// Handle Gin binding errors
		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			response.Error = "Invalid request body"
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
		response.Error = "Internal Server Error"
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, response)
	}
}

// traceID prefers the submission trace id and falls back to the request id.
func traceID(c *gin.Context) string {
	if id := c.GetString(TraceIDKey); id != "" {
		return id
	}
	return c.GetString(RequestIDKey)
}
