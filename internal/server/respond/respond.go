// Package respond writes the HTTP API's JSON bodies.
package respond

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes shared by handlers.
const (
	CodeBadRequest    = "bad_request"
	CodeNotMeaningful = "not_meaningful"
	CodeNotFound      = "not_found"
	CodeNotUnderstood = "not_understood"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with a standardized error response.
func Error(c *gin.Context, status int, code, message string, details any) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request.Context(), level, "http error",
		"status", status,
		"code", code,
		"message", message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", c.GetString("requestId"),
	)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
