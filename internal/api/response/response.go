// Package response writes the JSON envelopes shared by handlers and middleware.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
)

// Context keys
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

const internalErrorMessage = "Internal server error"

// Envelope wraps every successful JSON body.
type Envelope struct {
	Data      any    `json:"data"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope wraps every error body.
type ErrorEnvelope struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// RequestID returns the correlation id set by the request tracking middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Now formats the envelope timestamp.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// OK writes data with status 200.
func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, data)
}

// JSON writes data in the success envelope.
func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Data: data, RequestID: RequestID(c), Timestamp: Now()})
}

// Error writes err in the error envelope with the status of its kind.
// Errors outside the taxonomy are reported as a generic 500.
func Error(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	fields := logger.WithContext(c)
	fields["status_code"] = status

	body := ErrorEnvelope{
		Error:     Message(err),
		RequestID: RequestID(c),
		Timestamp: Now(),
	}
	if appErr, ok := apperrors.As(err); ok {
		body.Code = string(appErr.Kind)
		body.Details = appErr.Details()
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		logger.Warn("Request rejected", fields)
	}

	c.JSON(status, body)
}

// Message is the client-facing text of err. Internal and unclassified errors
// are not disclosed.
func Message(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindInternal {
		return internalErrorMessage
	}
	return appErr.Error()
}

// Abort writes err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
