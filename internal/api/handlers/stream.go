package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/knowledge"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/validation"
)

const ndjsonContentType = "application/x-ndjson; charset=utf-8"

// streamLine is the terminal line written when a stream fails.
type streamLine struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

// bindJSON decodes the request body into dst. An empty body leaves dst
// zero-valued so the request validator reports the missing fields.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return validation.FromBindError(err)
	}
	return nil
}

// streamQuery reports whether ?stream=true was passed.
func streamQuery(c *gin.Context) bool {
	return c.Query("stream") == "true"
}

// writeResult answers with the success envelope for a batch result, or with
// an NDJSON stream of partials.
func writeResult[Out any](c *gin.Context, result knowledge.Result[Out], err error) {
	if err != nil {
		response.Error(c, err)
		return
	}

	switch r := result.(type) {
	case *knowledge.BatchResult[Out]:
		response.OK(c, r.Value)
	case *knowledge.StreamResult[Out]:
		writeNDJSON(c, r)
	default:
		response.Error(c, apperrors.NewInternal("unexpected result type", nil))
	}
}

// writeNDJSON writes each partial as one JSON line and flushes it. A failed
// write ends the iteration, which cancels the upstream call.
func writeNDJSON[Out any](c *gin.Context, stream *knowledge.StreamResult[Out]) {
	c.Header("Content-Type", ndjsonContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(c.Writer)
	fields := logger.WithContext(c)
	chunks := 0

	for partial, err := range stream.All() {
		if err != nil {
			fields["chunks"] = chunks
			logger.Error("Stream failed", err, fields)
			_ = encoder.Encode(streamLine{Error: response.Message(err), RequestID: response.RequestID(c)})
			c.Writer.Flush()
			return
		}

		if err := encoder.Encode(partial); err != nil {
			fields["chunks"] = chunks
			fields["reason"] = err.Error()
			logger.Warn("Stream client went away", fields)
			return
		}
		c.Writer.Flush()
		chunks++
	}

	fields["chunks"] = chunks
	logger.Debug("Stream completed", fields)
}
