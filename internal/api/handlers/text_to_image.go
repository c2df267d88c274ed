package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/texttoimage"
)

const defaultImageMIMEType = "image/png"

// TextToImageHandler serves the principle breakdown and infographic endpoints.
type TextToImageHandler struct {
	principles *texttoimage.PrincipleGenerator
	images     *texttoimage.ImageService
}

func NewTextToImageHandler(principles *texttoimage.PrincipleGenerator, images *texttoimage.ImageService) *TextToImageHandler {
	return &TextToImageHandler{principles: principles, images: images}
}

// Principle handles POST /text-to-image/principle.
func (h *TextToImageHandler) Principle(c *gin.Context) {
	h.principle(c, streamQuery(c))
}

// PrincipleStream handles POST /text-to-image/principle/stream.
func (h *TextToImageHandler) PrincipleStream(c *gin.Context) {
	h.principle(c, true)
}

func (h *TextToImageHandler) principle(c *gin.Context, stream bool) {
	var in texttoimage.PrincipleInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}

	req, err := texttoimage.ParsePrincipleInput(in, stream)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.principles.Generate(c.Request.Context(), req)
	writeResult[texttoimage.Principle](c, result, err)
}

// GenerateImage handles POST /text-to-image/generate and answers with the raw image.
func (h *TextToImageHandler) GenerateImage(c *gin.Context) {
	var in texttoimage.ImageInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}

	req, err := texttoimage.ParseImageInput(in)
	if err != nil {
		response.Error(c, err)
		return
	}

	image, err := h.images.GenerateImage(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	mimeType := image.MIMEType
	if mimeType == "" {
		mimeType = defaultImageMIMEType
	}

	fields := logger.WithContext(c)
	fields["bytes"] = len(image.Data)
	logger.Debug("Sending image", fields)

	c.Header(response.RequestIDHeader, response.RequestID(c))
	c.Data(http.StatusOK, mimeType, image.Data)
}
