package texttoimage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"github.com/wd-ai-tools/ai-gateway/internal/metrics"
	"github.com/wd-ai-tools/ai-gateway/internal/prompt"
	"github.com/wd-ai-tools/ai-gateway/internal/validation"
)

const imagePipeline = "image"

// ImageInput is the body of POST /text-to-image/generate.
type ImageInput struct {
	Topic *string `json:"topic"`
	Style *string `json:"style"`
}

// ImageRequest is a validated image request.
type ImageRequest struct {
	Topic string `json:"topic" validate:"required"`
	Style string `json:"style"`
}

// ParseImageInput validates in.
func ParseImageInput(in ImageInput) (ImageRequest, error) {
	var req ImageRequest
	if in.Topic != nil {
		req.Topic = strings.TrimSpace(*in.Topic)
	}
	if in.Style != nil {
		req.Style = strings.TrimSpace(*in.Style)
	}
	if err := validation.Struct(req); err != nil {
		return ImageRequest{}, err
	}
	return req, nil
}

type imagePromptData struct {
	Topic string
}

// BuildImagePrompt renders the infographic prompt. A non-empty style is
// appended as a style note.
func BuildImagePrompt(topic, style string) (string, error) {
	text, err := prompt.Render(prompt.Image, imagePromptData{Topic: topic})
	if err != nil {
		return "", err
	}
	if style != "" {
		text += "\n\nStyle note: " + style
	}
	return text, nil
}

// ImageService renders infographics.
type ImageService struct {
	images llm.ImageGenerator
	model  string
}

// NewImageService creates the service. A nil generator means no Google key is
// configured and every call fails with a ProviderError.
func NewImageService(images llm.ImageGenerator, model string) *ImageService {
	return &ImageService{images: images, model: model}
}

// Model returns the image model id.
func (s *ImageService) Model() string {
	return s.model
}

// GenerateImage renders the infographic for req.
func (s *ImageService) GenerateImage(ctx context.Context, req ImageRequest) (*llm.Image, error) {
	if s.images == nil {
		envKey := config.ProviderEnvKeys[config.ProviderGoogle]
		return nil, apperrors.NewProvider(config.ProviderGoogle, "no API key configured (set "+envKey+")", nil)
	}

	text, err := BuildImagePrompt(req.Topic, req.Style)
	if err != nil {
		return nil, apperrors.NewInternal("failed to build prompt", err)
	}

	start := time.Now()
	image, err := s.images.GenerateImage(ctx, s.model, text)
	duration := time.Since(start)
	metrics.ObserveGeneration(imagePipeline, config.ProviderGoogle, "batch", duration, err == nil)

	if err != nil {
		if errors.Is(err, llm.ErrNoImage) {
			return nil, apperrors.NewGeneration("model returned no image", err)
		}
		return nil, apperrors.NewGeneration("image generation failed", err)
	}
	if len(image.Data) == 0 {
		return nil, apperrors.NewGeneration("model returned no image", llm.ErrNoImage)
	}

	logger.Info("Image generated", logger.Fields{
		"model":       s.model,
		"topic":       req.Topic,
		"bytes":       len(image.Data),
		"duration_ms": duration.Milliseconds(),
	})
	return image, nil
}
