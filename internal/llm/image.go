package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"google.golang.org/genai"
)

// ErrNoImage is returned when the model answered without any image part.
var ErrNoImage = errors.New("model returned no image data")

// Image is one generated picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator renders a prompt into an image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string) (*Image, error)
}

// GeminiImageGenerator generates images with Gemini image models.
type GeminiImageGenerator struct {
	client *genai.Client
}

// NewGeminiImageGenerator creates an image generator for the given key.
func NewGeminiImageGenerator(ctx context.Context, apiKey string) (*GeminiImageGenerator, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &GeminiImageGenerator{client: client}, nil
}

// GenerateImage returns the first inline image part of the response.
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, model, prompt string) (*Image, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.generate_image")
	defer transaction.Finish()
	transaction.SetTag("model", model)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	contents := []*genai.Content{
		{Role: geminiUserRole, Parts: []*genai.Part{{Text: prompt}}},
	}

	result, err := g.client.Models.GenerateContent(transaction.Context(), model, contents, config)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini image request failed: %w", err)
	}

	image := firstInlineImage(result)
	if image == nil {
		transaction.SetTag("success", "false")
		return nil, ErrNoImage
	}

	logger.Debug("Gemini image generated", logger.Fields{
		"model":       model,
		"bytes":       len(image.Data),
		"mime_type":   image.MIMEType,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	transaction.SetTag("success", "true")
	return image, nil
}

func firstInlineImage(result *genai.GenerateContentResponse) *Image {
	if result == nil {
		return nil
	}
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return &Image{Data: part.InlineData.Data, MIMEType: mimeType}
		}
	}
	return nil
}
