package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "google"
	mimeTypeJSON       = "application/json"
	maxLogEventCount   = 5
	geminiUserRole     = "user"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client}, nil
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Generate implements non-streaming generation using Gemini's API
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	contents := p.buildGeminiContents(request.InputArray)
	config := p.buildConfig(request)

	span := transaction.StartChild("gemini.api_call")
	result, err := p.client.Models.GenerateContent(transaction.Context(), request.Model, contents, config)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	textOutput := StripCodeFences(responseText(result))
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini response did not include any output text")
	}

	usage := geminiUsage(result.UsageMetadata)
	logger.Debug("Gemini generation completed", logger.Fields{
		"model":         request.Model,
		"duration_ms":   time.Since(startTime).Milliseconds(),
		"output_length": len(textOutput),
		"total_tokens":  usage.TotalTokens,
	})

	transaction.SetTag("success", "true")
	return &GenerationResponse{RawOutput: textOutput, Usage: usage}, nil
}

// GenerateStream implements streaming generation for Gemini
func (p *GeminiProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)
	transaction.SetTag("streaming", "true")

	contents := p.buildGeminiContents(request.InputArray)
	config := p.buildConfig(request)

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Generating output..."}); err != nil {
		return nil, err
	}

	var accumulated strings.Builder
	var finalUsage *genai.GenerateContentResponseUsageMetadata
	eventCount := 0

	// Breaking out of the range stops the underlying HTTP stream.
	for chunk, err := range p.client.Models.GenerateContentStream(transaction.Context(), request.Model, contents, config) {
		if err != nil {
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("gemini stream error: %w", err)
		}
		eventCount++

		text := responseText(chunk)
		if text != "" {
			accumulated.WriteString(text)
			if eventCount <= maxLogEventCount {
				logger.Debug("Gemini chunk", logger.Fields{"index": eventCount, "chars": len(text)})
			}
			if err := emit(callback, StreamEvent{
				Type:    EventTextDelta,
				Message: text,
				Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
			}); err != nil {
				transaction.SetTag("success", "false")
				return nil, err
			}
		}

		if chunk.UsageMetadata != nil {
			finalUsage = chunk.UsageMetadata
		}
	}

	response := &GenerationResponse{
		RawOutput: StripCodeFences(accumulated.String()),
		Usage:     geminiUsage(finalUsage),
	}

	logger.Debug("Gemini streaming completed", logger.Fields{
		"model":       request.Model,
		"events":      eventCount,
		"chars":       accumulated.Len(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data:    map[string]interface{}{"total_length": accumulated.Len()},
	}); err != nil {
		return nil, err
	}

	transaction.SetTag("success", "true")
	return response, nil
}

func (p *GeminiProvider) buildConfig(request *GenerationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*request.Temperature))
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.OutputSchema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = toGeminiSchema(request.OutputSchema.Schema)
	}
	return config
}

// buildGeminiContents converts our input array to Gemini Content format
func (p *GeminiProvider) buildGeminiContents(inputArray []map[string]any) []*genai.Content {
	var contents []*genai.Content
	for _, item := range inputArray {
		_, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			logger.Warn("Skipping invalid input item", logger.Fields{"item": fmt.Sprintf("%v", item)})
			continue
		}

		// Gemini only knows "user" and "model"; system text travels in SystemInstruction.
		contents = append(contents, &genai.Content{
			Role:  geminiUserRole,
			Parts: []*genai.Part{{Text: content}},
		})
	}
	return contents
}

// responseText joins the text parts of the first candidate.
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
		TotalTokens:  int64(meta.TotalTokenCount),
	}
}
