package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
)

const (
	providerNameGrok     = "grok"
	providerNameDeepSeek = "deepseek"

	grokBaseURL     = "https://api.x.ai/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"

	compatibleTimeout = 300 * time.Second
)

// CompatibleProvider talks to OpenAI-compatible chat completion endpoints
// (xAI Grok, DeepSeek) through go-openai with a base URL override.
type CompatibleProvider struct {
	name   string
	client *goopenai.Client
}

// NewCompatibleProvider creates a provider for an OpenAI-compatible endpoint.
func NewCompatibleProvider(name, apiKey, baseURL string) *CompatibleProvider {
	config := goopenai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	config.HTTPClient = &http.Client{Timeout: compatibleTimeout}

	return &CompatibleProvider{
		name:   name,
		client: goopenai.NewClientWithConfig(config),
	}
}

// NewGrokProvider creates a provider for xAI Grok.
func NewGrokProvider(apiKey string) *CompatibleProvider {
	return NewCompatibleProvider(providerNameGrok, apiKey, grokBaseURL)
}

// NewDeepSeekProvider creates a provider for DeepSeek.
func NewDeepSeekProvider(apiKey string) *CompatibleProvider {
	return NewCompatibleProvider(providerNameDeepSeek, apiKey, deepSeekBaseURL)
}

// Name returns the provider name
func (p *CompatibleProvider) Name() string {
	return p.name
}

// Generate implements non-streaming generation
func (p *CompatibleProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, p.name+".generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", p.name)

	chatRequest, err := p.buildRequest(request)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	span := transaction.StartChild(p.name + ".api_call")
	resp, err := p.client.CreateChatCompletion(transaction.Context(), chatRequest)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s returned an empty response", p.name)
	}

	textOutput := StripCodeFences(resp.Choices[0].Message.Content)
	usage := Usage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		TotalTokens:  int64(resp.Usage.TotalTokens),
	}

	logger.Debug("Chat completion finished", logger.Fields{
		"provider":    p.name,
		"model":       request.Model,
		"duration_ms": time.Since(startTime).Milliseconds(),
		"preview":     truncate(textOutput, maxOutputTrunc),
	})

	transaction.SetTag("success", "true")
	return &GenerationResponse{RawOutput: textOutput, Usage: usage}, nil
}

// GenerateStream implements streaming generation
func (p *CompatibleProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, p.name+".generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", p.name)
	transaction.SetTag("streaming", "true")

	chatRequest, err := p.buildRequest(request)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}
	chatRequest.Stream = true
	chatRequest.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		return nil, err
	}

	stream, err := p.client.CreateChatCompletionStream(transaction.Context(), chatRequest)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s stream failed: %w", p.name, err)
	}
	defer stream.Close()

	var accumulated strings.Builder
	var usage Usage

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("%s stream error: %w", p.name, err)
		}

		if chunk.Usage != nil {
			usage = Usage{
				InputTokens:  int64(chunk.Usage.PromptTokens),
				OutputTokens: int64(chunk.Usage.CompletionTokens),
				TotalTokens:  int64(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		accumulated.WriteString(delta)
		if err := emit(callback, StreamEvent{
			Type:    EventTextDelta,
			Message: delta,
			Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
		}); err != nil {
			transaction.SetTag("success", "false")
			return nil, err
		}
	}

	logger.Debug("Chat completion stream finished", logger.Fields{
		"provider":    p.name,
		"model":       request.Model,
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
	return &GenerationResponse{RawOutput: StripCodeFences(accumulated.String()), Usage: usage}, nil
}

func (p *CompatibleProvider) buildRequest(request *GenerationRequest) (goopenai.ChatCompletionRequest, error) {
	// json_object mode needs the schema spelled out in the prompt.
	system, err := schemaSystemPrompt(request)
	if err != nil {
		return goopenai.ChatCompletionRequest{}, err
	}

	var messages []goopenai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, content := range inputText(request.InputArray) {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: content,
		})
	}

	chatRequest := goopenai.ChatCompletionRequest{
		Model:     request.Model,
		Messages:  messages,
		MaxTokens: request.MaxTokens,
	}
	if request.Temperature != nil {
		chatRequest.Temperature = float32(*request.Temperature)
	}
	if request.OutputSchema != nil {
		chatRequest.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatRequest, nil
}
