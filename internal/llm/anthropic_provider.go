package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/getsentry/sentry-go"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
)

const (
	providerNameAnthropic   = "anthropic"
	defaultAnthropicMaxToks = 4096
)

// AnthropicProvider implements the Provider interface using the Messages API.
// Claude has no JSON-schema response format, so the schema is appended to the
// system prompt and the model is asked to answer with the JSON document only.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return providerNameAnthropic
}

// Generate implements non-streaming generation
func (p *AnthropicProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "anthropic.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameAnthropic)

	params, err := p.buildParams(request)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	span := transaction.StartChild("anthropic.api_call")
	message, err := p.client.Messages.New(transaction.Context(), params)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	textOutput := StripCodeFences(messageText(message))
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("anthropic response did not include any output text")
	}

	usage := anthropicUsage(message)
	logger.Debug("Anthropic generation completed", logger.Fields{
		"model":         request.Model,
		"duration_ms":   time.Since(startTime).Milliseconds(),
		"output_length": len(textOutput),
		"total_tokens":  usage.TotalTokens,
	})

	transaction.SetTag("success", "true")
	return &GenerationResponse{RawOutput: textOutput, Usage: usage}, nil
}

// GenerateStream implements streaming generation
func (p *AnthropicProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "anthropic.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameAnthropic)
	transaction.SetTag("streaming", "true")

	params, err := p.buildParams(request)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(transaction.Context(), params)
	defer stream.Close()

	message := anthropic.Message{}
	var accumulated strings.Builder

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("anthropic stream accumulate: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				accumulated.WriteString(delta.Text)
				if err := emit(callback, StreamEvent{
					Type:    EventTextDelta,
					Message: delta.Text,
					Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
				}); err != nil {
					transaction.SetTag("success", "false")
					return nil, err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("anthropic stream error: %w", err)
	}

	response := &GenerationResponse{
		RawOutput: StripCodeFences(accumulated.String()),
		Usage:     anthropicUsage(&message),
	}

	logger.Debug("Anthropic streaming completed", logger.Fields{
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
	return response, nil
}

func (p *AnthropicProvider) buildParams(request *GenerationRequest) (anthropic.MessageNewParams, error) {
	system, err := schemaSystemPrompt(request)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := int64(request.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxToks
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if request.Temperature != nil {
		// Claude accepts temperature in [0, 1].
		params.Temperature = anthropic.Float(min(*request.Temperature, 1))
	}

	for _, content := range inputText(request.InputArray) {
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
	}
	return params, nil
}

// schemaSystemPrompt appends the JSON schema instruction to the system prompt.
func schemaSystemPrompt(request *GenerationRequest) (string, error) {
	if request.OutputSchema == nil {
		return request.SystemPrompt, nil
	}
	schemaJSON, err := json.Marshal(request.OutputSchema.Schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode output schema: %w", err)
	}

	var b strings.Builder
	if request.SystemPrompt != "" {
		b.WriteString(request.SystemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object that conforms to this JSON Schema. ")
	b.WriteString("Output only the JSON, with no markdown fences or commentary.\n")
	b.Write(schemaJSON)
	return b.String(), nil
}

func messageText(message *anthropic.Message) string {
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

func anthropicUsage(message *anthropic.Message) Usage {
	return Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
		TotalTokens:  message.Usage.InputTokens + message.Usage.OutputTokens,
	}
}
