package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/wd-ai-tools/ai-gateway/internal/logger"
)

const (
	// Role constants
	userRole      = "user"
	developerRole = "developer"
	systemRole    = "system"

	maxOutputTrunc = 200

	// Provider name
	providerNameOpenAI = "openai"

	// Logging limits
	maxLogEventCountOpenAI = 5
)

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate implements non-streaming generation using OpenAI's Responses API
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	logger.Debug("OpenAI generation started", logger.Fields{"model": request.Model})

	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := p.buildRequestParams(request)

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Responses.New(transaction.Context(), params)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	textOutput := StripCodeFences(resp.OutputText())
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any output text")
	}

	usage := Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}

	logger.Debug("OpenAI generation completed", logger.Fields{
		"model":         request.Model,
		"duration_ms":   time.Since(startTime).Milliseconds(),
		"output_length": len(textOutput),
		"total_tokens":  usage.TotalTokens,
	})

	transaction.SetTag("success", "true")
	return &GenerationResponse{RawOutput: textOutput, Usage: usage}, nil
}

// buildRequestParams converts a GenerationRequest to Responses API parameters
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := make(responses.ResponseInputParam, 0, len(request.InputArray))
	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			logger.Warn("Skipping invalid input item", logger.Fields{"item": fmt.Sprintf("%v", item)})
			continue
		}

		var roleEnum responses.EasyInputMessageRole
		switch role {
		case developerRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		case systemRole:
			roleEnum = responses.EasyInputMessageRoleSystem
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems, responses.ResponseInputItemParamOfMessage(content, roleEnum))
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
	}

	if request.SystemPrompt != "" {
		params.Instructions = openai.String(request.SystemPrompt)
	}
	if request.Temperature != nil {
		params.Temperature = openai.Float(*request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(request.MaxTokens))
	}

	if request.OutputSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				request.OutputSchema.Name,
				request.OutputSchema.Schema,
			),
		}
	}

	return params
}

// GenerateStream implements streaming generation using OpenAI's Responses API
// It streams text chunks as they arrive from the LLM and calls the callback for each chunk
func (p *OpenAIProvider) GenerateStream(
	ctx context.Context,
	request *GenerationRequest,
	callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "openai.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("streaming", "true")

	params := p.buildRequestParams(request)

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		return nil, err
	}

	span := transaction.StartChild("openai.api_stream")
	defer span.Finish()
	stream := p.client.Responses.NewStreaming(transaction.Context(), params)
	defer stream.Close()

	var accumulated strings.Builder
	var finalResponse *responses.Response
	eventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventCount++

		if eventCount <= maxLogEventCountOpenAI {
			logger.Debug("OpenAI stream event", logger.Fields{"index": eventCount, "type": event.Type})
		}

		switch event.Type {
		case "response.output_text.delta":
			delta := event.AsResponseOutputTextDelta().Delta
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

		case "response.completed":
			completed := event.AsResponseCompleted()
			finalResponse = &completed.Response

		case "response.failed":
			failed := event.AsResponseFailed()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("streaming failed: %s", failed.Response.Error.Message)

		case "error":
			errorEvent := event.AsError()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("stream error: %s", errorEvent.Message)
		}
	}

	if err := stream.Err(); err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("stream error: %w", err)
	}

	response := &GenerationResponse{RawOutput: StripCodeFences(accumulated.String())}
	if finalResponse != nil {
		response.Usage = Usage{
			InputTokens:  finalResponse.Usage.InputTokens,
			OutputTokens: finalResponse.Usage.OutputTokens,
			TotalTokens:  finalResponse.Usage.TotalTokens,
		}
	}

	logger.Debug("OpenAI streaming completed", logger.Fields{
		"model":        request.Model,
		"events":       eventCount,
		"chars":        accumulated.Len(),
		"duration_ms":  time.Since(startTime).Milliseconds(),
		"total_tokens": response.Usage.TotalTokens,
	})

	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data:    map[string]interface{}{"total_length": accumulated.Len(), "event_count": eventCount},
	}); err != nil {
		return nil, err
	}

	transaction.SetTag("success", "true")
	return response, nil
}
