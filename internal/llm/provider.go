package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers
// All providers MUST support structured output (JSON Schema) for reliable response parsing
type Provider interface {
	// Generate runs one structured-output call and returns the raw JSON text.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// GenerateStream runs a streaming call and reports every text delta to callback.
	// A non-nil error from callback stops reading and is returned as is.
	GenerateStream(ctx context.Context, request *GenerationRequest, callback StreamCallback) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "google")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model        string
	InputArray   []map[string]any
	SystemPrompt string
	// Structured output schema - REQUIRED for reliable JSON parsing
	OutputSchema *OutputSchema
	Temperature  *float64
	MaxTokens    int
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is provider-neutral token accounting.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// AsMap returns usage in the shape logger.LogGenerationRequest expects.
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Raw JSON text output
	Usage     Usage  `json:"usage"`
}

// StreamCallback is called for each streaming event
type StreamCallback func(event StreamEvent) error

// Stream event types
const (
	EventStarted   = "started"
	EventTextDelta = "text_delta"
	EventCompleted = "completed"
)

// StreamEvent represents one event during streaming
type StreamEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// UserInput builds the single-message input array used by every pipeline.
func UserInput(prompt string) []map[string]any {
	return []map[string]any{
		{"role": userRole, "content": prompt},
	}
}

// emit forwards an event when a callback is set.
func emit(callback StreamCallback, event StreamEvent) error {
	if callback == nil {
		return nil
	}
	return callback(event)
}

// StripCodeFences removes a surrounding ```json fence some models add.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// inputText flattens the input array into role-tagged text for providers
// without a native message list.
func inputText(inputArray []map[string]any) []string {
	var parts []string
	for _, item := range inputArray {
		content, ok := item["content"].(string)
		if !ok || content == "" {
			continue
		}
		parts = append(parts, content)
	}
	return parts
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
