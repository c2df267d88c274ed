package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_BuildParams(t *testing.T) {
	provider := NewAnthropicProvider("test-key")
	assert.Equal(t, "anthropic", provider.Name())

	temperature := 1.5
	params, err := provider.buildParams(&GenerationRequest{
		Model:        "claude-3-5-haiku-latest",
		SystemPrompt: "system",
		InputArray:   UserInput("hello"),
		Temperature:  &temperature,
		OutputSchema: &OutputSchema{Name: "x", Schema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)

	assert.Equal(t, anthropic.Model("claude-3-5-haiku-latest"), params.Model)
	assert.Equal(t, int64(defaultAnthropicMaxToks), params.MaxTokens)
	assert.Equal(t, 1.0, params.Temperature.Value, "clamped to the Claude range")
	require.Len(t, params.System, 1)
	assert.Contains(t, params.System[0].Text, "system")
	assert.Contains(t, params.System[0].Text, `{"type":"object"}`)
	assert.Len(t, params.Messages, 1)
}

func TestSchemaSystemPrompt(t *testing.T) {
	prompt, err := schemaSystemPrompt(&GenerationRequest{SystemPrompt: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", prompt)

	prompt, err = schemaSystemPrompt(&GenerationRequest{
		OutputSchema: &OutputSchema{Schema: map[string]any{"required": []string{"topic"}}},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "JSON Schema")
	assert.Contains(t, prompt, `"topic"`)
}

func TestCompatibleProvider_BuildRequest(t *testing.T) {
	tests := []struct {
		name     string
		provider *CompatibleProvider
	}{
		{"grok", NewGrokProvider("k")},
		{"deepseek", NewDeepSeekProvider("k")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.provider.Name())

			temperature := 0.3
			req, err := tt.provider.buildRequest(&GenerationRequest{
				Model:        "m",
				SystemPrompt: "sys",
				InputArray:   UserInput("user text"),
				Temperature:  &temperature,
				MaxTokens:    900,
				OutputSchema: &OutputSchema{Schema: map[string]any{"type": "object"}},
			})
			require.NoError(t, err)

			require.Len(t, req.Messages, 2)
			assert.Equal(t, goopenai.ChatMessageRoleSystem, req.Messages[0].Role)
			assert.Equal(t, "user text", req.Messages[1].Content)
			assert.Equal(t, float32(0.3), req.Temperature)
			assert.Equal(t, 900, req.MaxTokens)
			require.NotNil(t, req.ResponseFormat)
			assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
		})
	}
}
