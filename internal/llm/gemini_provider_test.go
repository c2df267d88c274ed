package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_Name(t *testing.T) {
	// No client needed for the name
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "google", provider.Name())
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	tests := []struct {
		name       string
		inputArray []map[string]any
		wantLen    int
	}{
		{
			name:       "single user message",
			inputArray: UserInput("test content"),
			wantLen:    1,
		},
		{
			name: "developer role converted to user",
			inputArray: []map[string]any{
				{"role": "developer", "content": "system message"},
			},
			wantLen: 1,
		},
		{
			name: "invalid message skipped",
			inputArray: []map[string]any{
				{"role": "user"},
				{"content": "no role"},
			},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := provider.buildGeminiContents(tt.inputArray)
			assert.Len(t, contents, tt.wantLen)
			for _, c := range contents {
				assert.Equal(t, "user", c.Role)
			}
		})
	}
}

func TestGeminiProvider_BuildConfig(t *testing.T) {
	provider := &GeminiProvider{client: nil}
	temperature := 0.5

	config := provider.buildConfig(&GenerationRequest{
		SystemPrompt: "be brief",
		Temperature:  &temperature,
		MaxTokens:    100,
		OutputSchema: &OutputSchema{Name: "x", Schema: map[string]any{"type": "object"}},
	})

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "be brief", config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, float32(0.5), *config.Temperature)
	assert.Equal(t, int32(100), config.MaxOutputTokens)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.Equal(t, genai.TypeObject, config.ResponseSchema.Type)
}

func TestToGeminiSchema(t *testing.T) {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":      map[string]any{"type": "string", "enum": []any{"fill", "essay"}},
						"isCorrect": map[string]any{"type": "boolean"},
						"score":     map[string]any{"type": "number", "minimum": 0.0, "maximum": 10},
					},
				},
			},
		},
	}

	out := toGeminiSchema(schema)
	require.NotNil(t, out)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"questions"}, out.Required)

	questions := out.Properties["questions"]
	require.NotNil(t, questions)
	assert.Equal(t, genai.TypeArray, questions.Type)
	require.NotNil(t, questions.MinItems)
	assert.Equal(t, int64(1), *questions.MinItems)

	item := questions.Items
	require.NotNil(t, item)
	assert.Equal(t, []string{"fill", "essay"}, item.Properties["type"].Enum)
	assert.Equal(t, genai.TypeBoolean, item.Properties["isCorrect"].Type)
	assert.Equal(t, 10.0, *item.Properties["score"].Maximum)

	assert.Nil(t, toGeminiSchema(nil))
}

func TestFirstInlineImage(t *testing.T) {
	result := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{Data: []byte{0x89, 'P', 'N', 'G'}}},
			}},
		}},
	}

	image := firstInlineImage(result)
	require.NotNil(t, image)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Len(t, image.Data, 4)

	assert.Nil(t, firstInlineImage(&genai.GenerateContentResponse{}))
	assert.Equal(t, "here you go", responseText(result))
}
