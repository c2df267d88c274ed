package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an app error, got %v", err)
	require.Equal(t, apperrors.KindValidation, appErr.Kind)
	fields := make(map[string]string, len(appErr.Fields))
	for _, f := range appErr.Fields {
		fields[f.Field] = f.Reason
	}
	return fields
}

func TestParseOutlineDefaults(t *testing.T) {
	req, err := ParseOutline(OutlineInput{Content: strPtr("  Python basics ")})
	require.NoError(t, err)

	assert.Equal(t, "Python basics", req.Topic)
	assert.Equal(t, LevelIntermediate, req.Level)
	assert.Equal(t, DefaultDepth, req.Depth)
	assert.Equal(t, LanguageZH, req.Language)
	assert.Equal(t, DefaultTargetAudience, req.TargetAudience)
	assert.Equal(t, DefaultEstimatedDuration, req.EstimatedDuration)
	assert.True(t, req.IncludeExamples)
	assert.False(t, req.Stream)
	assert.Equal(t, llm.DefaultProvider, req.Provider.Provider)
	assert.Equal(t, llm.DefaultTemperature, req.Provider.Temperature)
	assert.Equal(t, llm.DefaultMaxTokens, req.Provider.MaxTokens)
}

func TestParseOutlineAliases(t *testing.T) {
	req, err := ParseOutline(OutlineInput{
		Topic: strPtr("Go"),
		Level: strPtr("advanced"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Go", req.Topic)
	assert.Equal(t, LevelAdvanced, req.Level)

	req, err = ParseOutline(OutlineInput{
		Content:         strPtr("Rust"),
		Topic:           strPtr("ignored"),
		DifficultyLevel: strPtr("beginner"),
		Level:           strPtr("advanced"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rust", req.Topic)
	assert.Equal(t, LevelBeginner, req.Level)
}

func TestParseOutlineRejects(t *testing.T) {
	tests := []struct {
		name  string
		input OutlineInput
		field string
	}{
		{"missing content", OutlineInput{}, "content"},
		{"depth zero", OutlineInput{Content: strPtr("x"), Depth: intPtr(0)}, "depth"},
		{"depth too large", OutlineInput{Content: strPtr("x"), Depth: intPtr(11)}, "depth"},
		{"unknown level", OutlineInput{Content: strPtr("x"), Level: strPtr("expert")}, "difficultyLevel"},
		{"unknown language", OutlineInput{Content: strPtr("x"), Language: strPtr("fr")}, "language"},
		{"max tokens zero", OutlineInput{
			Content:        strPtr("x"),
			ProviderConfig: &ProviderConfigInput{MaxTokens: intPtr(0)},
		}, "providerConfig.maxTokens"},
		{"temperature out of range", OutlineInput{
			Content:        strPtr("x"),
			ProviderConfig: &ProviderConfigInput{Temperature: func() *float64 { v := 2.5; return &v }()},
		}, "providerConfig.temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutline(tt.input)
			require.Error(t, err)
			assert.Contains(t, validationFields(t, err), tt.field)
		})
	}
}

func TestParseQuestionsDefaults(t *testing.T) {
	req, err := ParseQuestions(QuestionInput{Content: strPtr("closures")})
	require.NoError(t, err)

	assert.Equal(t, DefaultQuestionCount, req.Count)
	assert.Equal(t, DifficultyMixed, req.Difficulty)
	assert.Equal(t, LanguageZH, req.Language)
	assert.Equal(t, DefaultQuestionTypes, req.QuestionTypes)
	assert.Empty(t, req.OutlineID)
}

func TestParseQuestionsBounds(t *testing.T) {
	tests := []struct {
		name  string
		count int
		ok    bool
	}{
		{"zero", 0, false},
		{"one", 1, true},
		{"fifty", 50, true},
		{"fifty one", 51, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestions(QuestionInput{Content: strPtr("x"), Count: intPtr(tt.count)})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, validationFields(t, err), "count")
		})
	}
}

func TestParseQuestionsRejectsUnknownType(t *testing.T) {
	_, err := ParseQuestions(QuestionInput{
		Content:       strPtr("x"),
		QuestionTypes: []string{"single_choice", "riddle"},
		Difficulty:    strPtr("impossible"),
	})
	require.Error(t, err)

	fields := validationFields(t, err)
	assert.Contains(t, fields, "questionTypes[1]")
	assert.Contains(t, fields, "difficulty")
}

func TestProviderSelectionLLM(t *testing.T) {
	sel := ParseProviderConfig(&ProviderConfigInput{
		Provider:  strPtr(" Anthropic "),
		Model:     strPtr("claude-3-5-sonnet-latest"),
		APIKey:    strPtr("sk-ant"),
		MaxTokens: intPtr(512),
	}).LLM()

	assert.Equal(t, "anthropic", sel.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", sel.Model)
	assert.Equal(t, "sk-ant", sel.APIKey)
	assert.Equal(t, 512, sel.MaxTokens)
	require.NotNil(t, sel.Temperature)
	assert.Equal(t, llm.DefaultTemperature, *sel.Temperature)
}
