package texttoimage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/knowledge"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
)

type mockProvider struct {
	output  string
	request *llm.GenerationRequest
}

func (m *mockProvider) Name() string { return "openai" }

func (m *mockProvider) Generate(_ context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	m.request = request
	return &llm.GenerationResponse{RawOutput: m.output}, nil
}

func (m *mockProvider) GenerateStream(_ context.Context, request *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
	m.request = request
	half := len(m.output) / 2
	for _, chunk := range []string{m.output[:half], m.output[half:]} {
		if err := callback(llm.StreamEvent{Type: llm.EventTextDelta, Message: chunk}); err != nil {
			return nil, err
		}
	}
	return &llm.GenerationResponse{}, nil
}

type mockImages struct {
	image  *llm.Image
	err    error
	model  string
	prompt string
}

func (m *mockImages) GenerateImage(_ context.Context, model, prompt string) (*llm.Image, error) {
	m.model, m.prompt = model, prompt
	return m.image, m.err
}

const principleJSON = `{
  "topic": "Rain",
  "summary": "Water vapour condenses and falls as droplets.",
  "mechanism": ["evaporation", "condensation"],
  "cause": ["warm air rises"],
  "effects": ["puddles"],
  "consequence": ["rivers fill"]
}`

func newPrincipleGenerator(t *testing.T, provider llm.Provider, keys map[string]string) *PrincipleGenerator {
	t.Helper()
	resolver := llm.NewResolver(keys)
	resolver.Register(config.ProviderOpenAI, func(context.Context, string) (llm.Provider, error) {
		return provider, nil
	})
	gen, err := NewPrincipleGenerator(resolver, DefaultSelection(&config.Config{PrincipleModel: "gpt-4o-mini"}), nil)
	require.NoError(t, err)
	return gen
}

func TestParsePrincipleInput(t *testing.T) {
	topic := " Rain "
	req, err := ParsePrincipleInput(PrincipleInput{Topic: &topic}, false)
	require.NoError(t, err)
	assert.Equal(t, "Rain", req.Topic)
	assert.False(t, req.Stream)

	req, err = ParsePrincipleInput(PrincipleInput{Topic: &topic}, true)
	require.NoError(t, err)
	assert.True(t, req.Stream)

	_, err = ParsePrincipleInput(PrincipleInput{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPrincipleBatch(t *testing.T) {
	provider := &mockProvider{output: principleJSON}
	gen := newPrincipleGenerator(t, provider, map[string]string{"openai": "sk-test"})

	req, err := ParsePrincipleInput(PrincipleInput{Topic: strPtr("Rain")}, false)
	require.NoError(t, err)

	result, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	principle := result.(*knowledge.BatchResult[Principle]).Value

	assert.Equal(t, "Rain", principle.Topic)
	require.NotNil(t, principle.ClassroomSafe)
	assert.True(t, *principle.ClassroomSafe)
	assert.Len(t, principle.Mechanism, 2)

	require.NotNil(t, provider.request)
	assert.Equal(t, "gpt-4o-mini", provider.request.Model)
	assert.Contains(t, provider.request.SystemPrompt, "precise science explainer")
	require.NotNil(t, provider.request.Temperature)
	assert.Equal(t, 0.7, *provider.request.Temperature)
}

func TestPrincipleCheck(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"short summary", `{"topic":"x","summary":"short","mechanism":["a"],"cause":["a"],"effects":["a"],"consequence":["a"]}`},
		{"empty cause", `{"topic":"x","summary":"long enough summary","mechanism":["a"],"cause":[],"effects":["a"],"consequence":["a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newPrincipleGenerator(t, &mockProvider{output: tt.output}, map[string]string{"openai": "sk-test"})
			_, err := gen.Generate(context.Background(), PrincipleRequest{Topic: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrGeneration)
		})
	}
}

func TestPrincipleMissingKey(t *testing.T) {
	gen := newPrincipleGenerator(t, &mockProvider{output: principleJSON}, nil)
	_, err := gen.Generate(context.Background(), PrincipleRequest{Topic: "Rain"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProvider)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestPrincipleStream(t *testing.T) {
	gen := newPrincipleGenerator(t, &mockProvider{output: principleJSON}, map[string]string{"openai": "sk-test"})

	result, err := gen.Generate(context.Background(), PrincipleRequest{Topic: "Rain", Stream: true})
	require.NoError(t, err)

	var last *Principle
	for partial, err := range result.(*knowledge.StreamResult[Principle]).All() {
		require.NoError(t, err)
		last = partial
	}
	require.NotNil(t, last)
	assert.Equal(t, []string{"puddles"}, last.Effects)
	require.NotNil(t, last.ClassroomSafe)
	assert.True(t, *last.ClassroomSafe)
}

func TestBuildImagePrompt(t *testing.T) {
	plain, err := BuildImagePrompt("rain", "")
	require.NoError(t, err)
	assert.Contains(t, plain, "WHY RAIN?")
	assert.Contains(t, plain, "5 clear horizontal panels")
	assert.NotContains(t, plain, "Style note")

	styled, err := BuildImagePrompt("rain", "watercolor")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(styled, "\n\nStyle note: watercolor"))
	assert.Equal(t, plain+"\n\nStyle note: watercolor", styled)
}

func TestGenerateImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name   string
		images llm.ImageGenerator
		kind   apperrors.Kind
	}{
		{"success", &mockImages{image: &llm.Image{Data: png, MIMEType: "image/png"}}, ""},
		{"no key", nil, apperrors.KindProvider},
		{"no image", &mockImages{err: llm.ErrNoImage}, apperrors.KindGeneration},
		{"upstream failure", &mockImages{err: errors.New("quota exceeded")}, apperrors.KindGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewImageService(tt.images, "gemini-2.5-flash-image-preview")
			image, err := svc.GenerateImage(context.Background(), ImageRequest{Topic: "rain", Style: "crayon"})

			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, png, image.Data)
				mock := tt.images.(*mockImages)
				assert.Equal(t, "gemini-2.5-flash-image-preview", mock.model)
				assert.Contains(t, mock.prompt, "Style note: crayon")
				return
			}

			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, appErr.Kind)
		})
	}
}

func strPtr(s string) *string { return &s }
