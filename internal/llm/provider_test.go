package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name               string
	generateFunc       func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
	generateStreamFunc func(ctx context.Context, request *GenerationRequest, callback StreamCallback) (*GenerationResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &GenerationResponse{}, nil
}

func (m *MockProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	if m.generateStreamFunc != nil {
		return m.generateStreamFunc(ctx, request, callback)
	}
	return &GenerationResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	mock := &MockProvider{name: "mock"}
	var _ Provider = mock
	assert.Equal(t, "mock", mock.Name())
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StripCodeFences(tt.input))
	}
}

func TestUserInput(t *testing.T) {
	input := UserInput("hello")
	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0]["role"])
	assert.Equal(t, "hello", input[0]["content"])
}

func TestEmitStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	err := emit(func(StreamEvent) error { return stop }, StreamEvent{Type: EventTextDelta})
	assert.ErrorIs(t, err, stop)
	assert.NoError(t, emit(nil, StreamEvent{Type: EventTextDelta}))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		keys      map[string]string
		selection Selection
		wantErr   bool
		wantID    string
		check     func(t *testing.T, handle *Handle, err error)
	}{
		{
			name:      "defaults to openai",
			keys:      map[string]string{"openai": "sk-test"},
			selection: Selection{},
			wantID:    "openai:gpt-4o-mini",
		},
		{
			name:      "explicit model",
			keys:      map[string]string{"google": "g-key"},
			selection: Selection{Provider: "google", Model: "gemini-2.0-flash"},
			wantID:    "google:gemini-2.0-flash",
		},
		{
			name:      "request key wins when server key missing",
			keys:      map[string]string{},
			selection: Selection{Provider: "deepseek", APIKey: "caller-key"},
			wantID:    "deepseek:deepseek-chat",
		},
		{
			name:      "unsupported provider",
			keys:      map[string]string{},
			selection: Selection{Provider: "bogus"},
			wantErr:   true,
			check: func(t *testing.T, _ *Handle, err error) {
				t.Helper()
				appErr, ok := apperrors.As(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.KindProvider, appErr.Kind)
				assert.Equal(t, "bogus", appErr.Provider)
				assert.Contains(t, appErr.Error(), "unsupported provider")
			},
		},
		{
			name:      "missing key names env var",
			keys:      map[string]string{"anthropic": ""},
			selection: Selection{Provider: "anthropic"},
			wantErr:   true,
			check: func(t *testing.T, _ *Handle, err error) {
				t.Helper()
				assert.ErrorIs(t, err, apperrors.ErrProvider)
				assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.keys)
			handle, err := resolver.Resolve(ctx, tt.selection)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, handle)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, handle.ModelID)
				assert.Equal(t, DefaultTemperature, handle.Temperature)
				assert.Equal(t, DefaultMaxTokens, handle.MaxTokens)
			}
			if tt.check != nil {
				tt.check(t, handle, err)
			}
		})
	}
}

func TestResolveRegisteredFactory(t *testing.T) {
	resolver := NewResolver(map[string]string{"mock": "key"})
	var gotKey string
	resolver.Register("mock", func(_ context.Context, apiKey string) (Provider, error) {
		gotKey = apiKey
		return &MockProvider{name: "mock"}, nil
	})
	DefaultModels["mock"] = "mock-1"
	t.Cleanup(func() { delete(DefaultModels, "mock") })

	temperature := 0.2
	handle, err := resolver.Resolve(context.Background(), Selection{Provider: "MOCK", Temperature: &temperature, MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "mock:mock-1", handle.ModelID)
	assert.Equal(t, 0.2, handle.Temperature)
	assert.Equal(t, 50, handle.MaxTokens)
	assert.Contains(t, resolver.Providers(), "mock")

	req := handle.Request("system", "prompt", &OutputSchema{Name: "x"})
	assert.Equal(t, "mock-1", req.Model)
	assert.Equal(t, "system", req.SystemPrompt)
	assert.Equal(t, 0.2, *req.Temperature)
	assert.Equal(t, 50, req.MaxTokens)
}

func TestResolveFactoryError(t *testing.T) {
	resolver := NewResolver(map[string]string{"openai": "key"})
	resolver.Register("openai", func(context.Context, string) (Provider, error) {
		return nil, errors.New("boom")
	})

	_, err := resolver.Resolve(context.Background(), Selection{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProvider)
}

func TestResolverProviders(t *testing.T) {
	resolver := NewResolver(map[string]string{"openai": "k"})
	assert.Equal(t, []string{"anthropic", "deepseek", "google", "grok", "openai"}, resolver.Providers())
	assert.True(t, resolver.HasKey("openai"))
	assert.False(t, resolver.HasKey("google"))
}
