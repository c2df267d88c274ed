package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/observability"
)

type mockProvider struct {
	generateFunc       func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error)
	generateStreamFunc func(ctx context.Context, request *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error)
	calls              int
}

func (m *mockProvider) Name() string { return "openai" }

func (m *mockProvider) Generate(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &llm.GenerationResponse{}, nil
}

func (m *mockProvider) GenerateStream(ctx context.Context, request *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
	m.calls++
	if m.generateStreamFunc != nil {
		return m.generateStreamFunc(ctx, request, callback)
	}
	return &llm.GenerationResponse{}, nil
}

// streamChunks feeds chunks as text deltas and stops on the first callback error.
func streamChunks(chunks ...string) func(context.Context, *llm.GenerationRequest, llm.StreamCallback) (*llm.GenerationResponse, error) {
	return func(ctx context.Context, _ *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
		for _, chunk := range chunks {
			if err := callback(llm.StreamEvent{Type: llm.EventTextDelta, Message: chunk}); err != nil {
				return nil, err
			}
		}
		return &llm.GenerationResponse{Usage: llm.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}}, nil
	}
}

type captureRecorder struct {
	mu      sync.Mutex
	records []observability.GenerationRecord
}

func (c *captureRecorder) RecordGeneration(_ context.Context, rec observability.GenerationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func newTestResolver(provider llm.Provider) *llm.Resolver {
	resolver := llm.NewResolver(map[string]string{"openai": "sk-test"})
	resolver.Register("openai", func(context.Context, string) (llm.Provider, error) {
		return provider, nil
	})
	return resolver
}

const outlineJSON = `{
  "id": "o1",
  "topic": "Python basics",
  "level": "beginner",
  "structure": [
    {"id": "t1", "title": "Syntax", "description": "d", "keyPoints": ["a"], "estimatedTime": "1h"},
    {"id": "t2", "title": "Types", "description": "d", "keyPoints": ["b"], "estimatedTime": "1h"}
  ],
  "metadata": {"totalTopics": 7, "estimatedTotalTime": "2h"}
}`

func TestOutlineBatch(t *testing.T) {
	var captured *llm.GenerationRequest
	provider := &mockProvider{
		generateFunc: func(_ context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
			captured = request
			return &llm.GenerationResponse{RawOutput: outlineJSON}, nil
		},
	}
	recorder := &captureRecorder{}
	gen := NewOutlineGenerator(newTestResolver(provider), recorder)

	req := outlineRequest(t, OutlineInput{
		Content:        strPtr("Python basics"),
		ProviderConfig: &ProviderConfigInput{Provider: strPtr("openai"), Model: strPtr("gpt-4o-mini")},
	})
	result, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)

	batch, ok := result.(*BatchResult[Outline])
	require.True(t, ok, "expected a batch result")
	outline := batch.Value

	require.Len(t, outline.Structure, 2)
	for _, topic := range outline.Structure {
		assert.NotEmpty(t, topic.Title)
	}
	assert.Equal(t, 2, outline.Metadata.TotalTopics)
	assert.Equal(t, "openai:gpt-4o-mini", outline.Metadata.Model)
	assert.NotEmpty(t, outline.Metadata.GeneratedAt)

	require.NotNil(t, captured)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.NotNil(t, captured.OutputSchema)
	assert.Equal(t, "outline", captured.OutputSchema.Name)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, observability.ModeBatch, recorder.records[0].Mode)
	assert.NoError(t, recorder.records[0].Err)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
		input    OutlineInput
		kind     apperrors.Kind
	}{
		{
			name:     "upstream failure",
			provider: &mockProvider{generateFunc: func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) { return nil, errors.New("503 from upstream") }},
			input:    OutlineInput{Content: strPtr("x")},
			kind:     apperrors.KindGeneration,
		},
		{
			name:     "malformed JSON",
			provider: &mockProvider{generateFunc: func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) { return &llm.GenerationResponse{RawOutput: "not json"}, nil }},
			input:    OutlineInput{Content: strPtr("x")},
			kind:     apperrors.KindGeneration,
		},
		{
			name:     "empty structure",
			provider: &mockProvider{generateFunc: func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) { return &llm.GenerationResponse{RawOutput: `{"structure":[]}`}, nil }},
			input:    OutlineInput{Content: strPtr("x")},
			kind:     apperrors.KindGeneration,
		},
		{
			name:     "unsupported provider",
			provider: &mockProvider{},
			input:    OutlineInput{Content: strPtr("x"), ProviderConfig: &ProviderConfigInput{Provider: strPtr("bogus")}},
			kind:     apperrors.KindProvider,
		},
		{
			name:     "missing key",
			provider: &mockProvider{},
			input:    OutlineInput{Content: strPtr("x"), ProviderConfig: &ProviderConfigInput{Provider: strPtr("deepseek")}},
			kind:     apperrors.KindProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewOutlineGenerator(newTestResolver(tt.provider), nil)

			req := outlineRequest(t, tt.input)
			_, err := gen.Generate(context.Background(), req)
			require.Error(t, err)

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, appErr.Kind)
		})
	}
}

func TestValidationFailureSkipsProvider(t *testing.T) {
	provider := &mockProvider{}
	gen := NewQuestionGenerator(newTestResolver(provider), nil)

	_, err := gen.Generate(context.Background(), QuestionRequest{Content: "x", Count: 51})
	require.Error(t, err)
	assert.Zero(t, provider.calls)
}

func questionsJSON(n int, options int) string {
	out := `{"id":"c1","questions":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += `{"id":"q","type":"single_choice","title":"Q","options":[`
		for j := 0; j < options; j++ {
			if j > 0 {
				out += ","
			}
			out += `{"id":"a","text":"A","isCorrect":false}`
		}
		out += `],"answer":"a","explanation":"e","difficulty":"easy","tags":[]}`
	}
	return out + `]}`
}

func TestQuestionBatchCount(t *testing.T) {
	tests := []struct {
		name     string
		returned int
		options  int
		wantErr  bool
	}{
		{"exact", 5, 4, false},
		{"extra are trimmed", 7, 4, false},
		{"too few", 3, 4, true},
		{"choice without options", 5, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{
				generateFunc: func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) {
					return &llm.GenerationResponse{RawOutput: questionsJSON(tt.returned, tt.options)}, nil
				},
			}
			gen := NewQuestionGenerator(newTestResolver(provider), nil)

			req, err := ParseQuestions(QuestionInput{
				Content:       strPtr("loops"),
				Count:         intPtr(5),
				QuestionTypes: []string{"single_choice"},
				OutlineID:     strPtr("o1"),
			})
			require.NoError(t, err)

			result, err := gen.Generate(context.Background(), req)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperrors.As(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.KindGeneration, appErr.Kind)
				return
			}
			require.NoError(t, err)

			collection := result.(*BatchResult[QuestionCollection]).Value
			require.Len(t, collection.Questions, 5)
			for _, q := range collection.Questions {
				assert.GreaterOrEqual(t, len(q.Options), 2)
			}
			assert.Equal(t, 5, collection.Metadata.TotalQuestions)
			assert.Equal(t, []QuestionType{QuestionSingleChoice}, collection.Metadata.QuestionTypes)
			assert.Equal(t, "o1", collection.Metadata.OutlineID)
			assert.Equal(t, DifficultyMixed, collection.Metadata.Difficulty)
		})
	}
}

func streamingOutline(t *testing.T) OutlineRequest {
	return outlineRequest(t, OutlineInput{Content: strPtr("Python basics"), Stream: boolPtr(true)})
}

func TestOutlineStreamIsMonotonic(t *testing.T) {
	provider := &mockProvider{
		generateStreamFunc: streamChunks(
			`{"topic":"Python`,
			` basics","structure":[{"title":"Syn`,
			`tax","keyPoints":["a"]},{"title":"Ty`,
			`pes"}],"metadata":{"estimatedTotalTime":"2h"}}`,
		),
	}
	recorder := &captureRecorder{}
	gen := NewOutlineGenerator(newTestResolver(provider), recorder)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)
	stream, ok := result.(*StreamResult[Outline])
	require.True(t, ok, "expected a stream result")
	assert.Zero(t, provider.calls, "upstream must not open before iteration")

	var partials []*Outline
	for partial, err := range stream.All() {
		require.NoError(t, err)
		partials = append(partials, partial)
	}
	require.NotEmpty(t, partials)

	for i := 1; i < len(partials); i++ {
		assert.GreaterOrEqual(t, len(partials[i].Structure), len(partials[i-1].Structure))
		assert.Equal(t, "openai:gpt-4o-mini", partials[i].Metadata.Model)
		assert.NotEmpty(t, partials[i].Metadata.GeneratedAt)
	}

	last := partials[len(partials)-1]
	require.Len(t, last.Structure, 2)
	assert.Equal(t, "Syntax", last.Structure[0].Title)
	assert.Equal(t, "Types", last.Structure[1].Title)
	assert.Equal(t, 2, last.Metadata.TotalTopics)
	assert.Equal(t, "2h", last.Metadata.EstimatedTotalTime)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, observability.ModeStream, recorder.records[0].Mode)
	assert.Equal(t, int64(30), recorder.records[0].Usage.TotalTokens)
}

func TestStreamIsNotRestartable(t *testing.T) {
	provider := &mockProvider{generateStreamFunc: streamChunks(`{"structure":[{"title":"A"}]}`)}
	gen := NewOutlineGenerator(newTestResolver(provider), nil)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)
	stream := result.(*StreamResult[Outline])

	for _, err := range stream.All() {
		require.NoError(t, err)
	}

	var second []error
	for _, err := range stream.All() {
		second = append(second, err)
	}
	require.Len(t, second, 1)
	assert.ErrorIs(t, second[0], ErrStreamConsumed)
	assert.Equal(t, 1, provider.calls)
}

func TestStreamConsumerBreakStopsUpstream(t *testing.T) {
	var sent int
	provider := &mockProvider{
		generateStreamFunc: func(ctx context.Context, _ *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
			chunks := []string{`{"structure":[{"title":"A"}`, `,{"title":"B"}`, `,{"title":"C"}`, `]}`}
			for _, chunk := range chunks {
				sent++
				if err := callback(llm.StreamEvent{Type: llm.EventTextDelta, Message: chunk}); err != nil {
					return nil, err
				}
			}
			return &llm.GenerationResponse{}, nil
		},
	}
	recorder := &captureRecorder{}
	gen := NewOutlineGenerator(newTestResolver(provider), recorder)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)

	for partial, err := range result.(*StreamResult[Outline]).All() {
		require.NoError(t, err)
		require.NotNil(t, partial)
		break
	}

	assert.Equal(t, 1, sent)
	require.Len(t, recorder.records, 1)
	assert.NoError(t, recorder.records[0].Err)
}

func TestStreamUpstreamErrorIsTerminal(t *testing.T) {
	upstream := errors.New("connection reset")
	provider := &mockProvider{
		generateStreamFunc: func(ctx context.Context, _ *llm.GenerationRequest, callback llm.StreamCallback) (*llm.GenerationResponse, error) {
			if err := callback(llm.StreamEvent{Type: llm.EventTextDelta, Message: `{"structure":[{"title":"A"}`}); err != nil {
				return nil, err
			}
			return nil, upstream
		},
	}
	gen := NewOutlineGenerator(newTestResolver(provider), nil)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)

	var values []*Outline
	var errs []error
	for partial, err := range result.(*StreamResult[Outline]).All() {
		values = append(values, partial)
		errs = append(errs, err)
	}

	require.Len(t, values, 2)
	assert.NotNil(t, values[0])
	assert.NoError(t, errs[0])
	assert.Nil(t, values[1])
	require.Error(t, errs[1])
	assert.ErrorIs(t, errs[1], upstream)

	appErr, ok := apperrors.As(errs[1])
	require.True(t, ok)
	assert.Equal(t, apperrors.KindGeneration, appErr.Kind)
}

func TestStreamWithoutOutputFails(t *testing.T) {
	provider := &mockProvider{generateStreamFunc: streamChunks("   ")}
	gen := NewOutlineGenerator(newTestResolver(provider), nil)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)

	var errs []error
	for _, err := range result.(*StreamResult[Outline]).All() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}

func TestStreamTruncatedOutputFails(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"cut inside a string", []string{`{"id":"o1","structure":[{"title":"Vari`, `ables","keyPoints":["a"`}},
		{"missing closing brace", []string{`{"structure":[{"title":"A"}]`}},
		{"wrong type at the end", []string{`{"structure":[{"title":"A"}],`, `"metadata":{"totalTopics":"many"}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{generateStreamFunc: streamChunks(tt.chunks...)}
			recorder := &captureRecorder{}
			gen := NewOutlineGenerator(newTestResolver(provider), recorder)

			result, err := gen.Generate(context.Background(), streamingOutline(t))
			require.NoError(t, err)

			var values []*Outline
			var errs []error
			for partial, err := range result.(*StreamResult[Outline]).All() {
				values = append(values, partial)
				errs = append(errs, err)
			}

			require.NotEmpty(t, errs)
			last := len(errs) - 1
			assert.Nil(t, values[last])
			require.Error(t, errs[last])
			appErr, ok := apperrors.As(errs[last])
			require.True(t, ok)
			assert.Equal(t, apperrors.KindGeneration, appErr.Kind)
			assert.Equal(t, "model returned malformed JSON", appErr.Message)
			for _, err := range errs[:last] {
				assert.NoError(t, err)
			}

			require.Len(t, recorder.records, 1)
			assert.Error(t, recorder.records[0].Err)
		})
	}
}

func TestStreamAcceptsFencedOutput(t *testing.T) {
	provider := &mockProvider{generateStreamFunc: streamChunks("```json\n", `{"structure":[{"title":"A"}]}`, "\n```")}
	gen := NewOutlineGenerator(newTestResolver(provider), nil)

	result, err := gen.Generate(context.Background(), streamingOutline(t))
	require.NoError(t, err)

	var partials int
	for partial, err := range result.(*StreamResult[Outline]).All() {
		require.NoError(t, err)
		require.NotNil(t, partial)
		partials++
	}
	assert.Positive(t, partials)
}
