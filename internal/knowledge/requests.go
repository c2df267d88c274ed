package knowledge

import (
	"strings"

	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/validation"
)

// Request defaults
const (
	DefaultLevel             = LevelIntermediate
	DefaultDepth             = 8
	DefaultLanguage          = LanguageZH
	DefaultTargetAudience    = "初学者"
	DefaultEstimatedDuration = "2小时"
	DefaultQuestionCount     = 5
	DefaultDifficulty        = DifficultyMixed
)

// DefaultQuestionTypes is used when a question request names no types.
var DefaultQuestionTypes = []QuestionType{QuestionSingleChoice, QuestionMultipleChoice}

// Request is what a Generator accepts.
type Request interface {
	Validate() error
	Streaming() bool
	Selection() llm.Selection
}

// ProviderConfigInput is the raw providerConfig object of a request body.
type ProviderConfigInput struct {
	Provider    *string  `json:"provider"`
	Model       *string  `json:"model"`
	APIKey      *string  `json:"apiKey"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"maxTokens"`
}

// ProviderSelection is the validated provider choice. The provider name is
// checked by the resolver so an unknown name surfaces as a ProviderError.
type ProviderSelection struct {
	Provider    string  `json:"provider" validate:"required"`
	Model       string  `json:"model"`
	APIKey      string  `json:"-"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"maxTokens" validate:"gt=0"`
}

// ParseProviderConfig applies provider defaults. A nil input selects the default provider.
func ParseProviderConfig(in *ProviderConfigInput) ProviderSelection {
	sel := ProviderSelection{
		Provider:    llm.DefaultProvider,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
	}
	if in == nil {
		return sel
	}
	if in.Provider != nil && *in.Provider != "" {
		sel.Provider = strings.ToLower(strings.TrimSpace(*in.Provider))
	}
	if in.Model != nil {
		sel.Model = strings.TrimSpace(*in.Model)
	}
	if in.APIKey != nil {
		sel.APIKey = strings.TrimSpace(*in.APIKey)
	}
	if in.Temperature != nil {
		sel.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil {
		sel.MaxTokens = *in.MaxTokens
	}
	return sel
}

// LLM converts the selection for the provider resolver.
func (s ProviderSelection) LLM() llm.Selection {
	temperature := s.Temperature
	return llm.Selection{
		Provider:    s.Provider,
		Model:       s.Model,
		APIKey:      s.APIKey,
		Temperature: &temperature,
		MaxTokens:   s.MaxTokens,
	}
}

// OutlineInput is the body of POST /outline/generate.
// topic and level are accepted as aliases of content and difficultyLevel.
type OutlineInput struct {
	Content           *string              `json:"content"`
	Topic             *string              `json:"topic"`
	Stream            *bool                `json:"stream"`
	TargetAudience    *string              `json:"targetAudience"`
	DifficultyLevel   *string              `json:"difficultyLevel"`
	Level             *string              `json:"level"`
	EstimatedDuration *string              `json:"estimatedDuration"`
	Depth             *int                 `json:"depth"`
	Language          *string              `json:"language"`
	IncludeExamples   *bool                `json:"includeExamples"`
	ProviderConfig    *ProviderConfigInput `json:"providerConfig"`
}

// OutlineRequest is a validated outline request. Every field holds a concrete value.
type OutlineRequest struct {
	Topic             string            `json:"content" validate:"required"`
	Level             Level             `json:"difficultyLevel" validate:"oneof=beginner intermediate advanced"`
	Depth             int               `json:"depth" validate:"min=1,max=10"`
	Language          Language          `json:"language" validate:"oneof=zh en"`
	TargetAudience    string            `json:"targetAudience"`
	EstimatedDuration string            `json:"estimatedDuration"`
	IncludeExamples   bool              `json:"includeExamples"`
	Stream            bool              `json:"stream"`
	Provider          ProviderSelection `json:"providerConfig"`
}

// ParseOutline applies defaults to in and validates the result.
func ParseOutline(in OutlineInput) (OutlineRequest, error) {
	req := OutlineRequest{
		Topic:             firstNonNil(in.Content, in.Topic),
		Level:             Level(strOr(firstPtr(in.DifficultyLevel, in.Level), string(DefaultLevel))),
		Depth:             intOr(in.Depth, DefaultDepth),
		Language:          Language(strOr(in.Language, string(DefaultLanguage))),
		TargetAudience:    strOr(in.TargetAudience, DefaultTargetAudience),
		EstimatedDuration: strOr(in.EstimatedDuration, DefaultEstimatedDuration),
		IncludeExamples:   boolOr(in.IncludeExamples, true),
		Stream:            boolOr(in.Stream, false),
		Provider:          ParseProviderConfig(in.ProviderConfig),
	}
	if err := req.Validate(); err != nil {
		return OutlineRequest{}, err
	}
	return req, nil
}

func (r OutlineRequest) Validate() error          { return validation.Struct(r) }
func (r OutlineRequest) Streaming() bool          { return r.Stream }
func (r OutlineRequest) Selection() llm.Selection { return r.Provider.LLM() }

// QuestionInput is the body of POST /questions/generate.
type QuestionInput struct {
	Content        *string              `json:"content"`
	Stream         *bool                `json:"stream"`
	QuestionTypes  []string             `json:"questionTypes"`
	Count          *int                 `json:"count"`
	Difficulty     *string              `json:"difficulty"`
	Language       *string              `json:"language"`
	OutlineID      *string              `json:"outlineId"`
	ProviderConfig *ProviderConfigInput `json:"providerConfig"`
}

// QuestionRequest is a validated question request.
type QuestionRequest struct {
	Content       string            `json:"content" validate:"required"`
	QuestionTypes []QuestionType    `json:"questionTypes" validate:"min=1,dive,oneof=single_choice multiple_choice fill essay mixed"`
	Count         int               `json:"count" validate:"min=1,max=50"`
	Difficulty    Difficulty        `json:"difficulty" validate:"oneof=easy medium hard mixed"`
	Language      Language          `json:"language" validate:"oneof=zh en"`
	OutlineID     string            `json:"outlineId"`
	Stream        bool              `json:"stream"`
	Provider      ProviderSelection `json:"providerConfig"`
}

// ParseQuestions applies defaults to in and validates the result.
func ParseQuestions(in QuestionInput) (QuestionRequest, error) {
	types := make([]QuestionType, 0, len(in.QuestionTypes))
	for _, t := range in.QuestionTypes {
		types = append(types, QuestionType(strings.TrimSpace(t)))
	}
	if len(types) == 0 {
		types = append(types, DefaultQuestionTypes...)
	}

	req := QuestionRequest{
		Content:       firstNonNil(in.Content),
		QuestionTypes: types,
		Count:         intOr(in.Count, DefaultQuestionCount),
		Difficulty:    Difficulty(strOr(in.Difficulty, string(DefaultDifficulty))),
		Language:      Language(strOr(in.Language, string(DefaultLanguage))),
		OutlineID:     strOr(in.OutlineID, ""),
		Stream:        boolOr(in.Stream, false),
		Provider:      ParseProviderConfig(in.ProviderConfig),
	}
	if err := req.Validate(); err != nil {
		return QuestionRequest{}, err
	}
	return req, nil
}

func (r QuestionRequest) Validate() error          { return validation.Struct(r) }
func (r QuestionRequest) Streaming() bool          { return r.Stream }
func (r QuestionRequest) Selection() llm.Selection { return r.Provider.LLM() }

// firstNonNil returns the first set value, trimmed.
func firstNonNil(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

func firstPtr(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// strOr treats an absent or empty string as unset.
func strOr(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return strings.TrimSpace(*v)
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
