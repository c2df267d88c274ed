// Package texttoimage explains a topic as a five-panel principle breakdown and
// renders the matching classroom infographic.
package texttoimage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wd-ai-tools/ai-gateway/internal/config"
	"github.com/wd-ai-tools/ai-gateway/internal/knowledge"
	"github.com/wd-ai-tools/ai-gateway/internal/llm"
	"github.com/wd-ai-tools/ai-gateway/internal/observability"
	"github.com/wd-ai-tools/ai-gateway/internal/prompt"
	"github.com/wd-ai-tools/ai-gateway/internal/validation"
)

const (
	minSummaryLength     = 10
	principleTemperature = 0.7
)

// Principle is a causal breakdown of a topic.
type Principle struct {
	Topic         string   `json:"topic"`
	Summary       string   `json:"summary"`
	Mechanism     []string `json:"mechanism"`
	Cause         []string `json:"cause"`
	Effects       []string `json:"effects"`
	Consequence   []string `json:"consequence"`
	Analogies     []string `json:"analogies,omitempty"`
	ClassroomSafe *bool    `json:"classroomSafe"`
}

// PrincipleInput is the body of the principle endpoints.
type PrincipleInput struct {
	Topic  *string `json:"topic"`
	Stream *bool   `json:"stream"`
}

// PrincipleRequest is a validated principle request. The provider is fixed by
// the PrincipleGenerator that runs it.
type PrincipleRequest struct {
	Topic  string `json:"topic" validate:"required"`
	Stream bool   `json:"stream"`

	selection llm.Selection
}

// ParsePrincipleInput validates in. stream forces streaming regardless of the body.
func ParsePrincipleInput(in PrincipleInput, stream bool) (PrincipleRequest, error) {
	req := PrincipleRequest{Stream: stream}
	if in.Topic != nil {
		req.Topic = strings.TrimSpace(*in.Topic)
	}
	if in.Stream != nil && *in.Stream {
		req.Stream = true
	}
	if err := req.Validate(); err != nil {
		return PrincipleRequest{}, err
	}
	return req, nil
}

func (r PrincipleRequest) Validate() error          { return validation.Struct(r) }
func (r PrincipleRequest) Streaming() bool          { return r.Stream }
func (r PrincipleRequest) Selection() llm.Selection { return r.selection }

// PrincipleSchema returns the JSON schema the model answers with.
func PrincipleSchema() map[string]any {
	list := map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic":         map[string]any{"type": "string"},
			"summary":       map[string]any{"type": "string", "minLength": minSummaryLength},
			"mechanism":     list,
			"cause":         list,
			"effects":       list,
			"consequence":   list,
			"analogies":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"classroomSafe": map[string]any{"type": "boolean"},
		},
		"required":             []string{"topic", "summary", "mechanism", "cause", "effects", "consequence", "classroomSafe"},
		"additionalProperties": false,
	}
}

// PrincipleGenerator runs the principle pipeline against a fixed provider.
type PrincipleGenerator struct {
	gen       *knowledge.Generator[PrincipleRequest, Principle]
	selection llm.Selection
}

// DefaultSelection is the provider used for principles: openai with the configured model.
func DefaultSelection(cfg *config.Config) llm.Selection {
	temperature := principleTemperature
	return llm.Selection{
		Provider:    config.ProviderOpenAI,
		Model:       cfg.PrincipleModel,
		Temperature: &temperature,
	}
}

// NewPrincipleGenerator builds the principle pipeline.
func NewPrincipleGenerator(resolver knowledge.Resolver, selection llm.Selection, recorder observability.Recorder) (*PrincipleGenerator, error) {
	system, err := prompt.Render(prompt.PrincipleSystem, nil)
	if err != nil {
		return nil, err
	}

	gen := knowledge.NewGenerator(resolver, knowledge.Pipeline[PrincipleRequest, Principle]{
		Name:         "principle",
		Schema:       PrincipleSchema(),
		SystemPrompt: system,
		Prompt:       BuildPrinciplePrompt,
		Stamp:        stampPrinciple,
		Check:        checkPrinciple,
	}, recorder)

	return &PrincipleGenerator{gen: gen, selection: selection}, nil
}

// Generate returns a batch or stream result for req.
func (p *PrincipleGenerator) Generate(ctx context.Context, req PrincipleRequest) (knowledge.Result[Principle], error) {
	req.selection = p.selection
	return p.gen.Generate(ctx, req)
}

// BuildPrinciplePrompt renders the user prompt for req.
func BuildPrinciplePrompt(req PrincipleRequest) (string, error) {
	return prompt.Render(prompt.PrincipleUser, req)
}

func stampPrinciple(out *Principle, req PrincipleRequest, _ knowledge.Stamp) {
	if out.Topic == "" {
		out.Topic = req.Topic
	}
	if out.ClassroomSafe == nil {
		safe := true
		out.ClassroomSafe = &safe
	}
}

func checkPrinciple(out *Principle, _ PrincipleRequest) error {
	if utf8.RuneCountInString(strings.TrimSpace(out.Summary)) < minSummaryLength {
		return fmt.Errorf("summary must be at least %d characters", minSummaryLength)
	}
	lists := []struct {
		name  string
		items []string
	}{
		{"mechanism", out.Mechanism},
		{"cause", out.Cause},
		{"effects", out.Effects},
		{"consequence", out.Consequence},
	}
	var errs []error
	for _, l := range lists {
		if len(l.items) == 0 {
			errs = append(errs, fmt.Errorf("%s must have at least one entry", l.name))
		}
	}
	return errors.Join(errs...)
}
