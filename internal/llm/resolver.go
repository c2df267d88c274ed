package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"github.com/wd-ai-tools/ai-gateway/internal/config"
)

// Generation defaults applied when a selection leaves them unset.
const (
	DefaultProvider    = config.ProviderOpenAI
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// DefaultModels is the model used per provider when none is requested.
var DefaultModels = map[string]string{
	config.ProviderOpenAI:    "gpt-4o-mini",
	config.ProviderGoogle:    "gemini-2.5-flash",
	config.ProviderAnthropic: "claude-3-5-haiku-latest",
	config.ProviderGrok:      "grok-3-mini",
	config.ProviderDeepSeek:  "deepseek-chat",
}

// Selection is the caller's choice of provider and sampling parameters.
type Selection struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	APIKey      string   `json:"apiKey,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

// Handle is a resolved provider ready to be called.
type Handle struct {
	Provider    Provider
	Model       string
	// ModelID is "provider:model", stamped into generated metadata.
	ModelID     string
	Temperature float64
	MaxTokens   int
}

// Request builds a GenerationRequest carrying the handle's model and sampling settings.
func (h *Handle) Request(systemPrompt, prompt string, schema *OutputSchema) *GenerationRequest {
	temperature := h.Temperature
	return &GenerationRequest{
		Model:        h.Model,
		InputArray:   UserInput(prompt),
		SystemPrompt: systemPrompt,
		OutputSchema: schema,
		Temperature:  &temperature,
		MaxTokens:    h.MaxTokens,
	}
}

// Factory builds a provider client for an API key.
type Factory func(ctx context.Context, apiKey string) (Provider, error)

// Resolver maps a Selection to a configured provider client.
// Keys are handed straight to the client constructors and never written to the environment.
type Resolver struct {
	mu        sync.RWMutex
	keys      map[string]string
	factories map[string]Factory
}

// NewResolver creates a resolver with the built-in providers and the server-side keys.
func NewResolver(keys map[string]string) *Resolver {
	r := &Resolver{
		keys:      make(map[string]string, len(keys)),
		factories: make(map[string]Factory),
	}
	for name, key := range keys {
		r.keys[name] = key
	}

	r.Register(config.ProviderOpenAI, func(_ context.Context, apiKey string) (Provider, error) {
		return NewOpenAIProvider(apiKey), nil
	})
	r.Register(config.ProviderGoogle, func(ctx context.Context, apiKey string) (Provider, error) {
		return NewGeminiProvider(ctx, apiKey)
	})
	r.Register(config.ProviderAnthropic, func(_ context.Context, apiKey string) (Provider, error) {
		return NewAnthropicProvider(apiKey), nil
	})
	r.Register(config.ProviderGrok, func(_ context.Context, apiKey string) (Provider, error) {
		return NewGrokProvider(apiKey), nil
	})
	r.Register(config.ProviderDeepSeek, func(_ context.Context, apiKey string) (Provider, error) {
		return NewDeepSeekProvider(apiKey), nil
	})
	return r
}

// Register adds or replaces the factory for a provider name.
func (r *Resolver) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Providers lists the registered provider names in sorted order.
func (r *Resolver) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasKey reports whether a server-side key is configured for the provider.
func (r *Resolver) HasKey(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys[provider] != ""
}

// Resolve returns a provider handle for sel. An explicit key in sel wins over
// the configured one.
func (r *Resolver) Resolve(ctx context.Context, sel Selection) (*Handle, error) {
	name := strings.ToLower(sel.Provider)
	if name == "" {
		name = DefaultProvider
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	configured := r.keys[name]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewProvider(name, "unsupported provider", nil)
	}

	apiKey := sel.APIKey
	if apiKey == "" {
		apiKey = configured
	}
	if apiKey == "" {
		envKey, known := config.ProviderEnvKeys[name]
		if !known {
			envKey = strings.ToUpper(name) + "_API_KEY"
		}
		return nil, apperrors.NewProvider(name, fmt.Sprintf("no API key configured (set %s)", envKey), nil)
	}

	model := sel.Model
	if model == "" {
		model = DefaultModels[name]
	}
	if model == "" {
		return nil, apperrors.NewProvider(name, "no model selected", nil)
	}

	provider, err := factory(ctx, apiKey)
	if err != nil {
		return nil, apperrors.NewProvider(name, "failed to create client", err)
	}

	temperature := DefaultTemperature
	if sel.Temperature != nil {
		temperature = *sel.Temperature
	}
	maxTokens := sel.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Handle{
		Provider:    provider,
		Model:       model,
		ModelID:     name + ":" + model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}
