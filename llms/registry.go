package llms

import (
	"fmt"

	"github.com/kadirpekel/hectorflow/config"
	"github.com/kadirpekel/hectorflow/registry"
)

// LLMRegistry manages named LLMProvider instances, one per configured
// provider entry (not one per tenant — tenant scoping happens inside
// Invoke via InvokeOptions.TenantID).
type LLMRegistry struct {
	*registry.BaseRegistry[LLMProvider]
}

// NewLLMRegistry creates an empty LLM registry.
func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[LLMProvider](),
	}
}

// RegisterLLM registers an already-constructed provider under name.
func (r *LLMRegistry) RegisterLLM(name string, provider LLMProvider) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("LLM provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateLLMFromConfig builds and registers a provider for name from cfg,
// dispatching on cfg.Type to the matching adapter.
func (r *LLMRegistry) CreateLLMFromConfig(name string, cfg *config.LLMProviderConfig) (LLMProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("LLM name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid LLM config: %w", err)
	}

	var provider LLMProvider
	var err error

	switch cfg.Type {
	case "anthropic":
		provider, err = NewAnthropicProvider(cfg)
	case "openai":
		provider, err = NewOpenAIProvider(cfg)
	case "ollama":
		provider, err = NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	limited := NewRateLimitedProvider(provider, cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	if err := r.RegisterLLM(name, limited); err != nil {
		return nil, fmt.Errorf("failed to register LLM: %w", err)
	}

	return limited, nil
}

// GetLLM retrieves a registered provider by name.
func (r *LLMRegistry) GetLLM(name string) (LLMProvider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM provider '%s' not found", name)
	}
	return provider, nil
}

// ListLLMs returns the registered provider names.
func (r *LLMRegistry) ListLLMs() []string {
	return r.Names()
}
