package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorflow/config"
)

type stubProvider struct{ model string }

func (s *stubProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	return &InvokeResult{Content: "stub"}, nil
}
func (s *stubProvider) ModelName() string    { return s.model }
func (s *stubProvider) MaxTokens() int       { return 4096 }
func (s *stubProvider) Temperature() float64 { return 0.1 }
func (s *stubProvider) Close() error         { return nil }

func TestRegisterLLMRejectsEmptyNameAndNilProvider(t *testing.T) {
	reg := NewLLMRegistry()

	assert.Error(t, reg.RegisterLLM("", &stubProvider{}))
	assert.Error(t, reg.RegisterLLM("p", nil))
}

func TestRegisterLLMAndGetLLMRoundTrip(t *testing.T) {
	reg := NewLLMRegistry()
	provider := &stubProvider{model: "gpt-4o"}

	require.NoError(t, reg.RegisterLLM("primary", provider))

	got, err := reg.GetLLM("primary")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.ModelName())
}

func TestGetLLMErrorsWhenNotFound(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.GetLLM("missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListLLMsReturnsRegisteredNames(t *testing.T) {
	reg := NewLLMRegistry()
	require.NoError(t, reg.RegisterLLM("a", &stubProvider{}))
	require.NoError(t, reg.RegisterLLM("b", &stubProvider{}))

	assert.ElementsMatch(t, []string{"a", "b"}, reg.ListLLMs())
}

func TestCreateLLMFromConfigRejectsEmptyNameAndNilConfig(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateLLMFromConfig("", &config.LLMProviderConfig{Type: "openai", Model: "gpt-4o", APIKey: "k"})
	assert.Error(t, err)

	_, err = reg.CreateLLMFromConfig("p", nil)
	assert.Error(t, err)
}

func TestCreateLLMFromConfigRejectsUnsupportedType(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateLLMFromConfig("p", &config.LLMProviderConfig{Type: "bogus", Model: "m", APIKey: "k"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}

func TestCreateLLMFromConfigRejectsInvalidConfigBeforeDispatch(t *testing.T) {
	reg := NewLLMRegistry()

	_, err := reg.CreateLLMFromConfig("p", &config.LLMProviderConfig{Type: "openai", Model: ""})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid LLM config")
}

func TestCreateLLMFromConfigWrapsProviderWithRateLimiter(t *testing.T) {
	reg := NewLLMRegistry()

	provider, err := reg.CreateLLMFromConfig("p", &config.LLMProviderConfig{Type: "ollama", Model: "llama3"})

	require.NoError(t, err)
	_, ok := provider.(*RateLimitedProvider)
	assert.True(t, ok, "expected CreateLLMFromConfig to wrap the adapter in a rate limiter")

	registered, err := reg.GetLLM("p")
	require.NoError(t, err)
	assert.Same(t, provider, registered)
}
