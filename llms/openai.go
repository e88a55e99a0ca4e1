package llms

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kadirpekel/hectorflow/config"
)

// chatClient captures the subset of the OpenAI SDK client this adapter
// depends on. Ollama's OpenAI-compatible /v1/chat/completions endpoint
// satisfies the same shape, which is why OpenAIProvider also backs the
// "ollama" provider type: only the base URL and auth requirement differ.
type chatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider implements LLMProvider over the Chat Completions API.
type OpenAIProvider struct {
	chat     chatClient
	model    string
	cfg      *config.LLMProviderConfig
	byTenant map[string]chatClient
	ollama   bool
}

// NewOpenAIProvider builds an OpenAI-backed provider.
func NewOpenAIProvider(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && len(cfg.TenantAPIKeys) == 0 {
		return nil, fmt.Errorf("openai provider requires an api_key or tenant_api_keys")
	}
	p := &OpenAIProvider{
		model:    cfg.Model,
		cfg:      cfg,
		byTenant: make(map[string]chatClient),
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Host != "" {
		opts = append(opts, option.WithBaseURL(cfg.Host))
	}
	client := openai.NewClient(opts...)
	p.chat = &client.Chat.Completions
	return p, nil
}

// NewOllamaProvider builds a provider against Ollama's OpenAI-compatible
// endpoint. Ollama does not require a real API key, so an empty or
// placeholder key is accepted.
func NewOllamaProvider(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
	p := &OpenAIProvider{
		model:    cfg.Model,
		cfg:      cfg,
		byTenant: make(map[string]chatClient),
		ollama:   true,
	}
	key := cfg.APIKey
	if key == "" {
		key = "ollama"
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.Host != "" {
		opts = append(opts, option.WithBaseURL(cfg.Host))
	}
	client := openai.NewClient(opts...)
	p.chat = &client.Chat.Completions
	return p, nil
}

func (p *OpenAIProvider) clientFor(tenantID string) chatClient {
	if p.ollama {
		return p.chat
	}
	key := p.cfg.APIKeyFor(tenantID)
	if key == "" || key == p.cfg.APIKey {
		return p.chat
	}
	if existing, ok := p.byTenant[tenantID]; ok {
		return existing
	}
	client := openai.NewClient(option.WithAPIKey(key))
	p.byTenant[tenantID] = &client.Chat.Completions
	return p.byTenant[tenantID]
}

func (p *OpenAIProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	client := p.clientFor(opts.TenantID)
	if client == nil {
		return nil, fmt.Errorf("no openai client available for tenant %q", opts.TenantID)
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat.completions.new: empty choices")
	}

	return &InvokeResult{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (p *OpenAIProvider) ModelName() string   { return p.model }
func (p *OpenAIProvider) MaxTokens() int       { return p.cfg.MaxTokens }
func (p *OpenAIProvider) Temperature() float64 { return p.cfg.Temperature }
func (p *OpenAIProvider) Close() error         { return nil }
