package llms

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kadirpekel/hectorflow/config"
)

// messagesClient captures the subset of the Anthropic SDK client this
// adapter depends on, so tests can substitute a fake without a live key.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicProvider implements LLMProvider over the Anthropic Messages
// API. A single instance may serve many tenants: InvokeOptions.TenantID
// selects the API key via the surrounding LLMProviderConfig, never a
// key baked into the client at construction time.
type AnthropicProvider struct {
	msg    messagesClient
	model  string
	cfg    *config.LLMProviderConfig
	byTenant map[string]messagesClient
}

// NewAnthropicProvider builds a provider that authenticates its default
// client with cfg.APIKey and lazily builds one client per tenant key
// override the first time that tenant is seen.
func NewAnthropicProvider(cfg *config.LLMProviderConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" && len(cfg.TenantAPIKeys) == 0 {
		return nil, fmt.Errorf("anthropic provider requires an api_key or tenant_api_keys")
	}
	p := &AnthropicProvider{
		model:    cfg.Model,
		cfg:      cfg,
		byTenant: make(map[string]messagesClient),
	}
	if cfg.APIKey != "" {
		client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
		p.msg = &client.Messages
	}
	return p, nil
}

func (p *AnthropicProvider) clientFor(tenantID string) messagesClient {
	key := p.cfg.APIKeyFor(tenantID)
	if key == "" || key == p.cfg.APIKey {
		return p.msg
	}
	if existing, ok := p.byTenant[tenantID]; ok {
		return existing
	}
	client := sdk.NewClient(option.WithAPIKey(key))
	p.byTenant[tenantID] = &client.Messages
	return p.byTenant[tenantID]
}

func (p *AnthropicProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	client := p.clientFor(opts.TenantID)
	if client == nil {
		return nil, fmt.Errorf("no anthropic client available for tenant %q", opts.TenantID)
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := opts.Temperature

	system := ""
	if opts.JSONMode {
		system = "Respond with a single JSON value only. Do not include prose, markdown fences, or explanation outside the JSON."
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	params.Temperature = sdk.Float(temperature)

	msg, err := client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	content := ""
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &InvokeResult{
		Content:      content,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func (p *AnthropicProvider) ModelName() string     { return p.model }
func (p *AnthropicProvider) MaxTokens() int         { return p.cfg.MaxTokens }
func (p *AnthropicProvider) Temperature() float64   { return p.cfg.Temperature }
func (p *AnthropicProvider) Close() error           { return nil }
