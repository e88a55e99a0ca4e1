// Package config provides configuration types and utilities for the
// workflow engine: provider credentials, agent-registry cache settings,
// and the engine tunables named in the external-interfaces contract.
package config

import (
	"fmt"
	"time"
)

// ============================================================================
// LLM PROVIDER CONFIGURATION
// ============================================================================

// LLMProviderConfig configures one named LLM provider the engine can
// resolve into an llms.LLMProvider. Multiple tenants may reference the
// same provider name with different API keys via TenantAPIKeys.
type LLMProviderConfig struct {
	Type          string            `yaml:"type"`                     // "anthropic", "openai", "ollama"
	Model         string            `yaml:"model"`                    // model name
	APIKey        string            `yaml:"api_key"`                  // default/process API key
	TenantAPIKeys map[string]string `yaml:"tenant_api_keys,omitempty"` // tenant_id -> API key override
	Host          string            `yaml:"host"`                     // base URL override
	Temperature   float64           `yaml:"temperature"`
	MaxTokens     int               `yaml:"max_tokens"`
	Timeout       int               `yaml:"timeout"` // seconds

	// RateLimitPerSecond and RateLimitBurst bound the sustained and
	// burst call rate a single provider accepts across all tenants,
	// so one noisy tenant cannot exhaust a shared provider's quota.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

func (c *LLMProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	switch c.Type {
	case "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("unknown provider type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if (c.Type == "openai" || c.Type == "anthropic") && c.APIKey == "" && len(c.TenantAPIKeys) == 0 {
		return fmt.Errorf("api_key or tenant_api_keys is required for provider type %s", c.Type)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("rate_limit_per_second must be non-negative")
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("rate_limit_burst must be non-negative")
	}
	return nil
}

func (c *LLMProviderConfig) SetDefaults() {
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com/v1"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		case "ollama":
			c.Host = "http://localhost:11434"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.RateLimitPerSecond == 0 {
		c.RateLimitPerSecond = 5
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 10
	}
}

// APIKeyFor resolves the key the engine should use for a given tenant,
// falling back to the provider's default key.
func (c *LLMProviderConfig) APIKeyFor(tenantID string) string {
	if key, ok := c.TenantAPIKeys[tenantID]; ok && key != "" {
		return key
	}
	return c.APIKey
}

// ============================================================================
// AGENT REGISTRY CONFIGURATION
// ============================================================================

// AgentRegistryConfig configures the external agent-directory lookup and
// its optional Redis-backed cache.
type AgentRegistryConfig struct {
	DirectoryURL string           `yaml:"directory_url"`
	Cache        RedisCacheConfig `yaml:"cache"`
}

func (c *AgentRegistryConfig) Validate() error {
	if c.DirectoryURL == "" {
		return fmt.Errorf("directory_url is required")
	}
	return c.Cache.Validate()
}

func (c *AgentRegistryConfig) SetDefaults() {
	c.Cache.SetDefaults()
}

// AgentExecutorConfig configures the external, opaque per-tool executor.
type AgentExecutorConfig struct {
	URL string `yaml:"url"`
}

func (c *AgentExecutorConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

func (c *AgentExecutorConfig) SetDefaults() {}

// NodeProvidersConfig names which configured LLM provider backs each
// LLM-calling node. All three may point at the same provider.
type NodeProvidersConfig struct {
	Reflection string `yaml:"reflection"`
	Conflict   string `yaml:"conflict"`
	Error      string `yaml:"error"`
}

func (c *NodeProvidersConfig) Validate() error {
	if c.Reflection == "" {
		return fmt.Errorf("reflection provider is required")
	}
	if c.Conflict == "" {
		return fmt.Errorf("conflict provider is required")
	}
	if c.Error == "" {
		return fmt.Errorf("error provider is required")
	}
	return nil
}

func (c *NodeProvidersConfig) SetDefaults() {}

// RedisCacheConfig configures the agent-visibility cache described in
// the collaborator interfaces ("cacheable for >= 5 minutes").
type RedisCacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func (c *RedisCacheConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("addr is required when cache is enabled")
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative")
	}
	return nil
}

func (c *RedisCacheConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
}

// ============================================================================
// ENGINE TUNABLES
// ============================================================================

// EngineConfig carries the tunables named in the external-interfaces
// configuration section, with the stated defaults.
type EngineConfig struct {
	MaxRetry                  int     `yaml:"max_retry"`
	MaxWorkflowRetry          int     `yaml:"max_workflow_retry"`
	LLMCallTimeoutSeconds     int     `yaml:"llm_call_timeout_seconds"`
	HistoryTurnsForSemantics  int     `yaml:"history_turns_for_semantics"`
	HistoryTurnsForPlanning   int     `yaml:"history_turns_for_planning"`
	MaxTokens                 int     `yaml:"max_tokens"`
	DefaultTemperature        float64 `yaml:"default_temperature"`
	ProgressQueueCapacity     int     `yaml:"progress_queue_capacity"`
	SourceSnippetMaxChars     int     `yaml:"source_snippet_max_chars"`
	RetryBackoffFactorSeconds float64 `yaml:"retry_backoff_factor_seconds"`
}

func (c *EngineConfig) Validate() error {
	if c.MaxRetry <= 0 {
		return fmt.Errorf("max_retry must be positive")
	}
	if c.MaxWorkflowRetry < 0 {
		return fmt.Errorf("max_workflow_retry must be non-negative")
	}
	if c.ProgressQueueCapacity <= 0 {
		return fmt.Errorf("progress_queue_capacity must be positive")
	}
	return nil
}

func (c *EngineConfig) SetDefaults() {
	if c.MaxRetry == 0 {
		c.MaxRetry = 3
	}
	if c.MaxWorkflowRetry == 0 {
		c.MaxWorkflowRetry = 2
	}
	if c.LLMCallTimeoutSeconds == 0 {
		c.LLMCallTimeoutSeconds = 120
	}
	if c.HistoryTurnsForSemantics == 0 {
		c.HistoryTurnsForSemantics = 5
	}
	if c.HistoryTurnsForPlanning == 0 {
		c.HistoryTurnsForPlanning = 3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.DefaultTemperature == 0 {
		c.DefaultTemperature = 0.1
	}
	if c.ProgressQueueCapacity == 0 {
		c.ProgressQueueCapacity = 64
	}
	if c.SourceSnippetMaxChars == 0 {
		c.SourceSnippetMaxChars = 400
	}
	if c.RetryBackoffFactorSeconds == 0 {
		c.RetryBackoffFactorSeconds = 0.1
	}
}

// ============================================================================
// OBSERVABILITY CONFIGURATION
// ============================================================================

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"` // stdout|stderr|file
	Path   string `yaml:"path,omitempty"`
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	switch c.Output {
	case "", "stdout", "stderr", "file":
	default:
		return fmt.Errorf("invalid output destination: %s", c.Output)
	}
	if c.Output == "file" && c.Path == "" {
		return fmt.Errorf("path is required when output is file")
	}
	return nil
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

func (c *TracingConfig) Validate() error {
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when tracing is enabled")
	}
	return nil
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "hectorflow"
	}
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

func (c *MetricsConfig) Validate() error {
	return nil
}

func (c *MetricsConfig) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9090"
	}
}
