// Package config provides the unified configuration entry point for the
// workflow engine: provider credentials, cache connection, and tunables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for one engine instance.
type Config struct {
	Version     string            `yaml:"version,omitempty"`
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	LLMProviders  map[string]LLMProviderConfig `yaml:"llm_providers,omitempty"`
	NodeProviders NodeProvidersConfig          `yaml:"node_providers,omitempty"`
	AgentRegistry AgentRegistryConfig          `yaml:"agent_registry,omitempty"`
	AgentExecutor AgentExecutorConfig          `yaml:"agent_executor,omitempty"`
	Engine        EngineConfig                 `yaml:"engine,omitempty"`
}

func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config validation failed: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config validation failed: %w", err)
	}
	for name, llm := range c.LLMProviders {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm provider '%s' validation failed: %w", name, err)
		}
	}
	if err := c.AgentRegistry.Validate(); err != nil {
		return fmt.Errorf("agent_registry validation failed: %w", err)
	}
	if err := c.AgentExecutor.Validate(); err != nil {
		return fmt.Errorf("agent_executor validation failed: %w", err)
	}
	if err := c.NodeProviders.Validate(); err != nil {
		return fmt.Errorf("node_providers validation failed: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine validation failed: %w", err)
	}
	return nil
}

func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()

	if c.LLMProviders == nil {
		c.LLMProviders = make(map[string]LLMProviderConfig)
	}
	for name := range c.LLMProviders {
		llm := c.LLMProviders[name]
		llm.SetDefaults()
		c.LLMProviders[name] = llm
	}

	c.AgentRegistry.SetDefaults()
	c.AgentExecutor.SetDefaults()
	c.NodeProviders.SetDefaults()
	c.Engine.SetDefaults()
}

// LoadConfig loads and validates configuration from a YAML file.
// `${VAR}` sequences in the raw file are expanded against the process
// environment before parsing, so secrets (API keys, Redis passwords)
// never need to be committed alongside the rest of the config.
func LoadConfig(filePath string) (*Config, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	return LoadConfigFromString(string(raw))
}

// LoadConfigFromString loads configuration from a YAML string, applying
// the same environment expansion and default/validate pipeline as
// LoadConfig.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	expanded := expandEnvVars(yamlContent)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetLLMProvider returns a named LLM provider configuration.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, bool) {
	p, exists := c.LLMProviders[name]
	return &p, exists
}

// ListLLMProviders returns the configured provider names.
func (c *Config) ListLLMProviders() []string {
	names := make([]string, 0, len(c.LLMProviders))
	for name := range c.LLMProviders {
		names = append(names, name)
	}
	return names
}
