// Package llms adapts concrete LLM SDKs (Anthropic, OpenAI, and
// Ollama's OpenAI-compatible endpoint) behind one provider interface the
// workflow engine invokes with a tenant-scoped API key per call.
package llms

import (
	"context"
	"time"
)

// InvokeOptions carries the per-call parameters the engine controls.
// TenantID selects which API key a multi-key provider uses; JSONMode asks
// the provider to constrain output to a single JSON value (the
// reflection and conflict-resolution calls rely on this, though the
// engine never trusts JSON-mode alone — see workflow/schemas.go).
type InvokeOptions struct {
	TenantID    string
	JSONMode    bool
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// InvokeResult is the provider's response to one Invoke call.
type InvokeResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// LLMProvider is the capability set the workflow engine depends on. Real
// adapters (AnthropicProvider, OpenAIProvider) and test doubles both
// satisfy it, per the testability design note.
type LLMProvider interface {
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error)
	ModelName() string
	MaxTokens() int
	Temperature() float64
	Close() error
}
