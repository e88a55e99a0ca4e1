package llms

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps an LLMProvider with a per-provider token
// bucket, so a single misbehaving tenant or a reflection retry storm
// cannot exhaust a shared provider's request quota.
type RateLimitedProvider struct {
	inner   LLMProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps inner with a limiter allowing
// requestsPerSecond sustained calls and burst concurrent calls.
func NewRateLimitedProvider(inner LLMProvider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (p *RateLimitedProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return p.inner.Invoke(ctx, prompt, opts)
}

func (p *RateLimitedProvider) ModelName() string     { return p.inner.ModelName() }
func (p *RateLimitedProvider) MaxTokens() int         { return p.inner.MaxTokens() }
func (p *RateLimitedProvider) Temperature() float64   { return p.inner.Temperature() }
func (p *RateLimitedProvider) Close() error           { return p.inner.Close() }
