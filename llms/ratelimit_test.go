package llms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	model string
}

func (p *countingProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	p.calls++
	return &InvokeResult{Content: "ok"}, nil
}
func (p *countingProvider) ModelName() string    { return p.model }
func (p *countingProvider) MaxTokens() int       { return 2048 }
func (p *countingProvider) Temperature() float64 { return 0.5 }
func (p *countingProvider) Close() error         { return nil }

func TestRateLimitedProviderDelegatesCapabilityMethods(t *testing.T) {
	inner := &countingProvider{model: "gpt-4o"}
	wrapped := NewRateLimitedProvider(inner, 10, 5)

	assert.Equal(t, "gpt-4o", wrapped.ModelName())
	assert.Equal(t, 2048, wrapped.MaxTokens())
	assert.Equal(t, 0.5, wrapped.Temperature())
	require.NoError(t, wrapped.Close())
}

func TestRateLimitedProviderAllowsBurstThenInvokesInner(t *testing.T) {
	inner := &countingProvider{model: "gpt-4o"}
	wrapped := NewRateLimitedProvider(inner, 1, 3)

	for i := 0; i < 3; i++ {
		_, err := wrapped.Invoke(context.Background(), "hi", InvokeOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, inner.calls)
}

func TestRateLimitedProviderWaitRespectsContextCancellation(t *testing.T) {
	inner := &countingProvider{model: "gpt-4o"}
	// burst of 1 so the second call must wait on the limiter
	wrapped := NewRateLimitedProvider(inner, 0.001, 1)

	_, err := wrapped.Invoke(context.Background(), "first", InvokeOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = wrapped.Invoke(ctx, "second", InvokeOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestNewRateLimitedProviderDefaultsNonPositiveBurstToOne(t *testing.T) {
	wrapped := NewRateLimitedProvider(&countingProvider{}, 1, 0)
	assert.Equal(t, 1, wrapped.limiter.Burst())
}
