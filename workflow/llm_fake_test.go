package workflow

import (
	"context"
	"errors"

	"github.com/kadirpekel/hectorflow/llms"
)

// fakeLLM is a minimal llms.LLMProvider test double: it returns
// responses in order, or an error once invocations exceed len(responses).
type fakeLLM struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeLLM) Invoke(ctx context.Context, prompt string, opts llms.InvokeOptions) (*llms.InvokeResult, error) {
	defer func() { f.calls++ }()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.responses) {
		return nil, errors.New("fakeLLM: no more canned responses")
	}
	return &llms.InvokeResult{Content: f.responses[f.calls]}, nil
}

func (f *fakeLLM) ModelName() string     { return "fake-model" }
func (f *fakeLLM) MaxTokens() int        { return 4096 }
func (f *fakeLLM) Temperature() float64  { return 0 }
func (f *fakeLLM) Close() error          { return nil }
