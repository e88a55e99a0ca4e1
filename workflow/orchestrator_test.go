package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kadirpekel/hectorflow/agent"
	"github.com/kadirpekel/hectorflow/llms"
	"github.com/kadirpekel/hectorflow/tools"
)

// fakeDirectory is a workflow.AgentDirectory test double.
type fakeDirectory struct {
	agents []agent.Descriptor
	err    error
}

func (f *fakeDirectory) GetVisibleAgents(ctx context.Context, tenantID string, role agent.Role, departmentID string) ([]agent.Descriptor, error) {
	return f.agents, f.err
}

func newTestLLMRegistry(t *testing.T, entries map[string]llms.LLMProvider) *llms.LLMRegistry {
	t.Helper()
	reg := llms.NewLLMRegistry()
	for name, provider := range entries {
		require.NoError(t, reg.RegisterLLM(name, provider))
	}
	return reg
}

func baseEngine(t *testing.T, reflectionLLM, conflictLLM, errorLLM llms.LLMProvider, directory AgentDirectory, executor tools.AgentExecutor) *Engine {
	t.Helper()
	return &Engine{
		Agents:             directory,
		LLMs:               newTestLLMRegistry(t, map[string]llms.LLMProvider{"reflection": reflectionLLM, "conflict": conflictLLM, "error": errorLLM}),
		Executor:           executor,
		Tracer:             noop.NewTracerProvider().Tracer("test"),
		ReflectionProvider: "reflection",
		ConflictProvider:   "conflict",
		ErrorProvider:      "error",
		DefaultMaxTokens:   100,
		ResolveProvider: func(providerName, tenantID string) (ProviderDescriptor, bool) {
			return ProviderDescriptor{ProviderName: providerName, APIKey: "key"}, true
		},
		Now: func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) },
	}
}

func TestEngineRunChitchatPathSkipsPlanningAndExecution(t *testing.T) {
	reflectionLLM := &fakeLLM{responses: []string{`{"detected_language":"english","is_chitchat":true,"refined_query":"hi"}`}}
	engine := baseEngine(t, reflectionLLM, nil, nil, &fakeDirectory{}, &fakeExecutor{})
	bus := NewProgressBus(32, nil, nil)

	final := engine.Run(context.Background(), RunRequest{Query: "hi", UserContext: UserContext{TenantID: "t1"}}, bus)
	bus.Close()

	assert.Equal(t, "completed", final.ProcessingStatus)
	assert.Equal(t, "Hello! How can I help you today?", final.FinalResponse)
}

func TestEngineRunSingleAgentPathReachesFinalResponse(t *testing.T) {
	descriptors := []agent.Descriptor{
		{AgentID: "agent-1", AgentName: "Search Agent", Tools: []agent.Tool{{Name: "search"}}, ProviderRef: agent.ProviderRef{ProviderName: "openai"}},
	}
	planJSON := `{"steps":[{"step_number":1,"tasks":[{"agent":"Search Agent","agent_id":"agent-1","purpose":"search","tools":[{"tool":"search","message":"go"}]}]}]}`
	reflectionLLM := &fakeLLM{responses: []string{
		`{"detected_language":"english","is_chitchat":false,"refined_query":"find docs"}`,
		planJSON,
	}}
	executor := &fakeExecutor{}
	engine := baseEngine(t, reflectionLLM, nil, nil, &fakeDirectory{agents: descriptors}, executor)
	bus := NewProgressBus(32, nil, nil)

	final := engine.Run(context.Background(), RunRequest{Query: "find docs", UserContext: UserContext{TenantID: "t1", Role: "USER"}}, bus)
	bus.Close()

	assert.Equal(t, "completed", final.ProcessingStatus)
	assert.Contains(t, final.FinalResponse, "ok:go")
}

func TestEngineRunMultiAgentPathReachesConflictResolver(t *testing.T) {
	descriptors := []agent.Descriptor{
		{AgentID: "agent-1", AgentName: "A1", Tools: []agent.Tool{{Name: "search"}}, ProviderRef: agent.ProviderRef{ProviderName: "openai"}},
		{AgentID: "agent-2", AgentName: "A2", Tools: []agent.Tool{{Name: "search"}}, ProviderRef: agent.ProviderRef{ProviderName: "anthropic"}},
	}
	planJSON := `{"steps":[{"step_number":1,"tasks":[
		{"agent":"A1","agent_id":"agent-1","purpose":"p1","tools":[{"tool":"search","message":"m1"}]},
		{"agent":"A2","agent_id":"agent-2","purpose":"p2","tools":[{"tool":"search","message":"m2"}]}
	]}]}`
	reflectionLLM := &fakeLLM{responses: []string{
		`{"detected_language":"english","is_chitchat":false,"refined_query":"find docs"}`,
		planJSON,
	}}
	conflictLLM := &fakeLLM{responses: []string{`{"final_answer":"combined","winning_agents":["A1","A2"],"resolution_method":"consensus_voting"}`}}
	executor := &fakeExecutor{}
	engine := baseEngine(t, reflectionLLM, conflictLLM, nil, &fakeDirectory{agents: descriptors}, executor)
	bus := NewProgressBus(32, nil, nil)

	final := engine.Run(context.Background(), RunRequest{Query: "find docs", UserContext: UserContext{TenantID: "t1"}}, bus)
	bus.Close()

	assert.Equal(t, "completed", final.ProcessingStatus)
	assert.Contains(t, final.FinalResponse, "combined")
}

func TestEngineRunDirectoryErrorProducesFailedFinal(t *testing.T) {
	reflectionLLM := &fakeLLM{responses: []string{`{"detected_language":"english","is_chitchat":false,"refined_query":"q"}`}}
	engine := baseEngine(t, reflectionLLM, nil, nil, &fakeDirectory{err: errors.New("registry down")}, &fakeExecutor{})
	bus := NewProgressBus(32, nil, nil)

	final := engine.Run(context.Background(), RunRequest{Query: "q", UserContext: UserContext{TenantID: "t1"}}, bus)
	bus.Close()

	assert.Equal(t, "failed", final.ProcessingStatus)
}

func TestEngineRunCancelledContextShortCircuits(t *testing.T) {
	engine := baseEngine(t, &fakeLLM{}, nil, nil, &fakeDirectory{}, &fakeExecutor{})
	bus := NewProgressBus(32, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final := engine.Run(ctx, RunRequest{Query: "q", UserContext: UserContext{TenantID: "t1"}}, bus)
	bus.Close()

	assert.Equal(t, "failed", final.ProcessingStatus)
}

func TestEngineRunEmitsExactlyOneTerminalEvent(t *testing.T) {
	reflectionLLM := &fakeLLM{responses: []string{`{"detected_language":"english","is_chitchat":true,"refined_query":"hi"}`}}
	engine := baseEngine(t, reflectionLLM, nil, nil, &fakeDirectory{}, &fakeExecutor{})
	bus := NewProgressBus(32, nil, nil)

	engine.Run(context.Background(), RunRequest{Query: "hi", UserContext: UserContext{TenantID: "t1"}}, bus)
	bus.Close()

	terminalCount := 0
	for ev := range bus.Events() {
		if ev.Node == string(NodeTerminate) {
			terminalCount++
		}
	}
	assert.Equal(t, 1, terminalCount)
}
