package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorflow/tools"
)

// fakeExecutor is a tools.AgentExecutor test double keyed by tool name,
// with an optional per-tool failure count before it starts succeeding.
type fakeExecutor struct {
	mu           sync.Mutex
	failuresLeft map[string]int
	calls        int32
	results      map[string]*tools.Result
}

func (f *fakeExecutor) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.failuresLeft[call.ToolName]; n > 0 {
		f.failuresLeft[call.ToolName] = n - 1
		return nil, errors.New("transient failure")
	}
	if f.results != nil {
		if r, ok := f.results[call.ToolName]; ok {
			return r, nil
		}
	}
	return &tools.Result{Content: "ok:" + call.Query, Confidence: 0.9}, nil
}

func noSleep(time.Duration) {}

func TestRunTaskOnceErrorsWhenNoProviderResolved(t *testing.T) {
	task := &Task{AgentID: "missing", Tools: []ToolCall{{Tool: "search", Message: "q"}}}
	deps := ExecutorDeps{Executor: &fakeExecutor{}, Providers: map[string]ProviderDescriptor{}}

	_, err := runTaskOnce(context.Background(), task, UserContext{}, "english", deps)

	assert.Error(t, err)
}

func TestRunTaskOncePipesPriorOutputIntoNextTool(t *testing.T) {
	task := &Task{
		AgentID: "agent-1",
		Tools: []ToolCall{
			{Tool: "search", Message: "first"},
			{Tool: "summarize", Message: "second"},
		},
	}
	exec := &fakeExecutor{}
	deps := ExecutorDeps{Executor: exec, Providers: map[string]ProviderDescriptor{"agent-1": {ProviderName: "openai"}}}

	resp, err := runTaskOnce(context.Background(), task, UserContext{}, "english", deps)

	require.NoError(t, err)
	assert.Equal(t, []string{"search", "summarize"}, resp.ToolsUsed)
	assert.Contains(t, resp.Content, "second")
	assert.Contains(t, resp.Content, previousToolsContextMarker)
}

func TestRunTaskWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	task := &Task{AgentID: "agent-1", Agent: "Search Agent", Tools: []ToolCall{{Tool: "search", Message: "q"}}, Status: TaskPending}
	exec := &fakeExecutor{failuresLeft: map[string]int{"search": 2}}
	bus := NewProgressBus(16, nil, nil)
	deps := ExecutorDeps{
		Executor:  exec,
		Bus:       bus,
		Providers: map[string]ProviderDescriptor{"agent-1": {ProviderName: "openai"}},
		Sleep:     noSleep,
	}

	runTaskWithRetry(context.Background(), task, 0, UserContext{}, "english", deps)

	assert.Equal(t, TaskCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "completed", task.Result.Status)
	assert.Equal(t, 3, task.RetryAttempts)
	assert.Len(t, task.RetryHistory, 2)
}

func TestRunTaskWithRetryFailsAfterMaxRetries(t *testing.T) {
	task := &Task{AgentID: "agent-1", Agent: "Search Agent", Tools: []ToolCall{{Tool: "search", Message: "q"}}, Status: TaskPending}
	exec := &fakeExecutor{failuresLeft: map[string]int{"search": MaxTaskRetries}}
	bus := NewProgressBus(16, nil, nil)
	deps := ExecutorDeps{
		Executor:  exec,
		Bus:       bus,
		Providers: map[string]ProviderDescriptor{"agent-1": {ProviderName: "openai"}},
		Sleep:     noSleep,
	}

	runTaskWithRetry(context.Background(), task, 0, UserContext{}, "english", deps)

	assert.Equal(t, TaskFailed, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "failed", task.Result.Status)
	assert.Len(t, task.RetryHistory, MaxTaskRetries)
}

func TestInjectRetryErrorIntoTaskOnlyRewritesFirstToolMessage(t *testing.T) {
	task := &Task{Tools: []ToolCall{{Tool: "a", Message: "first"}, {Tool: "b", Message: "second"}}}

	injectRetryErrorIntoTask(task, 1, "boom")

	assert.Contains(t, task.Tools[0].Message, "PREVIOUS ATTEMPT ERROR DETAILS")
	assert.NotContains(t, task.Tools[1].Message, "PREVIOUS ATTEMPT ERROR DETAILS")
	assert.Equal(t, "second", task.Tools[1].Message)
}

func TestStatusColorMatchesStateMachineColors(t *testing.T) {
	assert.Equal(t, "primary", statusColor(TaskPending))
	assert.Equal(t, "primary", statusColor(TaskInProgress))
	assert.Equal(t, "danger", statusColor(TaskRetrying))
	assert.Equal(t, "success", statusColor(TaskCompleted))
	assert.Equal(t, "danger", statusColor(TaskFailed))
}

func TestRunTaskWithRetrySetsEnhancedSuccessAfterRetry(t *testing.T) {
	task := &Task{AgentID: "agent-1", Agent: "Search Agent", Tools: []ToolCall{{Tool: "search", Message: "q"}}, Status: TaskPending}
	exec := &fakeExecutor{failuresLeft: map[string]int{"search": 1}}
	bus := NewProgressBus(16, nil, nil)
	deps := ExecutorDeps{
		Executor:  exec,
		Bus:       bus,
		Providers: map[string]ProviderDescriptor{"agent-1": {ProviderName: "openai"}},
		Sleep:     noSleep,
	}

	runTaskWithRetry(context.Background(), task, 0, UserContext{}, "english", deps)
	bus.Close()

	var sawEnhancedSuccess bool
	for ev := range bus.Events() {
		if ev.TaskStatusUpdate != nil && ev.TaskStatusUpdate.Type == "task_completed" {
			sawEnhancedSuccess = ev.TaskStatusUpdate.EnhancedSuccess
			assert.Equal(t, "success", ev.TaskStatusUpdate.Color)
		}
	}
	assert.True(t, sawEnhancedSuccess)
}

func TestDetermineNextActionZeroSuccessesIsError(t *testing.T) {
	got := determineNextAction([]AgentResponse{{Status: "failed"}})
	assert.Equal(t, ActionError, got)
}

func TestDetermineNextActionSingleDistinctAgentSkipsConflictResolution(t *testing.T) {
	got := determineNextAction([]AgentResponse{{AgentName: "a1", Status: "completed"}, {AgentName: "a1", Status: "failed"}})
	assert.Equal(t, ActionFinalResponse, got)
}

func TestDetermineNextActionTwoDistinctAgentsRequiresConflictResolution(t *testing.T) {
	got := determineNextAction([]AgentResponse{{AgentName: "a1", Status: "completed"}, {AgentName: "a2", Status: "completed"}})
	assert.Equal(t, ActionConflictResolution, got)
}

func TestCollectResponsesSkipsUnsettledTasks(t *testing.T) {
	plan := &ExecutionPlan{Steps: []Step{
		{Tasks: []Task{
			{Result: &AgentResponse{AgentName: "a1"}},
			{Result: nil},
		}},
	}}

	got := collectResponses(plan)

	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].AgentName)
}

func TestRunPlanExecutesStepsSequentiallyAndFansOutTasks(t *testing.T) {
	plan := &ExecutionPlan{
		TotalSteps: 2,
		Steps: []Step{
			{StepNumber: 1, Tasks: []Task{
				{AgentID: "agent-1", Agent: "A1", Tools: []ToolCall{{Tool: "search", Message: "q1"}}},
				{AgentID: "agent-2", Agent: "A2", Tools: []ToolCall{{Tool: "search", Message: "q2"}}},
			}},
			{StepNumber: 2, Tasks: []Task{
				{AgentID: "agent-1", Agent: "A1", Tools: []ToolCall{{Tool: "search", Message: "q3"}}},
			}},
		},
	}
	exec := &fakeExecutor{}
	bus := NewProgressBus(64, nil, nil)
	deps := ExecutorDeps{
		Executor: exec,
		Bus:      bus,
		Providers: map[string]ProviderDescriptor{
			"agent-1": {ProviderName: "openai"},
			"agent-2": {ProviderName: "anthropic"},
		},
		Sleep: noSleep,
	}

	responses, nextAction := RunPlan(context.Background(), plan, UserContext{}, "english", deps)

	require.Len(t, responses, 3)
	assert.Equal(t, ActionConflictResolution, nextAction)
	assert.Equal(t, TaskCompleted, plan.Steps[0].Status)
	assert.Equal(t, TaskCompleted, plan.Steps[1].Status)
	assert.EqualValues(t, 3, exec.calls)
}

func TestFormatRetryHistorySummary(t *testing.T) {
	got := formatRetryHistorySummary([]RetryRecord{{Attempt: 1}, {Attempt: 2}})
	assert.Equal(t, "attempt 1, attempt 2", got)
}
