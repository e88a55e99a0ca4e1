package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/hectorflow/errortypes"
	"github.com/kadirpekel/hectorflow/localization"
	"github.com/kadirpekel/hectorflow/tools"
)

// MaxTaskRetries is §4.2's MAX_RETRY.
const MaxTaskRetries = 3

// ExecutorDeps are the collaborators the Executor Node needs.
type ExecutorDeps struct {
	Executor  tools.AgentExecutor
	Bus       *ProgressBus
	Providers map[string]ProviderDescriptor
	Sleep     func(d time.Duration) // overridable in tests; defaults to time.Sleep
}

func (d ExecutorDeps) sleep(dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(dur)
		return
	}
	time.Sleep(dur)
}

const previousToolsContextMarker = "CONTEXT FROM PREVIOUS TOOLS"

// RunPlan executes plan step by step (strictly sequential), fanning
// tasks within a step out concurrently, per §5. It mutates plan's Task
// and Step statuses in place and returns the settled AgentResponses in
// task order, alongside the aggregate routing decision for the node
// that follows (§4.2 "routing decision logic").
func RunPlan(ctx context.Context, plan *ExecutionPlan, userCtx UserContext, detectedLanguage string, deps ExecutorDeps) ([]AgentResponse, string) {
	deps.Bus.Emit(ProgressEvent{
		Node:             string(NodeExecutor),
		ProcessingStatus: "plan_ready",
		ProgressMessage:  "plan_ready",
		TotalSteps:       plan.TotalSteps,
	})

	for si := range plan.Steps {
		step := &plan.Steps[si]
		plan.CurrentStep = step.StepNumber
		step.Status = TaskInProgress

		if err := runStep(ctx, plan, step, userCtx, detectedLanguage, deps); err != nil {
			step.Status = TaskFailed
		} else {
			step.Status = TaskCompleted
		}

		emitStepProgress(plan, step, deps)

		if ctx.Err() != nil {
			break
		}
	}

	responses := collectResponses(plan)
	return responses, determineNextAction(responses)
}

func runStep(ctx context.Context, plan *ExecutionPlan, step *Step, userCtx UserContext, detectedLanguage string, deps ExecutorDeps) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for ti := range step.Tasks {
		task := &step.Tasks[ti]
		taskIndex := ti
		group.Go(func() error {
			runTaskWithRetry(groupCtx, task, taskIndex, userCtx, detectedLanguage, deps)
			return nil
		})
	}

	return group.Wait()
}

func runTaskWithRetry(ctx context.Context, task *Task, taskIndex int, userCtx UserContext, detectedLanguage string, deps ExecutorDeps) {
	task.Status = TaskInProgress
	deps.Bus.Emit(ProgressEvent{
		Node:             string(NodeExecutor),
		ProcessingStatus: "task_started",
		ProgressMessage:  "executing_agents",
		TaskStatusUpdate: &TaskStatusUpdate{Type: "task_started", TaskIndex: taskIndex, Status: string(TaskInProgress), Color: statusColor(TaskInProgress)},
	})

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= MaxTaskRetries; attempt++ {
		if attempt > 1 {
			task.Status = TaskRetrying
			deps.Bus.Emit(ProgressEvent{
				Node:             string(NodeExecutor),
				ProcessingStatus: "task_retry",
				ProgressMessage:  "executing_agents",
				TaskStatusUpdate: &TaskStatusUpdate{Type: "task_retry", TaskIndex: taskIndex, Status: string(TaskRetrying), Attempt: attempt, Color: statusColor(TaskRetrying)},
			})
			deps.sleep(time.Duration(float64(100*attempt)) * time.Millisecond)
			injectRetryErrorIntoTask(task, attempt-1, lastErr.Error())
			task.Status = TaskInProgress
		}

		response, err := runTaskOnce(ctx, task, userCtx, detectedLanguage, deps)
		task.RetryAttempts = attempt
		if err == nil {
			enhancedSuccess := attempt > 1
			response.ExecutionSeconds = time.Since(start).Seconds()
			response.Attempts = attempt
			response.RetryHistory = task.RetryHistory
			response.Status = "completed"
			task.Result = response
			task.Status = TaskCompleted
			progressMessage := "executing_agents"
			if enhancedSuccess {
				progressMessage = localization.ProgressMessage("task_recovered", detectedLanguage)
			}
			deps.Bus.Emit(ProgressEvent{
				Node:             string(NodeExecutor),
				ProcessingStatus: "task_completed",
				ProgressMessage:  progressMessage,
				TaskStatusUpdate: &TaskStatusUpdate{Type: "task_completed", TaskIndex: taskIndex, Status: string(TaskCompleted), Attempt: attempt, Color: statusColor(TaskCompleted), EnhancedSuccess: enhancedSuccess},
			})
			return
		}

		lastErr = err
		task.RetryHistory = append(task.RetryHistory, RetryRecord{Attempt: attempt, Error: err.Error()})
	}

	task.Status = TaskFailed
	task.Result = &AgentResponse{
		AgentName:        task.Agent,
		Status:           "failed",
		Attempts:         MaxTaskRetries,
		RetryHistory:     task.RetryHistory,
		ExecutionSeconds: time.Since(start).Seconds(),
		Error:            lastErr.Error(),
	}
	deps.Bus.Emit(ProgressEvent{
		Node:             string(NodeExecutor),
		ProcessingStatus: "task_failed",
		ProgressMessage:  "executing_agents",
		TaskStatusUpdate: &TaskStatusUpdate{Type: "task_failed", TaskIndex: taskIndex, Status: string(TaskFailed), Attempt: MaxTaskRetries, Color: statusColor(TaskFailed)},
	})
}

// injectRetryErrorIntoTask suffixes the first tool's message with the
// latest failure, per §4.2/§12.1: only the first tool carries the
// PREVIOUS ATTEMPT ERROR DETAILS block.
func injectRetryErrorIntoTask(task *Task, attempt int, errMsg string) {
	if len(task.Tools) == 0 {
		return
	}
	task.Tools[0].Message = InjectRetryErrorContext(task.Tools[0].Message, attempt, errMsg)
}

// statusColor maps a task status to its UI color (§4.7).
func statusColor(status TaskStatus) string {
	switch status {
	case TaskRetrying, TaskFailed:
		return "danger"
	case TaskCompleted:
		return "success"
	default:
		return "primary"
	}
}

// statusSeverity maps a task status to its TaskView severity (§6.2).
func statusSeverity(status TaskStatus) string {
	switch status {
	case TaskPending:
		return "pending"
	case TaskCompleted:
		return "success"
	case TaskFailed, TaskRetrying:
		return "danger"
	default:
		return "info"
	}
}

// runTaskOnce sequentially invokes every tool in task, piping each
// tool's output into the next tool's message as context, per §5 "tools
// within a task strictly sequential".
func runTaskOnce(ctx context.Context, task *Task, userCtx UserContext, detectedLanguage string, deps ExecutorDeps) (*AgentResponse, error) {
	provider, ok := deps.Providers[task.AgentID]
	if !ok {
		return nil, errortypes.New("executor.run_task", errortypes.KindExecutionError, fmt.Errorf("no provider resolved for agent %q", task.AgentID))
	}

	var priorOutput string
	var toolsUsed []string
	var sources []map[string]interface{}
	var lastContent string
	var confidence float64

	for ti, tc := range task.Tools {
		message := tc.Message
		if priorOutput != "" {
			message = fmt.Sprintf("%s\n\n--- %s ---\n%s\n\n%s", message, previousToolsContextMarker, priorOutput, tc.Message)
		}

		call := tools.Call{
			AgentID:          task.AgentID,
			ToolName:         tc.Tool,
			Query:            message,
			DetectedLanguage: detectedLanguage,
			Provider:         provider.ProviderName,
			User: tools.UserContext{
				UserID:       userCtx.UserID,
				TenantID:     userCtx.TenantID,
				Role:         userCtx.Role,
				DepartmentID: userCtx.DepartmentID,
			},
		}

		result, err := deps.Executor.Execute(ctx, call)
		if err != nil {
			return nil, errortypes.New("executor.run_task", errortypes.KindExecutionError, fmt.Errorf("tool %q (step %d of task): %w", tc.Tool, ti+1, err))
		}

		priorOutput = result.Content
		lastContent = result.Content
		confidence = result.Confidence
		toolsUsed = append(toolsUsed, tc.Tool)
		sources = append(sources, result.Sources...)
	}

	normalized := make([]NormalizedSource, 0, len(sources))
	for _, s := range sources {
		normalized = append(normalized, NormalizeSource(s, 400))
	}

	return &AgentResponse{
		AgentName:  task.Agent,
		Content:    lastContent,
		Confidence: confidence,
		Sources:    MergeAndDedupeSources(normalized),
		ToolsUsed:  toolsUsed,
	}, nil
}

func collectResponses(plan *ExecutionPlan) []AgentResponse {
	var out []AgentResponse
	for _, step := range plan.Steps {
		for _, task := range step.Tasks {
			if task.Result != nil {
				out = append(out, *task.Result)
			}
		}
	}
	return out
}

// determineNextAction implements §4.2's routing decision: zero
// successes is an error; exactly one distinct successful agent skips
// conflict resolution; two or more distinct successful agents require it.
func determineNextAction(responses []AgentResponse) string {
	distinct := make(map[string]bool)
	successes := 0
	for _, r := range responses {
		if r.Status == "completed" {
			successes++
			distinct[r.AgentName] = true
		}
	}
	switch {
	case successes == 0:
		return ActionError
	case len(distinct) <= 1:
		return ActionFinalResponse
	default:
		return ActionConflictResolution
	}
}

func emitStepProgress(plan *ExecutionPlan, step *Step, deps ExecutorDeps) {
	views := taskViewsForStep(step)
	deps.Bus.Emit(ProgressEvent{
		Node:               string(NodeExecutor),
		ProcessingStatus:   "executing_agents",
		ProgressPercentage: TaskProgressPercentage(views),
		ProgressMessage:    "executing_agents",
		CurrentStep:        plan.CurrentStep,
		TotalSteps:         plan.TotalSteps,
		FormattedTasks:     views,
	})
}

func taskViewsForStep(step *Step) []TaskView {
	views := make([]TaskView, 0, len(step.Tasks))
	for i, t := range step.Tasks {
		messages := make(map[string]string, len(t.Tools))
		for ti, tc := range t.Tools {
			messages[fmt.Sprintf("%d", ti+1)] = tc.Message
		}
		views = append(views, TaskView{
			TaskName:      t.Agent,
			Purpose:       t.Purpose,
			Agent:         t.Agent,
			TaskIndex:     i,
			Messages:      messages,
			Status:        string(t.Status),
			Severity:      statusSeverity(t.Status),
			Color:         statusColor(t.Status),
			RetryCount:    t.RetryAttempts,
			MaxRetries:    MaxTaskRetries,
			RetryAttempts: t.RetryAttempts,
			RetryHistory:  t.RetryHistory,
			Result:        t.Result,
		})
	}
	return views
}

// formattedTasksFromPlan flattens every step's tasks into the
// engine-wide FormattedTasks view the State Store carries (§3.7).
func formattedTasksFromPlan(plan *ExecutionPlan) []TaskView {
	var views []TaskView
	for si := range plan.Steps {
		views = append(views, taskViewsForStep(&plan.Steps[si])...)
	}
	return views
}

// formatRetryHistorySummary describes a failed task's attempts by
// number only, without leaking Go error internals (§4.5: name failures
// by agent, never by exception class). The error node does not call it.
func formatRetryHistorySummary(history []RetryRecord) string {
	parts := make([]string, 0, len(history))
	for _, h := range history {
		parts = append(parts, fmt.Sprintf("attempt %d", h.Attempt))
	}
	return strings.Join(parts, ", ")
}
