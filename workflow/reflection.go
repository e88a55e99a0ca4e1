package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/hectorflow/agent"
	"github.com/kadirpekel/hectorflow/errortypes"
	"github.com/kadirpekel/hectorflow/llms"
)

// ReflectionDeps are the collaborators the Reflection Node needs: a
// planner LLM client and the agent directory, both already
// tenant/role-scoped by the caller.
type ReflectionDeps struct {
	LLM           llms.LLMProvider
	Agents        []agent.Descriptor
	DefaultMaxTokens int
}

const semanticRoutingInstructions = `You are a semantic analyzer. Given the recent conversation and the current query, decide whether this is pure chitchat (greetings, thanks, small talk with no actionable request) or a task requiring tools/real-time data/document lookup. Respond with a single JSON object only, matching this shape:
{
  "detected_language": "<lowercase language name, e.g. english>",
  "is_chitchat": <true|false>,
  "refined_query": "<self-contained restatement of the user's intent, in detected_language>",
  "summary_history": "<one paragraph summary of prior turns, or empty string>"
}`

// RunSemanticDetermination executes LLM call #1 (§4.1 Call 1). On
// parse or validation failure it returns the documented safe default
// rather than an error, per §4.1: "On parse failure, default to
// {is_chitchat=false, refined_query=query, summary_history="",
// detected_language="english"} and continue."
func RunSemanticDetermination(ctx context.Context, deps ReflectionDeps, query string, history []ChatMessage, temperature float64) *SemanticRouting {
	prompt := buildSemanticPrompt(query, history)

	result, err := deps.LLM.Invoke(ctx, prompt, llms.InvokeOptions{
		JSONMode:    true,
		Temperature: temperature,
		MaxTokens:   deps.DefaultMaxTokens,
	})
	if err != nil {
		return defaultSemanticRouting(query)
	}

	if err := ValidateSemanticRouting([]byte(result.Content)); err != nil {
		return defaultSemanticRouting(query)
	}

	var routing SemanticRouting
	var raw struct {
		DetectedLanguage string `json:"detected_language"`
		IsChitchat       bool   `json:"is_chitchat"`
		RefinedQuery     string `json:"refined_query"`
		SummaryHistory   string `json:"summary_history"`
	}
	if err := json.Unmarshal([]byte(result.Content), &raw); err != nil {
		return defaultSemanticRouting(query)
	}
	routing.DetectedLanguage = raw.DetectedLanguage
	routing.IsChitchat = raw.IsChitchat
	routing.RefinedQuery = raw.RefinedQuery
	routing.SummaryHistory = raw.SummaryHistory
	if routing.DetectedLanguage == "" {
		routing.DetectedLanguage = "english"
	}
	return &routing
}

func defaultSemanticRouting(query string) *SemanticRouting {
	return &SemanticRouting{
		DetectedLanguage: "english",
		IsChitchat:       false,
		RefinedQuery:     query,
		SummaryHistory:   "",
	}
}

func buildSemanticPrompt(query string, history []ChatMessage) string {
	var b strings.Builder
	b.WriteString(semanticRoutingInstructions)
	b.WriteString("\n\nRecent conversation:\n")
	for _, turn := range lastN(history, 5) {
		fmt.Fprintf(&b, "%s: %s\n", strings.Title(turn.Role), turn.Content)
	}
	b.WriteString("\nCurrent query:\n")
	b.WriteString(query)
	return b.String()
}

func lastN(history []ChatMessage, n int) []ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// agentsSummaryJSON renders the visible agent set into the compact
// {name, id, tools with access levels} shape the plan prompt expects.
func agentsSummaryJSON(agents []agent.Descriptor) string {
	type toolSummary struct {
		Name        string `json:"name"`
		AccessLevel string `json:"access_level"`
	}
	type agentSummary struct {
		AgentName string        `json:"agent_name"`
		AgentID   string        `json:"agent_id"`
		Tools     []toolSummary `json:"tools"`
	}
	summaries := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		tools := make([]toolSummary, 0, len(a.Tools))
		for _, t := range a.Tools {
			tools = append(tools, toolSummary{Name: t.Name, AccessLevel: string(t.AccessLevel)})
		}
		summaries = append(summaries, agentSummary{AgentName: a.AgentName, AgentID: a.AgentID, Tools: tools})
	}
	data, _ := json.Marshal(summaries)
	return string(data)
}

const planGenerationInstructions = `You are a planning engine. Produce an execution plan as a single JSON object matching this shape:
{
  "total_steps": <int>,
  "steps": [
    {
      "step_number": <1-based int>,
      "tasks": [
        {
          "agent": "<agent_name from the supplied agent list>",
          "agent_id": "<agent_id from the supplied agent list>",
          "purpose": "<prose goal, in detected_language>",
          "tools": [{"tool": "<tool name from that agent's tool list>", "message": "<prompt for that tool>"}],
          "queries": ["<optional per-tool sub-query, index-aligned with tools>"]
        }
      ]
    }
  ]
}
Only use agents and tools from the supplied list. Steps execute in order; tasks within a step run concurrently; tools within a task run in the listed order.`

// RunPlanGeneration executes LLM call #2 (§4.1 Call 2), only when
// routing.IsChitchat is false. It returns a PlanningError on empty
// response, non-JSON response, or schema violation.
func RunPlanGeneration(ctx context.Context, deps ReflectionDeps, routing *SemanticRouting, history []ChatMessage, userCtx UserContext, tenantDatetime string) (*ExecutionPlan, error) {
	prompt := buildPlanPrompt(deps, routing, history, userCtx, tenantDatetime)

	result, err := deps.LLM.Invoke(ctx, prompt, llms.InvokeOptions{
		TenantID:    userCtx.TenantID,
		JSONMode:    true,
		Temperature: userCtx.Temperature,
		MaxTokens:   deps.DefaultMaxTokens,
	})
	if err != nil {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, err)
	}
	if result.Content == "" {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, fmt.Errorf("empty LLM response"))
	}
	if err := ValidateExecutionPlan([]byte(result.Content)); err != nil {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, fmt.Errorf("schema violation: %w", err))
	}

	var raw rawExecutionPlan
	if err := json.Unmarshal([]byte(result.Content), &raw); err != nil {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, fmt.Errorf("invalid JSON: %w", err))
	}

	plan, err := raw.toPlan()
	if err != nil {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, err)
	}

	if err := backfillAgentIDsAndValidate(plan, deps.Agents); err != nil {
		return nil, errortypes.New("reflection.plan_generation", errortypes.KindPlanningError, err)
	}

	return plan, nil
}

type rawToolCall struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

type rawTask struct {
	Agent   string        `json:"agent"`
	AgentID string        `json:"agent_id"`
	Purpose string        `json:"purpose"`
	Tools   []rawToolCall `json:"tools"`
	Queries []string      `json:"queries"`
}

type rawStep struct {
	StepNumber int       `json:"step_number"`
	Tasks      []rawTask `json:"tasks"`
}

type rawExecutionPlan struct {
	TotalSteps int       `json:"total_steps"`
	Steps      []rawStep `json:"steps"`
}

func (r *rawExecutionPlan) toPlan() (*ExecutionPlan, error) {
	if len(r.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	plan := &ExecutionPlan{
		TotalSteps:      r.TotalSteps,
		CurrentStep:     0,
		AggregateStatus: TaskPending,
	}
	if plan.TotalSteps == 0 {
		plan.TotalSteps = len(r.Steps)
	}
	for _, rs := range r.Steps {
		tasks := make([]Task, 0, len(rs.Tasks))
		for _, rt := range rs.Tasks {
			tools := make([]ToolCall, 0, len(rt.Tools))
			for _, rtc := range rt.Tools {
				tools = append(tools, ToolCall{Tool: rtc.Tool, Message: rtc.Message})
			}
			tasks = append(tasks, Task{
				Agent:   rt.Agent,
				AgentID: rt.AgentID,
				Purpose: rt.Purpose,
				Tools:   tools,
				Queries: rt.Queries,
				Status:  TaskPending,
			})
		}
		plan.Steps = append(plan.Steps, Step{
			StepID:            fmt.Sprintf("step_%d", rs.StepNumber),
			StepNumber:        rs.StepNumber,
			ParallelExecution: len(tasks) > 1,
			Status:            TaskPending,
			Tasks:             tasks,
		})
	}
	return plan, nil
}

// backfillAgentIDsAndValidate fills a task's AgentID from the visible
// agent set (case-insensitively by name) when absent, then enforces
// schema closure (§8 invariant 1): every agent_id must be visible and
// every tool must be in that agent's declared tool list.
func backfillAgentIDsAndValidate(plan *ExecutionPlan, agents []agent.Descriptor) error {
	byName := make(map[string]agent.Descriptor, len(agents))
	byID := make(map[string]agent.Descriptor, len(agents))
	for _, a := range agents {
		byName[strings.ToLower(a.AgentName)] = a
		byID[a.AgentID] = a
	}

	for si := range plan.Steps {
		for ti := range plan.Steps[si].Tasks {
			task := &plan.Steps[si].Tasks[ti]
			if task.AgentID == "" {
				if found, ok := byName[strings.ToLower(task.Agent)]; ok {
					task.AgentID = found.AgentID
				}
			}
			descriptor, ok := byID[task.AgentID]
			if !ok {
				return fmt.Errorf("unknown agent_id %q for agent %q", task.AgentID, task.Agent)
			}
			allowedTools := make(map[string]bool, len(descriptor.Tools))
			for _, t := range descriptor.Tools {
				allowedTools[t.Name] = true
			}
			for _, tc := range task.Tools {
				if !allowedTools[tc.Tool] {
					return fmt.Errorf("tool %q is not in agent %q's tool list", tc.Tool, task.Agent)
				}
			}
		}
	}
	return nil
}

func buildPlanPrompt(deps ReflectionDeps, routing *SemanticRouting, history []ChatMessage, userCtx UserContext, tenantDatetime string) string {
	var b strings.Builder
	b.WriteString(planGenerationInstructions)
	fmt.Fprintf(&b, "\n\ndetected_language: %s\naccess_scope: %s\ntenant_timezone: %s\ntenant_current_datetime: %s\n", routing.DetectedLanguage, userCtx.AccessScope, userCtx.Timezone, tenantDatetime)
	b.WriteString("\nRecent conversation:\n")
	for _, turn := range lastN(history, 3) {
		fmt.Fprintf(&b, "%s: %s\n", strings.Title(turn.Role), turn.Content)
	}
	fmt.Fprintf(&b, "\nsummary_history: %s\nrefined_query: %s\n", routing.SummaryHistory, routing.RefinedQuery)
	b.WriteString("\nVisible agents (JSON):\n")
	b.WriteString(agentsSummaryJSON(deps.Agents))
	return b.String()
}

// ResolveAgentProviders resolves agent_providers (§4.1 "Provider
// resolution") for only the agent_ids referenced by plan, returning a
// PlanningError if any referenced agent has no provider configured.
func ResolveAgentProviders(plan *ExecutionPlan, agents []agent.Descriptor, resolve func(providerName string) (ProviderDescriptor, bool)) (map[string]ProviderDescriptor, error) {
	byID := make(map[string]agent.Descriptor, len(agents))
	for _, a := range agents {
		byID[a.AgentID] = a
	}

	referenced := make(map[string]bool)
	for _, step := range plan.Steps {
		for _, task := range step.Tasks {
			referenced[task.AgentID] = true
		}
	}

	out := make(map[string]ProviderDescriptor, len(referenced))
	for agentID := range referenced {
		descriptor, ok := byID[agentID]
		if !ok {
			return nil, errortypes.New("reflection.resolve_providers", errortypes.KindPlanningError, fmt.Errorf("no agent descriptor for %q", agentID))
		}
		provider, ok := resolve(descriptor.ProviderRef.ProviderName)
		if !ok {
			return nil, errortypes.New("reflection.resolve_providers", errortypes.KindPlanningError, fmt.Errorf("no provider config for agent %q (provider %q)", agentID, descriptor.ProviderRef.ProviderName))
		}
		provider.Model = descriptor.ProviderRef.Model
		out[agentID] = provider
	}
	return out, nil
}

// InjectDatetimeToolContext rewrites any ToolCall whose tool is
// "datetime" to carry the tenant-datetime block, per §4.1 "Datetime
// injection".
func InjectDatetimeToolContext(plan *ExecutionPlan, timezone string, isoDatetime time.Time) {
	iso := isoDatetime.Format(time.RFC3339)
	for si := range plan.Steps {
		for ti := range plan.Steps[si].Tasks {
			task := &plan.Steps[si].Tasks[ti]
			for qi := range task.Tools {
				if task.Tools[qi].Tool != "datetime" {
					continue
				}
				task.Tools[qi].Message = InjectTenantDatetimeContext(task.Tools[qi].Message, timezone, iso)
				if qi < len(task.Queries) {
					task.Queries[qi] = InjectTenantDatetimeContext(task.Queries[qi], timezone, iso)
				}
			}
		}
	}
}
