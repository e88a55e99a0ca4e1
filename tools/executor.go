// Package tools implements the client side of the Agent Executor
// collaborator interface. The engine never runs a tool itself; it
// sends one opaque call per tool and reports whatever the executor
// returns, including failures, back up through task retry.
package tools

import (
	"context"
)

// UserContext is the caller-scoped identity threaded into every tool
// call so the executor can apply its own authorization and audit rules.
type UserContext struct {
	UserID       string
	TenantID     string
	Role         string
	DepartmentID string
}

// Call describes one opaque tool invocation.
type Call struct {
	AgentID         string
	ToolName        string
	Query           string
	User            UserContext
	DetectedLanguage string
	Provider        string
}

// Result is what the executor reports back. The engine never inspects
// Content structurally; Sources and Confidence feed conflict resolution.
type Result struct {
	Content    string
	Confidence float64
	Sources    []map[string]interface{}
	Metadata   map[string]interface{}
}

// AgentExecutor is the collaborator interface the workflow engine
// depends on for every tool call a task makes. Implementations are
// free to transport this however they like (HTTP, gRPC, in-process);
// the engine only ever calls Execute.
type AgentExecutor interface {
	Execute(ctx context.Context, call Call) (*Result, error)
}
