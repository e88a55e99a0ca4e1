// Package workflow implements the per-request orchestration graph:
// reflection, execution, conflict resolution, and final-response nodes
// threaded together by a pure router over a typed, partially-mergeable
// state value.
package workflow

import "time"

// TaskStatus is the authoritative per-task state machine (§4.7):
// pending -> in_progress -> (completed | retrying -> in_progress | failed).
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskRetrying   TaskStatus = "retrying"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskPartial    TaskStatus = "partial"
)

// Role mirrors agent.Role; kept distinct so the workflow package does
// not need to import agent for a single enum.
type Role string

// ChatMessage is one turn of prior conversation.
type ChatMessage struct {
	Role    string // user | assistant | system
	Content string
}

// UserContext is immutable input to every run (§3.1).
type UserContext struct {
	UserID       string
	TenantID     string
	DepartmentID string
	Role         string
	AccessScope  string // public | private | both
	Timezone     string
	Locale       string
	ProviderName string
	Temperature  float64
}

// RetryRecord is one failed attempt.
type RetryRecord struct {
	Attempt int
	Error   string
}

// ToolCall is one step of a task's sequential tool pipeline.
type ToolCall struct {
	Tool    string
	Message string
}

// Task is one unit of concurrent work within a step.
type Task struct {
	Agent         string
	AgentID       string
	Purpose       string
	Tools         []ToolCall
	Queries       []string
	Status        TaskStatus
	RetryAttempts int
	RetryHistory  []RetryRecord
	Result        *AgentResponse
}

// Step is a set of tasks that run concurrently; steps run in order.
type Step struct {
	StepID            string
	StepNumber        int
	ParallelExecution bool
	Status            TaskStatus
	Tasks             []Task
}

// ExecutionPlan is LLM call #2's output (§3.4).
type ExecutionPlan struct {
	TotalSteps       int
	CurrentStep      int
	AggregateStatus  TaskStatus
	Steps            []Step
}

// AgentResponse is the output of one settled task (§3.5).
type AgentResponse struct {
	AgentName        string
	Content          string
	Confidence       float64
	Sources          []NormalizedSource
	ToolsUsed        []string
	ExecutionSeconds float64
	Status           string // completed | failed
	Attempts         int
	RetryHistory     []RetryRecord
	Error            string
}

// EvidenceFactors is the per-agent factor breakdown behind a
// ConflictResolution's evidence_ranking entry.
type EvidenceFactors struct {
	Recency      float64
	Consensus    float64
	Completeness float64
	SourceReliability float64
}

// ConflictResolution is produced when >=2 agents succeed (§3.6).
type ConflictResolution struct {
	FinalAnswer        string
	WinningAgents       []string
	ConflictLevel       string // low | medium | high
	ResolutionMethod    string // consensus_voting | recency_priority | evidence_quality | combination | fallback_highest_confidence
	EvidenceRanking     map[string]EvidenceFactors
	ResolutionReasoning string
	CombinedSources     []NormalizedSource
	ConfidenceScore     float64
}

// NormalizedSource is the common shape every source is reduced to
// before it reaches a caller (§6.4).
type NormalizedSource struct {
	DocumentID   string
	Title        string
	URL          string
	Score        float64
	Collection   string
	AccessLevel  string
	Snippet      string
}

// ProviderDescriptor is what an agent_id resolves to for invocation.
type ProviderDescriptor struct {
	ProviderName string
	Model        string
	APIKey       string
}

// TaskView is the UI-facing flattened snapshot of one Task (§6.2).
type TaskView struct {
	TaskName     string
	Purpose      string
	Agent        string
	TaskIndex    int
	Messages     map[string]string // "1" -> tool 1's message, 1-indexed
	Status       string
	Severity     string // pending|info|success|danger
	Color        string // primary|success|danger
	RetryCount   int
	MaxRetries   int
	RetryAttempts int
	RetryHistory []RetryRecord
	Result       *AgentResponse
	Error        string
	LastError    string
}

// TaskStatusUpdate carries the delta behind one progress event, when
// the event concerns a specific task transition.
type TaskStatusUpdate struct {
	Type           string // task_started|task_retry|task_completed|task_failed
	TaskIndex      int
	Status         string
	Color          string
	Attempt        int
	EnhancedSuccess bool
}

// ExecutionMetadata is populated by the final response node.
type ExecutionMetadata struct {
	TotalDocuments  int
	QualityScore    float64
	Domains         []string
	ProcessingTime  time.Duration
	Timestamp       time.Time
}

// RunRequest is the engine's single entry point payload (§6.1).
type RunRequest struct {
	Query                 string
	Messages              []ChatMessage
	UserContext           UserContext
	TenantTimezone        string
	TenantCurrentDatetime string // ISO8601, optional; Engine.Run does not read it and takes the current time from Engine.Now
}

// ProgressEvent is one element of the engine's output stream (§6.2).
type ProgressEvent struct {
	Node               string
	ProcessingStatus   string
	ProgressPercentage float64
	ProgressMessage    string
	CurrentStep        int
	TotalSteps         int
	FormattedTasks     []TaskView
	TaskStatusUpdate   *TaskStatusUpdate
	Timestamp          float64
}

// FinalEvent terminates every run exactly once (§6.3).
type FinalEvent struct {
	FinalResponse    string
	FinalSources     []NormalizedSource
	ProcessingStatus string // completed | completed_with_errors | failed
	Metadata         FinalMetadata
	DetectedLanguage string
}

// FinalMetadata is FinalEvent's metadata payload.
type FinalMetadata struct {
	Domains               []string
	QualityScore          float64
	ProcessingTimeSeconds float64
	TotalDocuments        int
}
