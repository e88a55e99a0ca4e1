package workflow

// SemanticRouting is LLM call #1's output (§3.3).
type SemanticRouting struct {
	DetectedLanguage string
	IsChitchat       bool
	RefinedQuery     string
	SummaryHistory   string
}

// DebugEntry is one append-only diagnostic record (§3.7 Diagnostics).
type DebugEntry struct {
	Node    string
	Message string
}

// State is the single value threaded through the graph (§3.7). Nodes
// never mutate a State directly; the engine turns each node's result
// into a Patch and folds it in via Merge.
type State struct {
	// Input
	Query       string
	Messages    []ChatMessage
	UserContext UserContext

	// Control
	CurrentNode      string
	NextAction       string
	ProcessingStatus string

	// Progress
	ProgressPercentage float64
	ProgressMessage    string
	ShouldYield        bool

	// Planning artifacts
	SemanticRouting *SemanticRouting
	ExecutionPlan   *ExecutionPlan
	FormattedTasks  []TaskView
	AgentProviders  map[string]ProviderDescriptor

	// Execution artifacts
	AgentResponses     []AgentResponse
	ConflictResolution *ConflictResolution
	FinalResponse      *string
	FinalSources       []NormalizedSource

	// Error
	ErrorMessage  string
	ExceptionType string
	RetryCount    int

	// Diagnostics
	DebugTrace        []DebugEntry
	ExecutionMetadata *ExecutionMetadata
}

// Patch is a partial State update returned by a node. Every field is a
// pointer/slice so "absent" is distinguishable from "zero value";
// Merge only applies fields that are non-nil/non-empty.
type Patch struct {
	CurrentNode      *string
	NextAction       *string
	ProcessingStatus *string

	ProgressPercentage *float64
	ProgressMessage    *string
	ShouldYield        *bool

	SemanticRouting *SemanticRouting
	ExecutionPlan   *ExecutionPlan
	FormattedTasks  []TaskView
	AgentProviders  map[string]ProviderDescriptor

	// Append-only fields: the engine appends these to the existing
	// slice rather than overwriting it (§3.7 state update rule).
	AppendMessages       []ChatMessage
	AppendAgentResponses []AgentResponse
	AppendFinalSources   []NormalizedSource
	AppendDebugTrace     []DebugEntry

	ConflictResolution *ConflictResolution
	FinalResponse      *string

	ErrorMessage  *string
	ExceptionType *string
	RetryCount    *int

	ExecutionMetadata *ExecutionMetadata
}

// NewState builds the initial state for one run from a RunRequest.
func NewState(req RunRequest) *State {
	return &State{
		Query:            req.Query,
		Messages:         append([]ChatMessage(nil), req.Messages...),
		UserContext:      req.UserContext,
		CurrentNode:      "orchestrator_entry",
		NextAction:       "reflection",
		ProcessingStatus: "pending",
		AgentProviders:   make(map[string]ProviderDescriptor),
	}
}

// detectedLanguage reads the language reflection settled on, defaulting
// to english before reflection has run (or if it never produced one).
func (s *State) detectedLanguage() string {
	if s.SemanticRouting != nil && s.SemanticRouting.DetectedLanguage != "" {
		return s.SemanticRouting.DetectedLanguage
	}
	return "english"
}

// Merge applies patch to state, returning the same *State for
// chaining. Keyed fields overwrite; messages, agent_responses,
// final_sources, and debug_trace append, per the §3.7 state update
// rule — this is the ONE place that rule is implemented.
func Merge(state *State, patch Patch) *State {
	if patch.CurrentNode != nil {
		state.CurrentNode = *patch.CurrentNode
	}
	if patch.NextAction != nil {
		state.NextAction = *patch.NextAction
	}
	if patch.ProcessingStatus != nil {
		state.ProcessingStatus = *patch.ProcessingStatus
	}
	if patch.ProgressPercentage != nil {
		state.ProgressPercentage = *patch.ProgressPercentage
	}
	if patch.ProgressMessage != nil {
		state.ProgressMessage = *patch.ProgressMessage
	}
	if patch.ShouldYield != nil {
		state.ShouldYield = *patch.ShouldYield
	}
	if patch.SemanticRouting != nil {
		state.SemanticRouting = patch.SemanticRouting
	}
	if patch.ExecutionPlan != nil {
		state.ExecutionPlan = patch.ExecutionPlan
	}
	if patch.FormattedTasks != nil {
		state.FormattedTasks = patch.FormattedTasks
	}
	if patch.AgentProviders != nil {
		state.AgentProviders = patch.AgentProviders
	}
	if patch.ConflictResolution != nil {
		state.ConflictResolution = patch.ConflictResolution
	}
	if patch.FinalResponse != nil {
		state.FinalResponse = patch.FinalResponse
	}
	if patch.ErrorMessage != nil {
		state.ErrorMessage = *patch.ErrorMessage
	}
	if patch.ExceptionType != nil {
		state.ExceptionType = *patch.ExceptionType
	}
	if patch.RetryCount != nil {
		state.RetryCount = *patch.RetryCount
	}
	if patch.ExecutionMetadata != nil {
		state.ExecutionMetadata = patch.ExecutionMetadata
	}

	if len(patch.AppendMessages) > 0 {
		state.Messages = append(state.Messages, patch.AppendMessages...)
	}
	if len(patch.AppendAgentResponses) > 0 {
		state.AgentResponses = append(state.AgentResponses, patch.AppendAgentResponses...)
	}
	if len(patch.AppendFinalSources) > 0 {
		state.FinalSources = append(state.FinalSources, patch.AppendFinalSources...)
	}
	if len(patch.AppendDebugTrace) > 0 {
		state.DebugTrace = append(state.DebugTrace, patch.AppendDebugTrace...)
	}

	return state
}
