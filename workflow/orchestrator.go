package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/hectorflow/agent"
	"github.com/kadirpekel/hectorflow/errortypes"
	"github.com/kadirpekel/hectorflow/llms"
	"github.com/kadirpekel/hectorflow/localization"
	"github.com/kadirpekel/hectorflow/metrics"
	"github.com/kadirpekel/hectorflow/tools"
)

// AgentDirectory is the capability the engine needs from an agent
// registry: resolving the caller-visible agent set. Both *agent.Registry
// and *agent.CachedRegistry satisfy it.
type AgentDirectory interface {
	GetVisibleAgents(ctx context.Context, tenantID string, role agent.Role, departmentID string) ([]agent.Descriptor, error)
}

// Engine wires the per-request collaborators (agent directory, LLM
// registry, tool executor, progress bus, tracer, metrics) into the
// single entry point the graph runs behind (§6.1).
type Engine struct {
	Agents   AgentDirectory
	LLMs     *llms.LLMRegistry
	Executor tools.AgentExecutor
	Tracer   trace.Tracer
	Metrics  *metrics.Metrics

	ReflectionProvider string // LLM registry name used for both reflection calls
	ConflictProvider    string // LLM registry name used for conflict resolution
	ErrorProvider       string // LLM registry name used for partial-result synthesis
	DefaultMaxTokens    int

	// ResolveProvider maps an agent's configured provider name to a
	// tenant-scoped ProviderDescriptor (model + resolved API key). This
	// is how §12.4's tenant-scoped key resolution plugs in without the
	// workflow package depending on config directly.
	ResolveProvider func(providerName, tenantID string) (ProviderDescriptor, bool)

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Run executes one request end to end, emitting progress events onto
// bus and returning the single terminal FinalEvent (§8 invariant 8).
func (e *Engine) Run(ctx context.Context, req RunRequest, bus *ProgressBus) FinalEvent {
	runID := uuid.NewString()
	start := e.now()

	ctx, span := e.Tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("tenant_id", req.UserContext.TenantID),
	))
	defer span.End()

	state := NewState(req)

	final := e.runGraph(ctx, state, bus, start)

	span.SetAttributes(attribute.String("processing_status", final.ProcessingStatus))
	if final.ProcessingStatus == "failed" {
		span.SetStatus(codes.Error, "run failed")
	}
	e.Metrics.RecordRun(final.ProcessingStatus, e.now().Sub(start))

	bus.Emit(ProgressEvent{
		Node:               string(NodeTerminate),
		ProcessingStatus:   final.ProcessingStatus,
		ProgressPercentage: 100,
		ProgressMessage:    localization.ProgressMessage("completed", final.DetectedLanguage),
	})

	return final
}

// runGraph walks the node graph for one run. Every node's output is
// folded into state via Merge before the graph reads from it again, so
// state — not ad hoc local variables — is the durable record of what
// each node decided (§3.7's "engine merges partial state" rule).
func (e *Engine) runGraph(ctx context.Context, state *State, bus *ProgressBus, start time.Time) FinalEvent {
	if ctx.Err() != nil {
		return e.finalize(state, e.cancelledFinal(state, start))
	}

	reflectionLLM, err := e.LLMs.GetLLM(e.ReflectionProvider)
	if err != nil {
		return e.finalize(state, HandleError(ctx, nil, state.detectedLanguage(), ErrorDeps{}, start))
	}

	tenantRole := agent.Role(state.UserContext.Role)
	visibleAgents, err := e.Agents.GetVisibleAgents(ctx, state.UserContext.TenantID, tenantRole, state.UserContext.DepartmentID)
	if err != nil {
		return e.finalize(state, HandleError(ctx, nil, state.detectedLanguage(), ErrorDeps{}, start))
	}

	Merge(state, Patch{CurrentNode: strp(string(NodeReflection)), ProcessingStatus: strp("running")})
	bus.Emit(ProgressEvent{
		Node:             string(NodeReflection),
		ProcessingStatus: "reflection_started",
		ProgressMessage:  localization.ProgressMessage("reflection_started", state.detectedLanguage()),
	})

	reflectionDeps := ReflectionDeps{LLM: reflectionLLM, Agents: visibleAgents, DefaultMaxTokens: e.DefaultMaxTokens}
	nodeStart := e.now()
	routing := RunSemanticDetermination(ctx, reflectionDeps, state.Query, state.Messages, state.UserContext.Temperature)
	e.Metrics.RecordNode(string(NodeReflection), e.now().Sub(nodeStart), "")
	Merge(state, Patch{SemanticRouting: routing})

	if routing.IsChitchat {
		Merge(state, Patch{NextAction: strp(ActionFinalResponse), ProcessingStatus: strp("chitchat_detected")})
		bus.Emit(ProgressEvent{
			Node:             string(NodeReflection),
			ProcessingStatus: "chitchat_detected",
			ProgressMessage:  localization.ProgressMessage("chitchat_detected", state.detectedLanguage()),
		})
		return e.finalize(state, BuildChitchatFinal(state.detectedLanguage(), start))
	}

	tenantTimezone := state.UserContext.Timezone
	isoNow := e.now()

	plan, err := RunPlanGeneration(ctx, reflectionDeps, routing, state.Messages, state.UserContext, isoNow.Format(time.RFC3339))
	if err != nil {
		e.Metrics.RecordNode(string(NodeReflection), 0, string(errortypes.KindOf(err)))
		return e.finalize(state, HandleError(ctx, nil, state.detectedLanguage(), e.errorDeps(), start))
	}
	Merge(state, Patch{ExecutionPlan: plan, ProcessingStatus: strp("planning_ready")})

	providers, err := ResolveAgentProviders(plan, visibleAgents, func(providerName string) (ProviderDescriptor, bool) {
		return e.ResolveProvider(providerName, state.UserContext.TenantID)
	})
	if err != nil {
		return e.finalize(state, HandleError(ctx, nil, state.detectedLanguage(), e.errorDeps(), start))
	}
	Merge(state, Patch{AgentProviders: providers})

	InjectDatetimeToolContext(plan, tenantTimezone, isoNow)

	if ctx.Err() != nil {
		return e.finalize(state, e.cancelledFinal(state, start))
	}

	Merge(state, Patch{CurrentNode: strp(string(NodeExecutor)), NextAction: strp(ActionExecutePlanning)})
	executorDeps := ExecutorDeps{Executor: e.Executor, Bus: bus, Providers: providers}
	nodeStart = e.now()
	responses, nextAction := RunPlan(ctx, plan, state.UserContext, state.detectedLanguage(), executorDeps)
	e.Metrics.RecordNode(string(NodeExecutor), e.now().Sub(nodeStart), "")
	for _, r := range responses {
		e.Metrics.RecordTaskAttempt(r.AgentName)
		e.Metrics.RecordTaskOutcome(r.AgentName, r.Status)
	}
	finalTaskViews := formattedTasksFromPlan(plan)
	Merge(state, Patch{
		AppendAgentResponses: responses,
		FormattedTasks:       finalTaskViews,
		NextAction:           strp(nextAction),
		ProgressPercentage:   floatp(TaskProgressPercentage(finalTaskViews)),
	})

	switch Route(NodeExecutor, nextAction) {
	case NodeFinalResponse:
		var single *AgentResponse
		for i := range responses {
			if responses[i].Status == "completed" {
				single = &responses[i]
				break
			}
		}
		if single == nil {
			return e.finalize(state, HandleError(ctx, responses, state.detectedLanguage(), e.errorDeps(), start))
		}
		Merge(state, Patch{CurrentNode: strp(string(NodeFinalResponse))})
		return e.finalize(state, BuildSingleAgentFinal(*single, state.detectedLanguage(), start))

	case NodeConflictResolver:
		Merge(state, Patch{CurrentNode: strp(string(NodeConflictResolver)), ProcessingStatus: strp("ready_for_resolution")})
		bus.Emit(ProgressEvent{
			Node:             string(NodeConflictResolver),
			ProcessingStatus: "conflict_resolution_needed",
			ProgressMessage:  localization.ProgressMessage("conflict_resolution_needed", state.detectedLanguage()),
		})
		conflictLLM, err := e.LLMs.GetLLM(e.ConflictProvider)
		if err != nil {
			return e.finalize(state, HandleError(ctx, responses, state.detectedLanguage(), e.errorDeps(), start))
		}
		resolution := Resolve(ctx, responses, ConflictDeps{LLM: conflictLLM, MaxTokens: e.DefaultMaxTokens})
		Merge(state, Patch{ConflictResolution: resolution, CurrentNode: strp(string(NodeFinalResponse))})
		return e.finalize(state, BuildResolvedFinal(resolution, state.detectedLanguage(), start))

	default: // NodeErrorHandler
		return e.finalize(state, HandleError(ctx, responses, state.detectedLanguage(), e.errorDeps(), start))
	}
}

func (e *Engine) errorDeps() ErrorDeps {
	errorLLM, err := e.LLMs.GetLLM(e.ErrorProvider)
	if err != nil {
		return ErrorDeps{MaxTokens: e.DefaultMaxTokens}
	}
	return ErrorDeps{LLM: errorLLM, MaxTokens: e.DefaultMaxTokens}
}

// cancelledFinal builds the cancellation terminal event. The
// user-visible text is the ordinary localized error fallback — never
// the internal Cancelled exception_type, which is recorded on state
// for diagnostics only (§7: no exception class names cross the
// user-visible boundary).
func (e *Engine) cancelledFinal(state *State, start time.Time) FinalEvent {
	Merge(state, Patch{
		ExceptionType: strp(string(errortypes.KindCancelled)),
		ErrorMessage:  strp("request cancelled"),
	})
	return FinalEvent{
		FinalResponse:    localization.ErrorFallback(state.detectedLanguage()),
		ProcessingStatus: "failed",
		DetectedLanguage: state.detectedLanguage(),
		Metadata: FinalMetadata{
			ProcessingTimeSeconds: e.now().Sub(start).Seconds(),
		},
	}
}

// finalize folds final's outcome into state — the terminal Patch every
// run applies — and returns final unchanged to the caller.
func (e *Engine) finalize(state *State, final FinalEvent) FinalEvent {
	response := final.FinalResponse
	Merge(state, Patch{
		ProcessingStatus:   strp(final.ProcessingStatus),
		FinalResponse:      &response,
		AppendFinalSources: final.FinalSources,
		ExecutionMetadata: &ExecutionMetadata{
			TotalDocuments: final.Metadata.TotalDocuments,
			QualityScore:   final.Metadata.QualityScore,
			Domains:        final.Metadata.Domains,
			ProcessingTime: time.Duration(final.Metadata.ProcessingTimeSeconds * float64(time.Second)),
		},
		CurrentNode: strp(string(NodeTerminate)),
		NextAction:  strp(ActionTerminate),
	})
	return final
}

func strp(s string) *string { return &s }

func floatp(f float64) *float64 { return &f }
