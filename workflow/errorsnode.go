package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/hectorflow/llms"
	"github.com/kadirpekel/hectorflow/localization"
)

// ErrorDeps are the collaborators the Error Node needs for its
// partial-result synthesis call; LLM may be nil when there is nothing
// to synthesize (zero successes).
type ErrorDeps struct {
	LLM       llms.LLMProvider
	MaxTokens int
}

const partialSynthesisInstructions = `Some of the work needed to answer this query succeeded and some failed. Write a helpful response using only the successful results below. Do not mention exception classes, stack traces, or internal error codes — if you reference a failure, name only the agent that did not complete.`

// HandleError runs the Error Node (§4.5). With at least one successful
// response it asks the LLM to synthesize a partial answer naming
// failed tasks by agent only; on that call's own failure it falls back
// to the partial-results footer. With zero successes it skips the LLM
// entirely and returns the fixed localized error fallback.
func HandleError(ctx context.Context, responses []AgentResponse, detectedLanguage string, deps ErrorDeps, start time.Time) FinalEvent {
	successful := make([]AgentResponse, 0, len(responses))
	var failedAgents []string
	for _, r := range responses {
		if r.Status == "completed" {
			successful = append(successful, r)
		} else {
			failedAgents = append(failedAgents, r.AgentName)
		}
	}

	if len(successful) == 0 {
		return FinalEvent{
			FinalResponse:    localization.ErrorFallback(detectedLanguage),
			ProcessingStatus: "failed",
			DetectedLanguage: detectedLanguage,
			Metadata: FinalMetadata{
				ProcessingTimeSeconds: time.Since(start).Seconds(),
			},
		}
	}

	content, err := synthesizePartialResults(ctx, successful, failedAgents, deps)
	if err != nil {
		content = buildPartialFallback(successful, detectedLanguage)
	}

	var sources []NormalizedSource
	for _, r := range successful {
		sources = append(sources, r.Sources...)
	}
	sources = MergeAndDedupeSources(sources)

	return FinalEvent{
		FinalResponse:    content,
		FinalSources:     sources,
		ProcessingStatus: "completed_with_errors",
		DetectedLanguage: detectedLanguage,
		Metadata: FinalMetadata{
			TotalDocuments:        len(sources),
			ProcessingTimeSeconds: time.Since(start).Seconds(),
		},
	}
}

func synthesizePartialResults(ctx context.Context, successful []AgentResponse, failedAgents []string, deps ErrorDeps) (string, error) {
	if deps.LLM == nil {
		return "", fmt.Errorf("no synthesis provider configured")
	}

	var b strings.Builder
	b.WriteString(partialSynthesisInstructions)
	b.WriteString("\n\nSuccessful results:\n")
	for _, r := range successful {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", r.AgentName, r.Content)
	}
	if len(failedAgents) > 0 {
		fmt.Fprintf(&b, "\nAgents that did not complete: %s\n", strings.Join(failedAgents, ", "))
	}

	result, err := deps.LLM.Invoke(ctx, b.String(), llms.InvokeOptions{MaxTokens: deps.MaxTokens})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Content) == "" {
		return "", fmt.Errorf("empty synthesis response")
	}
	return result.Content, nil
}

// buildPartialFallback is used when the synthesis LLM call itself
// fails: concatenate the successful agents' content verbatim with the
// localized partial-results footer.
func buildPartialFallback(successful []AgentResponse, detectedLanguage string) string {
	parts := make([]string, 0, len(successful)+1)
	for _, r := range successful {
		parts = append(parts, r.Content)
	}
	parts = append(parts, localization.PartialResultsFooter(detectedLanguage))
	return strings.Join(parts, "\n\n")
}
