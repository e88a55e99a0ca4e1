package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/hectorflow/localization"
)

// BuildChitchatFinal renders the no-LLM-call chitchat path (§4.4):
// reflection already decided is_chitchat, so final response skips
// every downstream node and greets in the detected language.
func BuildChitchatFinal(detectedLanguage string, start time.Time) FinalEvent {
	return FinalEvent{
		FinalResponse:    localization.ChitchatGreeting(detectedLanguage),
		ProcessingStatus: "completed",
		DetectedLanguage: detectedLanguage,
		Metadata: FinalMetadata{
			ProcessingTimeSeconds: time.Since(start).Seconds(),
		},
	}
}

// BuildSingleAgentFinal renders the single-successful-agent path: the
// agent's content passes through untouched, with up to the first three
// sources appended under the localized sources header.
func BuildSingleAgentFinal(response AgentResponse, detectedLanguage string, start time.Time) FinalEvent {
	content := response.Content
	sources := response.Sources
	if len(sources) > 3 {
		sources = sources[:3]
	}
	if len(sources) > 0 {
		content = content + "\n\n" + localization.SourcesHeader(detectedLanguage) + "\n" + formatSourceCitations(sources)
	}

	domains := uniqueCollections(response.Sources)

	return FinalEvent{
		FinalResponse:    content,
		FinalSources:     sources,
		ProcessingStatus: "completed",
		DetectedLanguage: detectedLanguage,
		Metadata: FinalMetadata{
			Domains:               domains,
			TotalDocuments:        len(response.Sources),
			ProcessingTimeSeconds: time.Since(start).Seconds(),
		},
	}
}

// BuildResolvedFinal renders the post-conflict-resolution path: the
// resolution's final_answer plus its combined, deduped source list.
func BuildResolvedFinal(resolution *ConflictResolution, detectedLanguage string, start time.Time) FinalEvent {
	content := resolution.FinalAnswer
	if len(resolution.CombinedSources) > 0 {
		content = content + "\n\n" + localization.SourcesHeader(detectedLanguage) + "\n" + formatSourceCitations(resolution.CombinedSources)
	}

	return FinalEvent{
		FinalResponse:    content,
		FinalSources:     resolution.CombinedSources,
		ProcessingStatus: "completed",
		DetectedLanguage: detectedLanguage,
		Metadata: FinalMetadata{
			Domains:               uniqueCollections(resolution.CombinedSources),
			QualityScore:          resolution.ConfidenceScore,
			TotalDocuments:        len(resolution.CombinedSources),
			ProcessingTimeSeconds: time.Since(start).Seconds(),
		},
	}
}

func formatSourceCitations(sources []NormalizedSource) string {
	lines := make([]string, 0, len(sources))
	for i, s := range sources {
		label := s.Title
		if label == "" {
			label = s.URL
		}
		if label == "" {
			label = s.DocumentID
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, label))
	}
	return strings.Join(lines, "\n")
}

func uniqueCollections(sources []NormalizedSource) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range sources {
		if s.Collection == "" || seen[s.Collection] {
			continue
		}
		seen[s.Collection] = true
		out = append(out, s.Collection)
	}
	return out
}
