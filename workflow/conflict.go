package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/hectorflow/llms"
)

// reliableSourceIndicators are substrings that mark a source's domain
// or collection as institutionally reliable (§4.3 evidence_analysis).
var reliableSourceIndicators = []string{".gov", ".edu", ".org", "intra.", "wiki."}

// evidenceAnalysis is the per-response evidence bag computed before the
// conflict-resolution prompt is built.
type evidenceAnalysis struct {
	TotalSources          int     `json:"total_sources"`
	ReliableSourcesCount  int     `json:"reliable_sources_count"`
	ReliabilityScore      float64 `json:"reliability_score"`
	RecencyScore          float64 `json:"recency_score"`
	CompletenessScore     float64 `json:"completeness_score"`
}

func computeEvidenceAnalysis(sources []NormalizedSource) evidenceAnalysis {
	reliable := 0
	for _, s := range sources {
		haystack := strings.ToLower(s.URL + " " + s.Collection)
		for _, indicator := range reliableSourceIndicators {
			if strings.Contains(haystack, indicator) {
				reliable++
				break
			}
		}
	}

	reliability := 0.3
	if len(sources) > 0 {
		reliability += (float64(reliable) / float64(len(sources))) * 0.7
	}
	if reliability > 1.0 {
		reliability = 1.0
	}

	completeness := float64(len(sources)) / 5.0
	if completeness > 1.0 {
		completeness = 1.0
	}

	return evidenceAnalysis{
		TotalSources:         len(sources),
		ReliableSourcesCount: reliable,
		ReliabilityScore:     reliability,
		RecencyScore:         0.8,
		CompletenessScore:    completeness,
	}
}

// ConflictDeps are the collaborators the Conflict Resolution Node needs.
type ConflictDeps struct {
	LLM              llms.LLMProvider
	MaxTokens        int
}

const conflictResolutionInstructions = `You are reconciling multiple agent responses to the same user query into one answer. Weigh consensus across agents first, then recency, then evidence quality. Respond with a single JSON object only, matching this shape:
{
  "final_answer": "<the reconciled answer>",
  "winning_agents": ["<agent names whose content most informed final_answer>"],
  "conflict_level": "low|medium|high",
  "resolution_method": "consensus_voting|recency_priority|evidence_quality|combination",
  "evidence_ranking": {
    "<agent name>": {
      "rank": <int, 1 is best>,
      "reasoning": "<why this agent ranked here>",
      "evidence_score": <0-1 float>,
      "factors": {"recency": <0-1>, "consensus": <0-1>, "completeness": <0-1>, "source_reliability": <0-1>}
    }
  },
  "resolution_reasoning": "<overall prose explanation>"
}`

// Resolve runs the conflict resolution node over >=2 successful agent
// responses (§4.3). On LLM failure or schema violation it falls back
// to the highest-confidence response rather than failing the run.
func Resolve(ctx context.Context, responses []AgentResponse, deps ConflictDeps) *ConflictResolution {
	successful := make([]AgentResponse, 0, len(responses))
	for _, r := range responses {
		if r.Status == "completed" {
			successful = append(successful, r)
		}
	}

	analyses := make(map[string]evidenceAnalysis, len(successful))
	var allSources []NormalizedSource
	for _, r := range successful {
		analyses[r.AgentName] = computeEvidenceAnalysis(r.Sources)
		allSources = append(allSources, r.Sources...)
	}

	prompt := buildConflictPrompt(successful, analyses)

	result, err := deps.LLM.Invoke(ctx, prompt, llms.InvokeOptions{
		JSONMode:  true,
		MaxTokens: deps.MaxTokens,
	})
	if err != nil {
		return fallbackToHighestConfidence(successful, allSources, fmt.Sprintf("llm invocation failed: %v", err))
	}
	if err := ValidateConflictResolution([]byte(result.Content)); err != nil {
		return fallbackToHighestConfidence(successful, allSources, fmt.Sprintf("schema violation: %v", err))
	}

	var raw rawConflictResolution
	if err := json.Unmarshal([]byte(result.Content), &raw); err != nil {
		return fallbackToHighestConfidence(successful, allSources, fmt.Sprintf("invalid JSON: %v", err))
	}

	ranking := make(map[string]EvidenceFactors, len(raw.EvidenceRanking))
	for agentName, entry := range raw.EvidenceRanking {
		ranking[agentName] = EvidenceFactors{
			Recency:           entry.Factors.Recency,
			Consensus:         entry.Factors.Consensus,
			Completeness:      entry.Factors.Completeness,
			SourceReliability: entry.Factors.SourceReliability,
		}
	}

	return &ConflictResolution{
		FinalAnswer:         raw.FinalAnswer,
		WinningAgents:       raw.WinningAgents,
		ConflictLevel:       raw.ConflictLevel,
		ResolutionMethod:    raw.ResolutionMethod,
		EvidenceRanking:     ranking,
		ResolutionReasoning: raw.ResolutionReasoning,
		CombinedSources:     MergeAndDedupeSources(allSources),
		ConfidenceScore:     averageConfidence(successful),
	}
}

type rawEvidenceFactors struct {
	Recency           float64 `json:"recency"`
	Consensus         float64 `json:"consensus"`
	Completeness      float64 `json:"completeness"`
	SourceReliability float64 `json:"source_reliability"`
}

type rawEvidenceRankingEntry struct {
	Rank          int                 `json:"rank"`
	Reasoning     string              `json:"reasoning"`
	EvidenceScore float64             `json:"evidence_score"`
	Factors       rawEvidenceFactors  `json:"factors"`
}

type rawConflictResolution struct {
	FinalAnswer         string                             `json:"final_answer"`
	WinningAgents       []string                           `json:"winning_agents"`
	ConflictLevel       string                             `json:"conflict_level"`
	ResolutionMethod    string                             `json:"resolution_method"`
	EvidenceRanking     map[string]rawEvidenceRankingEntry `json:"evidence_ranking"`
	ResolutionReasoning string                             `json:"resolution_reasoning"`
}

func buildConflictPrompt(responses []AgentResponse, analyses map[string]evidenceAnalysis) string {
	var b strings.Builder
	b.WriteString(conflictResolutionInstructions)
	b.WriteString("\n\nAgent responses:\n")
	for _, r := range responses {
		analysis := analyses[r.AgentName]
		fmt.Fprintf(&b, "\n[%s] (confidence=%.2f)\n%s\nevidence_analysis: total_sources=%d reliable_sources_count=%d reliability_score=%.2f recency_score=%.2f completeness_score=%.2f\n",
			r.AgentName, r.Confidence, r.Content,
			analysis.TotalSources, analysis.ReliableSourcesCount, analysis.ReliabilityScore, analysis.RecencyScore, analysis.CompletenessScore,
		)
	}
	return b.String()
}

// fallbackToHighestConfidence is the documented degradation path when
// the resolution LLM call itself fails or returns malformed output.
func fallbackToHighestConfidence(responses []AgentResponse, allSources []NormalizedSource, reason string) *ConflictResolution {
	if len(responses) == 0 {
		return &ConflictResolution{
			ResolutionMethod:    "fallback_highest_confidence",
			ResolutionReasoning: reason,
		}
	}

	ranked := append([]AgentResponse(nil), responses...)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Confidence > ranked[j].Confidence })
	winner := ranked[0]

	// Single-entry ranking with neutral factors (§4.3): there was no
	// LLM-produced ranking to fall back on, so the winner gets a
	// neutral 0.5 across the board rather than a zeroed-out entry per
	// candidate.
	ranking := map[string]EvidenceFactors{
		winner.AgentName: {Recency: 0.5, Consensus: 0.5, Completeness: 0.5, SourceReliability: 0.5},
	}

	return &ConflictResolution{
		FinalAnswer:         winner.Content,
		WinningAgents:       []string{winner.AgentName},
		ConflictLevel:       "high",
		ResolutionMethod:    "fallback_highest_confidence",
		EvidenceRanking:     ranking,
		ResolutionReasoning: reason,
		CombinedSources:     MergeAndDedupeSources(allSources),
		ConfidenceScore:     winner.Confidence,
	}
}

func averageConfidence(responses []AgentResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range responses {
		sum += r.Confidence
	}
	return sum / float64(len(responses))
}
