package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildChitchatFinal(t *testing.T) {
	got := BuildChitchatFinal("english", time.Now())

	assert.Equal(t, "Hello! How can I help you today?", got.FinalResponse)
	assert.Equal(t, "completed", got.ProcessingStatus)
	assert.Equal(t, "english", got.DetectedLanguage)
}

func TestBuildSingleAgentFinalAppendsUpToThreeSources(t *testing.T) {
	response := AgentResponse{
		Content: "the answer",
		Sources: []NormalizedSource{
			{Title: "one", Collection: "kb"},
			{Title: "two", Collection: "kb"},
			{Title: "three", Collection: "faq"},
			{Title: "four", Collection: "faq"},
		},
	}

	got := BuildSingleAgentFinal(response, "english", time.Now())

	assert.Contains(t, got.FinalResponse, "the answer")
	assert.Contains(t, got.FinalResponse, "Sources:")
	assert.Contains(t, got.FinalResponse, "1. one")
	assert.Contains(t, got.FinalResponse, "3. three")
	assert.NotContains(t, got.FinalResponse, "4. four")
	assert.Len(t, got.FinalSources, 3)
	assert.Equal(t, 4, got.Metadata.TotalDocuments)
	assert.ElementsMatch(t, []string{"kb", "faq"}, got.Metadata.Domains)
}

func TestBuildSingleAgentFinalWithNoSourcesOmitsHeader(t *testing.T) {
	response := AgentResponse{Content: "plain answer"}

	got := BuildSingleAgentFinal(response, "english", time.Now())

	assert.Equal(t, "plain answer", got.FinalResponse)
	assert.Empty(t, got.FinalSources)
}

func TestBuildResolvedFinal(t *testing.T) {
	resolution := &ConflictResolution{
		FinalAnswer:     "reconciled",
		CombinedSources: []NormalizedSource{{Title: "src1", Collection: "kb"}},
		ConfidenceScore: 0.75,
	}

	got := BuildResolvedFinal(resolution, "english", time.Now())

	assert.Contains(t, got.FinalResponse, "reconciled")
	assert.Contains(t, got.FinalResponse, "1. src1")
	assert.Equal(t, 0.75, got.Metadata.QualityScore)
	assert.Equal(t, 1, got.Metadata.TotalDocuments)
}

func TestFormatSourceCitationsFallsBackToURLThenDocumentID(t *testing.T) {
	sources := []NormalizedSource{
		{URL: "https://example.com"},
		{DocumentID: "doc-9"},
	}

	got := formatSourceCitations(sources)

	assert.Contains(t, got, "1. https://example.com")
	assert.Contains(t, got, "2. doc-9")
}

func TestUniqueCollectionsSkipsEmptyAndDuplicates(t *testing.T) {
	sources := []NormalizedSource{
		{Collection: "kb"},
		{Collection: ""},
		{Collection: "kb"},
		{Collection: "faq"},
	}

	got := uniqueCollections(sources)

	assert.Equal(t, []string{"kb", "faq"}, got)
}
