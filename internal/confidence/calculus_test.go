package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/person"
)

func analysis(detections ...model.DetectedCelebrity) model.ImageAnalysis {
	return model.ImageAnalysis{
		Candidate:  model.ImageCandidate{ImageURL: "img", ContextURL: "ctx"},
		Detections: detections,
	}
}

func TestIsValidEvidence_BothAboveThreshold(t *testing.T) {
	a := analysis(
		model.DetectedCelebrity{Name: "Donald Trump", Confidence: 95},
		model.DetectedCelebrity{Name: "Kanye West", Confidence: 92},
	)
	rec, ok := IsValidEvidence(a, "Donald Trump", "Kanye West", DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, 92.0, rec.ImageScore(), "image-score is min(confA, confB)")
}

func TestIsValidEvidence_OneMissing(t *testing.T) {
	a := analysis(model.DetectedCelebrity{Name: "Donald Trump", Confidence: 95})
	_, ok := IsValidEvidence(a, "Donald Trump", "Kanye West", DefaultThreshold)
	assert.False(t, ok)
}

func TestIsValidEvidence_BelowThreshold(t *testing.T) {
	a := analysis(
		model.DetectedCelebrity{Name: "Donald Trump", Confidence: 95},
		model.DetectedCelebrity{Name: "Kanye West", Confidence: 79},
	)
	_, ok := IsValidEvidence(a, "Donald Trump", "Kanye West", DefaultThreshold)
	assert.False(t, ok)
}

func TestBuildEdge_RequiresNonEmptyEvidence(t *testing.T) {
	_, ok := BuildEdge(person.NewPerson("A"), person.NewPerson("B"), nil)
	assert.False(t, ok)
}

func TestEdgeConfidence_MaxAcrossEvidence(t *testing.T) {
	a, b := person.NewPerson("Elon Musk"), person.NewPerson("Jimmy Fallon")
	evidence := []model.EvidenceRecord{
		{ConfidenceA: 90, ConfidenceB: 85}, // image-score 85
		{ConfidenceA: 97, ConfidenceB: 93}, // image-score 93 (max)
	}
	edge, ok := BuildEdge(a, b, evidence)
	require.True(t, ok)
	assert.Equal(t, 93.0, edge.Confidence())

	best, ok := edge.BestEvidence()
	require.True(t, ok)
	assert.Equal(t, 93.0, best.ImageScore())
}

func TestPathConfidence_MinAcrossEdges(t *testing.T) {
	e1 := model.VerifiedEdge{Evidence: []model.EvidenceRecord{{ConfidenceA: 95, ConfidenceB: 92}}} // 92
	e2 := model.VerifiedEdge{Evidence: []model.EvidenceRecord{{ConfidenceA: 90, ConfidenceB: 88}}} // 88
	assert.Equal(t, 88.0, PathConfidence([]model.VerifiedEdge{e1, e2}))
}

func TestPathConfidence_Empty(t *testing.T) {
	assert.Equal(t, -1.0, PathConfidence(nil))
}
