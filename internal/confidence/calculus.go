// Package confidence turns recognizer detection lists into per-image,
// per-edge, and per-path scores.
package confidence

import (
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/person"
)

// DefaultThreshold is the default face-recognition confidence cutoff (τ).
const DefaultThreshold = 80.0

// IsValidEvidence reports whether both targetA and targetB were
// independently detected in analysis at or above threshold.
func IsValidEvidence(analysis model.ImageAnalysis, targetA, targetB string, threshold float64) (model.EvidenceRecord, bool) {
	a, okA := person.FindCelebrity(analysis.Detections, targetA, threshold)
	if !okA {
		return model.EvidenceRecord{}, false
	}
	b, okB := person.FindCelebrity(analysis.Detections, targetB, threshold)
	if !okB {
		return model.EvidenceRecord{}, false
	}
	return model.EvidenceRecord{
		Image:       analysis.Candidate,
		ConfidenceA: a.Confidence,
		ConfidenceB: b.Confidence,
	}, true
}

// BuildEdge constructs a VerifiedEdge from a non-empty evidence list.
// Returns false if evidence is empty: edge creation requires at least one
// valid image.
func BuildEdge(a, b model.Person, evidence []model.EvidenceRecord) (model.VerifiedEdge, bool) {
	if len(evidence) == 0 {
		return model.VerifiedEdge{}, false
	}
	cp := make([]model.EvidenceRecord, len(evidence))
	copy(cp, evidence)
	return model.VerifiedEdge{A: a, B: b, Evidence: cp}, true
}

// PathConfidence is min(edge-confidence) along the path. Returns -1 for an
// edgeless path.
func PathConfidence(edges []model.VerifiedEdge) float64 {
	if len(edges) == 0 {
		return -1
	}
	worst := edges[0].Confidence()
	for _, e := range edges[1:] {
		if c := e.Confidence(); c < worst {
			worst = c
		}
	}
	return worst
}
