// Package aggregator rolls per-query co-appearance accumulators into a
// single ranked list of bridge candidates for a frontier Person.
package aggregator

import (
	"sort"

	"github.com/lumenpath/investigator/internal/model"
)

// Aggregator merges co-appearance accumulators produced by one or more
// evidence.Verifier calls issued from the same frontier Person.
type Aggregator struct {
	merged map[string]model.CoAppearance
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{merged: make(map[string]model.CoAppearance)}
}

// Merge folds a per-query accumulator (keyed by normalized name, as
// produced by evidence.Verifier.VerifyPair) into the running total. Counts
// add; BestConfidence takes the max.
func (a *Aggregator) Merge(accumulator map[string]model.CoAppearance) {
	for key, inc := range accumulator {
		cur, ok := a.merged[key]
		if !ok {
			a.merged[key] = inc
			continue
		}
		cur.Name = inc.Name
		cur.Count += inc.Count
		if inc.BestConfidence > cur.BestConfidence {
			cur.BestConfidence = inc.BestConfidence
		}
		a.merged[key] = cur
	}
}

// Ranked returns the merged candidates sorted by (count desc,
// bestConfidence desc, name asc), excluding any normalized key in exclude.
// exclude is expected to carry A, B, every Person already in the current
// chain, and every failed-candidate.
func (a *Aggregator) Ranked(exclude map[string]struct{}) []model.CoAppearance {
	out := make([]model.CoAppearance, 0, len(a.merged))
	for key, c := range a.merged {
		if _, skip := exclude[key]; skip {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].BestConfidence != out[j].BestConfidence {
			return out[i].BestConfidence > out[j].BestConfidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}
