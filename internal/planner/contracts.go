// Package planner ranks the next candidate to pursue from a frontier
// Person, either via an LLM-backed strategy or a deterministic heuristic
// fallback that keeps a run functional with no planner configured at all.
package planner

import (
	"context"

	"github.com/lumenpath/investigator/internal/model"
)

// RankedCandidate is one aggregator-produced bridge candidate, as the
// planner sees it.
type RankedCandidate struct {
	Name           string
	Count          int
	BestConfidence float64
}

// Input is everything the planner needs to choose a next hop.
type Input struct {
	Source              model.Person
	Target               model.Person
	Frontier             model.Person
	HopsUsed             int
	HopLimit             int
	ConfidenceThreshold  float64
	RemainingImageSearch int
	RemainingRecognize   int
	RemainingPlannerCall int
	VerifiedEdges        []model.VerifiedEdge
	FailedCandidates      []string
	Candidates            []RankedCandidate
}

// Output is the planner's proposal for the next segment.
type Output struct {
	NextCandidates []string
	SearchQueries  []string
	Narration      string
	Stop           bool
	Reason         string
}

// Result is the sum type distinguishing an LLM-produced plan from the
// heuristic fallback, so the fallback path is explicit in caller code
// rather than folded into ordinary error handling.
type Result struct {
	Plan     Output
	Fallback string // non-empty iff this Result is a Fallback variant
}

// Ok reports whether Result carries a real plan (as opposed to a fallback).
func (r Result) Ok() bool { return r.Fallback == "" }

// Planner proposes the next hop given the current investigation state.
type Planner interface {
	Plan(ctx context.Context, in Input) (Output, error)
}

// Plan runs p (if non-nil), validates its output against in.Candidates, and
// falls back to the heuristic strategy whenever p is nil, p errors, or p's
// output fails validation. This is the single entry point orchestrator code
// should call — it never returns an error itself, since a planner failure
// always degrades into a usable heuristic result.
func Plan(ctx context.Context, p Planner, in Input) Result {
	if p == nil {
		return Result{Plan: heuristicPlan(in), Fallback: "planner-disabled"}
	}

	out, err := p.Plan(ctx, in)
	if err != nil {
		return Result{Plan: heuristicPlan(in), Fallback: "planner-error: " + err.Error()}
	}
	if !validate(out, in) {
		return Result{Plan: heuristicPlan(in), Fallback: "planner-malformed-output"}
	}
	return Result{Plan: out}
}

// validate checks the orchestrator-side invariants: every NextCandidates
// name must be present in the input candidate list, and every query must
// be non-empty.
func validate(out Output, in Input) bool {
	if len(out.NextCandidates) == 0 || len(out.NextCandidates) > 2 {
		return false
	}
	if len(out.SearchQueries) == 0 || len(out.SearchQueries) > 4 {
		return false
	}
	known := make(map[string]struct{}, len(in.Candidates))
	for _, c := range in.Candidates {
		known[c.Name] = struct{}{}
	}
	for _, name := range out.NextCandidates {
		if _, ok := known[name]; !ok {
			return false
		}
	}
	for _, q := range out.SearchQueries {
		if q == "" {
			return false
		}
	}
	return true
}

// heuristicPlan picks the single highest-confidence unfailed candidate.
// Candidates is assumed already sorted by the aggregator's ranking rule
// (count desc, bestConfidence desc, name asc), so the first entry not in
// FailedCandidates is the heuristic's pick.
func heuristicPlan(in Input) Output {
	failed := make(map[string]struct{}, len(in.FailedCandidates))
	for _, f := range in.FailedCandidates {
		failed[f] = struct{}{}
	}

	for _, c := range in.Candidates {
		if _, skip := failed[c.Name]; skip {
			continue
		}
		return Output{
			NextCandidates: []string{c.Name},
			SearchQueries:  []string{in.Frontier.Name + " " + c.Name},
			Narration:      "heuristic: pursuing the highest-confidence unfailed candidate",
			Stop:           false,
			Reason:         "heuristic-selection",
		}
	}

	return Output{
		Stop:   true,
		Reason: "no-remaining-candidates",
	}
}
