// Package orchestrator drives a single investigation from a source Person
// to a target Person through a sequence of segments — direct_check,
// find_bridges, verify_bridge, connect_target, backtrack — emitting a
// typed event stream as it goes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lumenpath/investigator/internal/aggregator"
	"github.com/lumenpath/investigator/internal/apperrors"
	"github.com/lumenpath/investigator/internal/confidence"
	"github.com/lumenpath/investigator/internal/evidence"
	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/observability"
	"github.com/lumenpath/investigator/internal/person"
	"github.com/lumenpath/investigator/internal/planner"
	"github.com/lumenpath/investigator/internal/providers"
	"github.com/lumenpath/investigator/internal/queries"
)

// Options configures a run. Zero values are replaced with defaults by
// Start.
type Options struct {
	ConfidenceThreshold float64
	MaxHops             int
	ImagesPerQuery      int
	MaxImagesSearched   int
	MaxImagesRecognized int
	MaxPlannerCalls     int
	FetchTimeout        time.Duration
	MaxImageBytes       int64
	VerifyParallelism   int
	// Planner is nil when a run must rely on the heuristic fallback
	// (§6: a run must function with no planner configured).
	Planner planner.Planner
}

func (o Options) withDefaults() Options {
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = confidence.DefaultThreshold
	}
	if o.MaxHops == 0 {
		o.MaxHops = 6
	}
	if o.ImagesPerQuery == 0 {
		o.ImagesPerQuery = 5
	}
	if o.FetchTimeout == 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.MaxImageBytes == 0 {
		o.MaxImageBytes = 5 * 1024 * 1024
	}
	if o.VerifyParallelism == 0 {
		o.VerifyParallelism = 2
	}
	return o
}

// Snapshot is a point-in-time view of a run's status, returned by Get.
type Snapshot struct {
	RunID   string
	Status  model.RunStatus
	Path    *model.Path
	Reason  string
	Message string
}

// Orchestrator wires the external collaborators a run needs and tracks
// every run it has started.
type Orchestrator struct {
	Search     providers.SearchProvider
	Fetcher    providers.ImageFetcher
	Scene      providers.SceneFilter
	Recognizer providers.FaceRecognizer
	Logger     *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// New builds an Orchestrator from its provider collaborators.
func New(search providers.SearchProvider, fetcher providers.ImageFetcher, scene providers.SceneFilter, recognizer providers.FaceRecognizer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Search:     search,
		Fetcher:    fetcher,
		Scene:      scene,
		Recognizer: recognizer,
		Logger:     logger,
		runs:       make(map[string]*run),
	}
}

// run holds one InvestigationRun's mutable state. Owned exclusively by its
// own goroutine while executing; Get/Subscribe only read its event log and
// a small, separately mutex-guarded status snapshot.
type run struct {
	id     string
	log    *events.Log
	budget *model.Budget
	cache  *queryCache

	mu      sync.Mutex
	status  model.RunStatus
	path    *model.Path
	reason  string
	message string
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{RunID: r.id, Status: r.status, Path: r.path, Reason: r.reason, Message: r.message}
}

func (r *run) setTerminal(status model.RunStatus, path *model.Path, reason, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.path = path
	r.reason = reason
	r.message = message
}

// Start validates the input pair, allocates a new run, and launches its
// segment state machine in a goroutine. It returns as soon as the run is
// registered; progress is observed via Subscribe or Get.
func (o *Orchestrator) Start(ctx context.Context, aName, bName string, opts Options) (string, error) {
	a := person.NewPerson(aName)
	b := person.NewPerson(bName)
	if a.Key == "" || b.Key == "" {
		return "", fmt.Errorf("orchestrator: name %q could not be normalized into a person", pickEmpty(aName, a.Key, bName, b.Key))
	}
	if a.Key == b.Key {
		return "", fmt.Errorf("orchestrator: source and target must be different people")
	}

	opts = opts.withDefaults()

	cache, err := newQueryCache()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	r := &run{
		id:     id,
		log:    events.NewLog(),
		cache:  cache,
		status: model.StatusRunning,
		budget: &model.Budget{
			MaxHops:             opts.MaxHops,
			MaxImagesSearched:   opts.MaxImagesSearched,
			MaxImagesRecognized: opts.MaxImagesRecognized,
			MaxPlannerCalls:     opts.MaxPlannerCalls,
		},
	}

	o.mu.Lock()
	o.runs[id] = r
	o.mu.Unlock()

	go o.execute(ctx, r, a, b, opts)

	return id, nil
}

func pickEmpty(aName, aKey, bName, bKey string) string {
	if aKey == "" {
		return aName
	}
	return bName
}

// Subscribe returns a channel delivering every event recorded so far plus
// every future event, and a cancel function the caller must invoke to stop
// the delivery goroutine. The channel is closed after cancel is called or
// the run reaches a terminal event.
func (o *Orchestrator) Subscribe(runID string) (<-chan events.Event, func(), error) {
	o.mu.Lock()
	r, ok := o.runs[runID]
	o.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("orchestrator: unknown run %q", runID)
	}

	out := make(chan events.Event, 32)
	done := make(chan struct{})
	var closeOnce sync.Once
	cancel := func() { closeOnce.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		sent := 0
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		for {
			batch, next := r.log.Since(sent)
			for _, ev := range batch {
				select {
				case out <- ev:
				case <-done:
					return
				}
				if isTerminal(ev.Type) {
					return
				}
			}
			sent = next
			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()

	return out, cancel, nil
}

func isTerminal(t events.Type) bool {
	return t == events.TypeFinal || t == events.TypeNoPath || t == events.TypeError
}

// Get returns the current status of runID.
func (o *Orchestrator) Get(runID string) (*Snapshot, error) {
	o.mu.Lock()
	r, ok := o.runs[runID]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown run %q", runID)
	}
	snap := r.snapshot()
	return &snap, nil
}

// execute runs the full segment state machine for one run to completion.
func (o *Orchestrator) execute(ctx context.Context, r *run, a, b model.Person, opts Options) {
	defer r.cache.Close()

	ctx, span := observability.StartSpan(ctx, "orchestrator.execute")
	span.SetAttributes(attribute.String("source", a.Name), attribute.String("target", b.Name))
	defer span.End()

	verifier := evidence.NewVerifier(o.Search, o.Fetcher, o.Scene, o.Recognizer, r.budget, r.log, o.Logger, evidence.Config{
		ConfidenceThreshold: opts.ConfidenceThreshold,
		ImagesPerQuery:      opts.ImagesPerQuery,
		MaxImageBytes:       opts.MaxImageBytes,
		VerifyParallelism:   opts.VerifyParallelism,
	})

	r.log.Emit(events.TypeStepStart, "checking for a direct connection", map[string]any{"segment": "direct_check"})
	edge, err := o.verifyMemoized(ctx, verifier, r, a, b, queries.Direct(a.Name, b.Name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "direct_check failed")
		o.fail(r, err)
		return
	}
	if edge != nil {
		observability.Metrics.StepOutcome.WithLabelValues("direct_check", "done").Inc()
		r.log.Emit(events.TypeStepComplete, "direct connection confirmed", map[string]any{"segment": "direct_check", "stepStatus": "done"})
		o.succeed(r, model.Path{People: []model.Person{a, b}, Edges: []model.VerifiedEdge{*edge}})
		return
	}
	observability.Metrics.StepOutcome.WithLabelValues("direct_check", "failed").Inc()
	r.log.Emit(events.TypeStepComplete, "no direct connection", map[string]any{"segment": "direct_check", "stepStatus": "failed"})

	frontier := []model.FrontierNode{{Person: a, Chain: model.Path{People: []model.Person{a}}, Depth: 0, Inserted: time.Now()}}
	visited := map[string]struct{}{a.Key: {}, b.Key: {}}
	failedKeys := map[string]struct{}{}
	var failedNames []string

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			o.cancelRun(r)
			return
		}
		if reason := r.budget.ExhaustedReason(); reason != "" {
			o.exhaust(r, reason)
			return
		}

		idx := bestFrontierIndex(frontier)
		f := frontier[idx]
		frontier = append(frontier[:idx:idx], frontier[idx+1:]...)

		if f.Depth >= opts.MaxHops {
			continue
		}

		bridged := o.expandFrontier(ctx, verifier, r, a, b, f, opts, visited, failedKeys, &failedNames, &frontier)
		if bridged == segmentSucceeded {
			return
		}
		if bridged == segmentCancelledOrFatal {
			return
		}
	}

	o.exhaust(r, "frontier-exhausted")
}

type segmentOutcome int

const (
	segmentContinue segmentOutcome = iota
	segmentSucceeded
	segmentCancelledOrFatal
)

// expandFrontier runs find_bridges, verify_bridge, and connect_target for
// one popped frontier node. It returns segmentSucceeded once a full path
// to b is committed, segmentCancelledOrFatal once the run has already
// reached a terminal state, and segmentContinue otherwise (the caller
// should keep draining the frontier).
func (o *Orchestrator) expandFrontier(ctx context.Context, verifier *evidence.Verifier, r *run, a, b model.Person, f model.FrontierNode, opts Options, visited, failedKeys map[string]struct{}, failedNames *[]string, frontier *[]model.FrontierNode) segmentOutcome {
	ctx, span := observability.StartSpan(ctx, "orchestrator.expandFrontier")
	span.SetAttributes(attribute.String("frontier", f.Person.Name), attribute.Int("depth", f.Depth))
	defer span.End()

	r.log.Emit(events.TypeStepStart, "looking for who "+f.Person.Name+" appears with", map[string]any{"segment": "find_bridges", "frontier": f.Person.Name})

	discoveries := aggregator.New()
	for _, q := range queries.Discovery(f.Person.Name) {
		if ctx.Err() != nil {
			o.cancelRun(r)
			return segmentCancelledOrFatal
		}
		if reason := r.budget.ExhaustedReason(); reason != "" {
			o.exhaust(r, reason)
			return segmentCancelledOrFatal
		}
		co, err := o.discoverMemoized(ctx, verifier, r, f.Person, q)
		if err != nil {
			o.fail(r, err)
			return segmentCancelledOrFatal
		}
		discoveries.Merge(co)
	}

	exclude := map[string]struct{}{}
	for k := range visited {
		exclude[k] = struct{}{}
	}
	for k := range failedKeys {
		exclude[k] = struct{}{}
	}
	ranked := discoveries.Ranked(exclude)

	if len(ranked) == 0 {
		observability.Metrics.StepOutcome.WithLabelValues("find_bridges", "failed").Inc()
		r.log.Emit(events.TypeStepComplete, "no new candidates found", map[string]any{"segment": "find_bridges", "stepStatus": "failed", "frontier": f.Person.Name})
		r.log.Emit(events.TypeBacktrack, "backtracking from "+f.Person.Name, map[string]any{"frontier": f.Person.Name})
		return segmentContinue
	}
	observability.Metrics.StepOutcome.WithLabelValues("find_bridges", "done").Inc()
	r.log.Emit(events.TypeStepComplete, "candidates found", map[string]any{"segment": "find_bridges", "stepStatus": "done", "frontier": f.Person.Name, "candidateCount": len(ranked)})

	candidates := make([]planner.RankedCandidate, len(ranked))
	candidateData := make([]map[string]any, len(ranked))
	for i, c := range ranked {
		candidates[i] = planner.RankedCandidate{Name: c.Name, Count: c.Count, BestConfidence: c.BestConfidence}
		candidateData[i] = map[string]any{"name": c.Name, "count": c.Count, "bestConfidence": c.BestConfidence}
	}
	r.log.Emit(events.TypeCandidateDiscover, "ranked candidates for "+f.Person.Name, map[string]any{"candidates": candidateData})

	// A popped frontier node is not limited to one planner call: as long as
	// the planner keeps naming a candidate f hasn't tried yet, f is replanned
	// with the updated failed-candidates list and tried again, so a
	// verify_bridge failure (or a bridge that doesn't reach b) moves on to
	// f's next-ranked aggregator candidate instead of abandoning f the
	// moment its first pick doesn't complete the path.
	bridgedAny := false
	attempted := map[string]struct{}{}

	for {
		if ctx.Err() != nil {
			o.cancelRun(r)
			return segmentCancelledOrFatal
		}
		if reason := r.budget.ExhaustedReason(); reason != "" {
			o.exhaust(r, reason)
			return segmentCancelledOrFatal
		}

		in := planner.Input{
			Source:               a,
			Target:               b,
			Frontier:             f.Person,
			HopsUsed:             f.Depth,
			HopLimit:             opts.MaxHops,
			ConfidenceThreshold:  opts.ConfidenceThreshold,
			RemainingImageSearch: remaining(opts.MaxImagesSearched, r.budget.ImagesSearched()),
			RemainingRecognize:   remaining(opts.MaxImagesRecognized, r.budget.ImagesRecognized()),
			RemainingPlannerCall: remaining(opts.MaxPlannerCalls, r.budget.PlannerCalls()),
			VerifiedEdges:        f.Chain.Edges,
			FailedCandidates:     append([]string{}, *failedNames...),
			Candidates:           candidates,
		}

		var result planner.Result
		if opts.Planner != nil && r.budget.SpendPlannerCall() {
			result = planner.Plan(ctx, opts.Planner, in)
		} else {
			result = planner.Plan(ctx, nil, in)
		}
		if result.Ok() {
			observability.Metrics.PlannerCalls.WithLabelValues("ok").Inc()
		} else {
			observability.Metrics.PlannerCalls.WithLabelValues("fallback").Inc()
		}
		r.log.Emit(events.TypeStrategy, result.Plan.Narration, map[string]any{"nextCandidates": result.Plan.NextCandidates, "fallback": result.Fallback, "reason": result.Plan.Reason})

		if result.Plan.Stop || len(result.Plan.NextCandidates) == 0 {
			break
		}

		// roundProgressed guards against a planner (well-behaved or not) that
		// keeps naming only candidates f has already handled this call; if a
		// full round names nothing new, further rounds won't help and f is
		// done. attempted is keyed separately from visited/failedKeys so a
		// candidate gets exactly one pass through this block no matter how
		// many more times the planner proposes it afterward.
		roundProgressed := false
		for _, candidateName := range result.Plan.NextCandidates {
			candidatePerson := person.NewPerson(candidateName)
			if _, skip := attempted[candidatePerson.Key]; skip {
				continue
			}
			attempted[candidatePerson.Key] = struct{}{}
			roundProgressed = true

			if _, skip := visited[candidatePerson.Key]; skip {
				failedKeys[candidatePerson.Key] = struct{}{}
				*failedNames = append(*failedNames, candidateName)
				continue
			}

			r.log.Emit(events.TypeStepStart, "verifying "+f.Person.Name+" with "+candidateName, map[string]any{"segment": "verify_bridge", "candidate": candidateName})
			edgeFC, err := o.verifyCandidate(ctx, verifier, r, f.Person, candidatePerson, bridgeQueries(result.Plan.SearchQueries, f.Person.Name, candidateName))
			if err != nil {
				o.fail(r, err)
				return segmentCancelledOrFatal
			}
			if edgeFC == nil {
				observability.Metrics.StepOutcome.WithLabelValues("verify_bridge", "failed").Inc()
				r.log.Emit(events.TypeStepComplete, candidateName+" not confirmed", map[string]any{"segment": "verify_bridge", "stepStatus": "failed", "candidate": candidateName})
				failedKeys[candidatePerson.Key] = struct{}{}
				*failedNames = append(*failedNames, candidateName)
				continue
			}
			observability.Metrics.StepOutcome.WithLabelValues("verify_bridge", "done").Inc()
			r.log.Emit(events.TypeStepComplete, candidateName+" confirmed", map[string]any{"segment": "verify_bridge", "stepStatus": "done", "candidate": candidateName})
			r.log.Emit(events.TypeEvidence, "visual evidence for "+f.Person.Name+" and "+candidateName, map[string]any{"imageScore": edgeFC.Confidence()})

			bridgedChain := extendPath(f.Chain, candidatePerson, *edgeFC)
			visited[candidatePerson.Key] = struct{}{}
			r.log.Emit(events.TypePathUpdate, "chain extended to "+candidateName, map[string]any{"people": pathNames(bridgedChain)})

			r.log.Emit(events.TypeStepStart, "checking if "+candidateName+" connects to "+b.Name, map[string]any{"segment": "connect_target", "candidate": candidateName})
			edgeCB, err := o.verifyCandidate(ctx, verifier, r, candidatePerson, b, queries.Verification(candidateName, b.Name))
			if err != nil {
				o.fail(r, err)
				return segmentCancelledOrFatal
			}
			if edgeCB != nil {
				observability.Metrics.StepOutcome.WithLabelValues("connect_target", "done").Inc()
				r.log.Emit(events.TypeStepComplete, "target connected", map[string]any{"segment": "connect_target", "stepStatus": "done", "candidate": candidateName})
				finalPath := extendPath(bridgedChain, b, *edgeCB)
				o.succeed(r, finalPath)
				return segmentSucceeded
			}
			observability.Metrics.StepOutcome.WithLabelValues("connect_target", "failed").Inc()
			r.log.Emit(events.TypeStepComplete, "target not yet connected", map[string]any{"segment": "connect_target", "stepStatus": "failed", "candidate": candidateName})

			// candidatePerson bridges from f but doesn't reach b on this
			// path; it lives on in the frontier as its own node, but f
			// itself is done with it, so it's excluded from f's own next
			// replanning round the same way a verify_bridge failure is.
			failedKeys[candidatePerson.Key] = struct{}{}
			*failedNames = append(*failedNames, candidateName)

			if bridgedChain.Hops() < opts.MaxHops {
				*frontier = append(*frontier, model.FrontierNode{Person: candidatePerson, Chain: bridgedChain, Depth: f.Depth + 1, Inserted: time.Now()})
			}
			bridgedAny = true
		}

		if !roundProgressed {
			break
		}
	}

	if !bridgedAny {
		r.log.Emit(events.TypeBacktrack, "backtracking from "+f.Person.Name, map[string]any{"frontier": f.Person.Name})
	}
	return segmentContinue
}

func remaining(max, spent int) int {
	if max <= 0 {
		return -1
	}
	r := max - spent
	if r < 0 {
		return 0
	}
	return r
}

func pathNames(p model.Path) []string {
	names := make([]string, len(p.People))
	for i, who := range p.People {
		names[i] = who.Name
	}
	return names
}

func extendPath(chain model.Path, next model.Person, edge model.VerifiedEdge) model.Path {
	people := append(append([]model.Person{}, chain.People...), next)
	edges := append(append([]model.VerifiedEdge{}, chain.Edges...), edge)
	return model.Path{People: people, Edges: edges}
}

// bridgeQueries prefers the planner's own suggested search queries, if it
// supplied any, and otherwise falls back to the fixed Bridge templates.
func bridgeQueries(plannerQueries []string, a, c string) []string {
	if len(plannerQueries) > 0 {
		return plannerQueries
	}
	return queries.Bridge(a, c)
}

// bestFrontierIndex picks the next node to expand: best-first by
// chain-confidence desc, then depth asc, then insertion order asc.
func bestFrontierIndex(frontier []model.FrontierNode) int {
	best := 0
	for i := 1; i < len(frontier); i++ {
		if frontierLess(frontier[i], frontier[best]) {
			best = i
		}
	}
	return best
}

func frontierLess(a, b model.FrontierNode) bool {
	ca, cb := a.Chain.Confidence(), b.Chain.Confidence()
	if ca != cb {
		return ca > cb
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.Inserted.Before(b.Inserted)
}

// verifyMemoized wraps Verifier.VerifyPair with the run's query cache.
func (o *Orchestrator) verifyMemoized(ctx context.Context, verifier *evidence.Verifier, r *run, subject, other model.Person, query string) (*model.VerifiedEdge, error) {
	if outcome, ok := r.cache.Get(subject.Key, other.Key, query); ok {
		return outcome.Edge, nil
	}
	edge, _, err := verifier.VerifyPair(ctx, subject, other, query)
	if err != nil {
		return nil, err
	}
	r.cache.Set(subject.Key, other.Key, query, queryOutcome{Edge: edge})
	return edge, nil
}

// verifyCandidate tries each query in turn until one produces an edge or
// the list is exhausted.
func (o *Orchestrator) verifyCandidate(ctx context.Context, verifier *evidence.Verifier, r *run, subject, other model.Person, queryList []string) (*model.VerifiedEdge, error) {
	for _, q := range queryList {
		if q == "" {
			continue
		}
		edge, err := o.verifyMemoized(ctx, verifier, r, subject, other, q)
		if err != nil {
			return nil, err
		}
		if edge != nil {
			return edge, nil
		}
	}
	return nil, nil
}

// discoverMemoized wraps Verifier.Discover with the run's query cache.
func (o *Orchestrator) discoverMemoized(ctx context.Context, verifier *evidence.Verifier, r *run, subject model.Person, query string) (map[string]model.CoAppearance, error) {
	if outcome, ok := r.cache.Get(subject.Key, "", query); ok {
		return outcome.CoAppearances, nil
	}
	co, err := verifier.Discover(ctx, subject, query)
	if err != nil {
		return nil, err
	}
	r.cache.Set(subject.Key, "", query, queryOutcome{CoAppearances: co})
	return co, nil
}

func (o *Orchestrator) succeed(r *run, path model.Path) {
	r.setTerminal(model.StatusCompleted, &path, "", "path confirmed")
	observability.Metrics.RunOutcome.WithLabelValues("completed").Inc()
	r.log.Emit(events.TypeFinal, "investigation complete", map[string]any{
		"people":           pathNames(path),
		"confidence":       path.Confidence(),
		"hops":             path.Hops(),
		"imagesSearched":   r.budget.ImagesSearched(),
		"imagesRecognized": r.budget.ImagesRecognized(),
		"plannerCalls":     r.budget.PlannerCalls(),
	})
}

func (o *Orchestrator) exhaust(r *run, reason string) {
	r.setTerminal(model.StatusFailed, nil, reason, "no path found")
	observability.Metrics.RunOutcome.WithLabelValues("failed").Inc()
	if reason != "frontier-exhausted" {
		observability.Metrics.BudgetExhausted.WithLabelValues(reason).Inc()
	}
	r.log.Emit(events.TypeNoPath, "no path found", map[string]any{
		"reason":           reason,
		"code":             string(apperrors.CodeBudgetExhausted),
		"imagesSearched":   r.budget.ImagesSearched(),
		"imagesRecognized": r.budget.ImagesRecognized(),
		"plannerCalls":     r.budget.PlannerCalls(),
	})
}

// fail ends the run on a non-retryable provider error. reason is the
// RunError's Code when err carries one (apperrors.IsRetryable having
// already decided, inside retryOnce, that this error was not worth a
// second attempt), and falls back to CodeProvider for an unclassified
// error.
func (o *Orchestrator) fail(r *run, err error) {
	code := apperrors.CodeProvider
	var re *apperrors.RunError
	if errors.As(err, &re) {
		code = re.Code
	}
	reason := string(code)
	r.setTerminal(model.StatusFailed, nil, reason, err.Error())
	observability.Metrics.RunOutcome.WithLabelValues("failed").Inc()
	r.log.Emit(events.TypeError, "run failed", map[string]any{"reason": reason, "error": err.Error()})
}

func (o *Orchestrator) cancelRun(r *run) {
	reason := string(apperrors.CodeCancelled)
	r.setTerminal(model.StatusFailed, nil, reason, apperrors.ErrCancelled.Error())
	observability.Metrics.RunOutcome.WithLabelValues("failed").Inc()
	r.log.Emit(events.TypeError, "run cancelled", map[string]any{"reason": reason})
}
