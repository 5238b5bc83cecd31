// Package evidence turns a name pair and a search query into visual proof:
// it fetches candidate images, filters out collages, recognizes faces, and
// decides whether the pair was independently and jointly photographed.
package evidence

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lumenpath/investigator/internal/confidence"
	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/person"
	"github.com/lumenpath/investigator/internal/providers"
)

// Config holds the verifier's tunable limits. Zero values are replaced with
// defaults by NewVerifier.
type Config struct {
	// ConfidenceThreshold is the face-detection cutoff (tau), in [0,100].
	ConfidenceThreshold float64
	// ImagesPerQuery bounds how many search results are considered.
	ImagesPerQuery int
	// MaxImageBytes caps a single fetched image's size.
	MaxImageBytes int64
	// VerifyParallelism bounds concurrent per-image processing.
	VerifyParallelism int
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = confidence.DefaultThreshold
	}
	if c.ImagesPerQuery == 0 {
		c.ImagesPerQuery = 5
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 5 * 1024 * 1024
	}
	if c.VerifyParallelism == 0 {
		c.VerifyParallelism = 2
	}
	return c
}

// Verifier drives the search → fetch → classify → recognize pipeline for a
// single A-B query.
type Verifier struct {
	Search     providers.SearchProvider
	Fetcher    providers.ImageFetcher
	Scene      providers.SceneFilter
	Recognizer providers.FaceRecognizer
	Budget     *model.Budget
	Log        *events.Log
	Logger     *slog.Logger
	Config     Config
}

// NewVerifier builds a Verifier, applying Config defaults and a default
// no-op logger when none is given.
func NewVerifier(search providers.SearchProvider, fetcher providers.ImageFetcher, scene providers.SceneFilter, recognizer providers.FaceRecognizer, budget *model.Budget, log *events.Log, logger *slog.Logger, cfg Config) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		Search:     search,
		Fetcher:    fetcher,
		Scene:      scene,
		Recognizer: recognizer,
		Budget:     budget,
		Log:        log,
		Logger:     logger,
		Config:     cfg.withDefaults(),
	}
}

// imageOutcome is the per-image result of the pipeline, kept indexed by
// issuance order so image_result events can be emitted in that order
// regardless of which worker finished first.
type imageOutcome struct {
	candidate  model.ImageCandidate
	evidence   model.EvidenceRecord
	hasEvidence bool
	detections []model.DetectedCelebrity
	rejected   bool
	rejectKind string
	err        error
}

// VerifyPair runs the full pipeline for one query and returns the resulting
// edge (nil if no evidence was found) plus the co-appearance accumulator
// built from every other celebrity detected along the way.
func (v *Verifier) VerifyPair(ctx context.Context, a, b model.Person, query string) (*model.VerifiedEdge, map[string]model.CoAppearance, error) {
	var candidates []model.ImageCandidate
	err := retryOnce(ctx, func() error {
		var searchErr error
		candidates, searchErr = v.Search.SearchImages(ctx, query)
		return searchErr
	})
	if err != nil {
		return nil, nil, fmt.Errorf("search provider: %w", err)
	}

	filtered := make([]model.ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ImageURL == "" || c.ContextURL == "" {
			continue
		}
		filtered = append(filtered, c)
		if len(filtered) >= v.Config.ImagesPerQuery {
			break
		}
	}

	outcomes := make([]imageOutcome, len(filtered))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(v.Config.VerifyParallelism))

	for i, candidate := range filtered {
		i, candidate := i, candidate

		if !v.Budget.SpendImageSearch() {
			outcomes[i] = imageOutcome{candidate: candidate, rejected: true, rejectKind: "budget-exhausted"}
			continue
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcomes[i] = v.processImage(gctx, a, b, candidate)
			return nil
		})
	}

	_ = g.Wait()

	evidence := make([]model.EvidenceRecord, 0, len(outcomes))
	coAppearances := make(map[string]model.CoAppearance)

	for _, outcome := range outcomes {
		v.emitImageResult(outcome)

		if outcome.err != nil || outcome.rejected {
			continue
		}
		if outcome.hasEvidence {
			evidence = append(evidence, outcome.evidence)
		}
		v.accumulateCoAppearances(coAppearances, outcome.detections, a, b)
	}

	edge, ok := confidence.BuildEdge(a, b, evidence)
	if !ok {
		return nil, coAppearances, nil
	}
	return &edge, coAppearances, nil
}

// processImage runs the fetch/classify/recognize/score steps for a single
// candidate. Per-image failures are captured on the returned outcome rather
// than propagated, so one bad image never aborts the query.
func (v *Verifier) processImage(ctx context.Context, a, b model.Person, candidate model.ImageCandidate) imageOutcome {
	outcome := imageOutcome{candidate: candidate}

	data, _, err := v.Fetcher.Fetch(ctx, candidate.ImageURL, v.Config.MaxImageBytes)
	if err != nil {
		outcome.err = err
		return outcome
	}

	verdict, err := v.Scene.Classify(ctx, data)
	if err != nil {
		outcome.err = fmt.Errorf("scene filter: %w", err)
		return outcome
	}
	if !verdict.IsRealScene {
		outcome.rejected = true
		outcome.rejectKind = "rejected-collage"
		return outcome
	}

	if !v.Budget.SpendImageRecognize() {
		outcome.rejected = true
		outcome.rejectKind = "budget-exhausted"
		return outcome
	}

	var detections []model.DetectedCelebrity
	err = retryOnce(ctx, func() error {
		var recognizeErr error
		detections, recognizeErr = v.Recognizer.Recognize(ctx, data)
		return recognizeErr
	})
	if err != nil {
		outcome.err = fmt.Errorf("recognizer: %w", err)
		return outcome
	}
	outcome.detections = detections

	if rec, ok := confidence.IsValidEvidence(model.ImageAnalysis{Candidate: candidate, Detections: detections}, a.Name, b.Name, v.Config.ConfidenceThreshold); ok {
		outcome.evidence = rec
		outcome.hasEvidence = true
	}
	return outcome
}

// accumulateCoAppearances updates acc with every detection that is not A or
// B and meets threshold. Detections from a rejected (collage) image never
// reach this accumulator — callers only pass outcomes that were not
// rejected.
func (v *Verifier) accumulateCoAppearances(acc map[string]model.CoAppearance, detections []model.DetectedCelebrity, a, b model.Person) {
	for _, d := range detections {
		if d.Confidence < v.Config.ConfidenceThreshold {
			continue
		}
		key := person.Normalize(d.Name)
		if key == a.Key || key == b.Key {
			continue
		}
		cur := acc[key]
		cur.Name = d.Name
		cur.Count++
		if d.Confidence > cur.BestConfidence {
			cur.BestConfidence = d.Confidence
		}
		acc[key] = cur
	}
}

// Discover runs the same fetch/classify/recognize pipeline as VerifyPair
// for a single query issued from one Person, with no second endpoint to
// check evidence against. Every detection at or above threshold, other
// than subject itself, seeds the returned co-appearance accumulator — this
// is the find_bridges step's discovery mechanism, distinct from VerifyPair's
// pair-confirmation mechanism.
func (v *Verifier) Discover(ctx context.Context, subject model.Person, query string) (map[string]model.CoAppearance, error) {
	var candidates []model.ImageCandidate
	err := retryOnce(ctx, func() error {
		var searchErr error
		candidates, searchErr = v.Search.SearchImages(ctx, query)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}

	filtered := make([]model.ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ImageURL == "" || c.ContextURL == "" {
			continue
		}
		filtered = append(filtered, c)
		if len(filtered) >= v.Config.ImagesPerQuery {
			break
		}
	}

	outcomes := make([]imageOutcome, len(filtered))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(v.Config.VerifyParallelism))

	for i, candidate := range filtered {
		i, candidate := i, candidate

		if !v.Budget.SpendImageSearch() {
			outcomes[i] = imageOutcome{candidate: candidate, rejected: true, rejectKind: "budget-exhausted"}
			continue
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			outcomes[i] = v.discoverImage(gctx, candidate)
			return nil
		})
	}

	_ = g.Wait()

	coAppearances := make(map[string]model.CoAppearance)
	for _, outcome := range outcomes {
		v.emitImageResult(outcome)
		if outcome.err != nil || outcome.rejected {
			continue
		}
		v.accumulateCoAppearances(coAppearances, outcome.detections, subject, model.Person{})
	}
	return coAppearances, nil
}

// discoverImage runs fetch/classify/recognize for a discovery query, with
// no evidence-pair check since Discover has only one known endpoint.
func (v *Verifier) discoverImage(ctx context.Context, candidate model.ImageCandidate) imageOutcome {
	outcome := imageOutcome{candidate: candidate}

	data, _, err := v.Fetcher.Fetch(ctx, candidate.ImageURL, v.Config.MaxImageBytes)
	if err != nil {
		outcome.err = err
		return outcome
	}

	verdict, err := v.Scene.Classify(ctx, data)
	if err != nil {
		outcome.err = fmt.Errorf("scene filter: %w", err)
		return outcome
	}
	if !verdict.IsRealScene {
		outcome.rejected = true
		outcome.rejectKind = "rejected-collage"
		return outcome
	}

	if !v.Budget.SpendImageRecognize() {
		outcome.rejected = true
		outcome.rejectKind = "budget-exhausted"
		return outcome
	}

	var detections []model.DetectedCelebrity
	err = retryOnce(ctx, func() error {
		var recognizeErr error
		detections, recognizeErr = v.Recognizer.Recognize(ctx, data)
		return recognizeErr
	})
	if err != nil {
		outcome.err = fmt.Errorf("recognizer: %w", err)
		return outcome
	}
	outcome.detections = detections
	return outcome
}

func (v *Verifier) emitImageResult(outcome imageOutcome) {
	if v.Log == nil {
		return
	}
	data := map[string]any{
		"imageUrl": outcome.candidate.ImageURL,
	}
	switch {
	case outcome.err != nil:
		data["status"] = "error"
		data["error"] = outcome.err.Error()
		v.Log.Emit(events.TypeImageResult, "image processing failed", data)
	case outcome.rejected:
		data["status"] = "rejected"
		data["reason"] = outcome.rejectKind
		v.Log.Emit(events.TypeImageResult, "image rejected", data)
	case outcome.hasEvidence:
		data["status"] = "evidence"
		data["imageScore"] = outcome.evidence.ImageScore()
		v.Log.Emit(events.TypeImageResult, "image confirms pair", data)
	default:
		data["status"] = "no-match"
		v.Log.Emit(events.TypeImageResult, "image did not confirm pair", data)
	}
}
