// Package fake provides deterministic, in-memory implementations of the
// providers contracts for tests. Every scripted response is keyed by the
// exact query or image URL the orchestrator/verifier is expected to issue,
// which doubles as a determinism check: an unscripted query is a test bug,
// not a silently empty result.
package fake

import (
	"context"
	"fmt"

	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/providers"
)

// Search is a scripted providers.SearchProvider.
type Search struct {
	// Responses maps a query string to the candidates it returns.
	// Unscripted queries return an empty slice, matching the real
	// contract's "no candidates" behavior.
	Responses map[string][]model.ImageCandidate
	// Errors maps a query string to an error it should return instead.
	Errors map[string]error
	Calls  []string
}

func (s *Search) SearchImages(_ context.Context, query string) ([]model.ImageCandidate, error) {
	s.Calls = append(s.Calls, query)
	if err, ok := s.Errors[query]; ok {
		return nil, err
	}
	return s.Responses[query], nil
}

// Scene is a scripted providers.SceneFilter, keyed by image URL.
type Scene struct {
	// CollageURLs marks images that should be rejected as non-scenes.
	// Every other image defaults to IsRealScene: true.
	CollageURLs map[string]bool
}

func (s *Scene) Classify(_ context.Context, imageBytes []byte) (providers.SceneVerdict, error) {
	url := string(imageBytes) // the fake fetcher below encodes the URL as the body
	if s.CollageURLs[url] {
		return providers.SceneVerdict{IsRealScene: false, Reason: "collage"}, nil
	}
	return providers.SceneVerdict{IsRealScene: true}, nil
}

// Recognizer is a scripted providers.FaceRecognizer, keyed by image URL
// (the fake fetcher encodes the URL as the image body so the whole chain
// stays deterministic without real bytes).
type Recognizer struct {
	Detections map[string][]model.DetectedCelebrity
	Errors     map[string]error
}

func (r *Recognizer) Recognize(_ context.Context, imageBytes []byte) ([]model.DetectedCelebrity, error) {
	url := string(imageBytes)
	if err, ok := r.Errors[url]; ok {
		return nil, err
	}
	return r.Detections[url], nil
}

// Fetcher is a scripted providers.ImageFetcher. It returns the URL itself
// as the "bytes" of the image, so Scene and Recognizer above can recover
// which image they were asked about without any real image codec.
type Fetcher struct {
	// OversizeURLs simulate a fetch-failed due to exceeding maxBytes.
	OversizeURLs map[string]bool
	// FailURLs simulate a network-level fetch failure.
	FailURLs map[string]bool
	// ContentTypes optionally overrides the returned content type; defaults
	// to "image/jpeg".
	ContentTypes map[string]string
}

func (f *Fetcher) Fetch(_ context.Context, url string, maxBytes int64) ([]byte, string, error) {
	if f.FailURLs[url] {
		return nil, "", fmt.Errorf("fetch-failed: simulated network error for %s", url)
	}
	if f.OversizeURLs[url] {
		return nil, "", fmt.Errorf("fetch-failed: image exceeds %d byte cap", maxBytes)
	}
	ct := "image/jpeg"
	if f.ContentTypes != nil {
		if v, ok := f.ContentTypes[url]; ok {
			ct = v
		}
	}
	return []byte(url), ct, nil
}
