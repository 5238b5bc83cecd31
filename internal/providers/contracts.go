// Package providers defines the external collaborator contracts the
// evidence verifier drives: image search, scene classification, and face
// recognition. Concrete implementations are out of scope for this
// repository (§6) — callers wire whatever backend they have behind these
// interfaces. A deterministic in-memory fake lives in the fake
// subpackage for tests.
package providers

import (
	"context"

	"github.com/lumenpath/investigator/internal/model"
)

// SearchProvider resolves a text query to candidate images.
//
// Implementations may fail with a provider error (propagated to the
// caller as a verifier-level error) or return an empty slice, which is
// treated as zero candidates rather than a failure.
type SearchProvider interface {
	SearchImages(ctx context.Context, query string) ([]model.ImageCandidate, error)
}

// SceneVerdict is the scene filter's classification of one image.
type SceneVerdict struct {
	IsRealScene bool
	Reason      string
}

// SceneFilter distinguishes a real co-presence photograph from a
// collage, montage, or composite. A false IsRealScene rejects the image
// for evidence purposes; its detections never reach the co-appearance
// aggregator (§9).
type SceneFilter interface {
	Classify(ctx context.Context, imageBytes []byte) (SceneVerdict, error)
}

// FaceRecognizer returns every celebrity face detected in an image, with
// a confidence in [0,100] and a bounding box. Callers must enforce the
// image size cap before submission.
type FaceRecognizer interface {
	Recognize(ctx context.Context, imageBytes []byte) ([]model.DetectedCelebrity, error)
}

// ImageFetcher retrieves the raw bytes and content type for an image URL,
// honoring the caller's timeout and size limit. This is the one provider
// contract concrete enough to ship a real implementation for (plain HTTP
// GET), since "fetch some bytes from a URL" carries no vision/LLM-specific
// surface to keep out of scope.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string, maxBytes int64) (data []byte, contentType string, err error)
}
