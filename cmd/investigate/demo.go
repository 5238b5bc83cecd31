package main

import (
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/providers"
	"github.com/lumenpath/investigator/internal/providers/fake"
)

// demoProviders builds a small, deterministic Search/Scene/Recognizer set
// seeded with a handful of well-known co-appearances. The concrete image
// search, scene classification, and face recognition backends are external
// collaborators this repository only defines contracts for (§6); this
// bundle exists so `investigate run`/`investigate serve` have something to
// drive end to end without a live vision stack wired in. A production
// deployment replaces these three with real providers.Search/SceneFilter/
// FaceRecognizer implementations behind the same interfaces.
func demoProviders() (providers.SearchProvider, providers.SceneFilter, providers.FaceRecognizer) {
	const (
		trumpKanye = "https://demo.investigator.local/trump-kanye.jpg"
		kanyeKim   = "https://demo.investigator.local/kanye-kim.jpg"
		kimKris    = "https://demo.investigator.local/kim-kris.jpg"
	)

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		"Donald Trump Kanye West": {
			{ImageURL: trumpKanye, ContextURL: trumpKanye + "#source", Title: "Oval Office meeting"},
		},
		"Kanye West": {
			{ImageURL: kanyeKim, ContextURL: kanyeKim + "#source", Title: "Family gathering"},
		},
		"Kim Kardashian": {
			{ImageURL: kimKris, ContextURL: kimKris + "#source", Title: "Family gathering"},
		},
	}}

	scene := &fake.Scene{}

	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		trumpKanye: {
			{Name: "Donald Trump", Confidence: 96},
			{Name: "Kanye West", Confidence: 91},
		},
		kanyeKim: {
			{Name: "Kanye West", Confidence: 93},
			{Name: "Kim Kardashian", Confidence: 90},
		},
		kimKris: {
			{Name: "Kim Kardashian", Confidence: 95},
			{Name: "Kris Jenner", Confidence: 89},
		},
	}}

	return search, scene, recognizer
}

// demoFetcher resolves the demo image URLs above the same way fake.Fetcher
// does: the URL itself stands in for the image bytes, so Scene and
// Recognizer can recover which image they were asked about.
func demoFetcher() providers.ImageFetcher {
	return &fake.Fetcher{}
}
