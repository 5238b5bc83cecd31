package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/person"
	"github.com/lumenpath/investigator/internal/providers/fake"
)

func unlimitedBudget() *model.Budget {
	return &model.Budget{MaxHops: 6}
}

func TestVerifyPair_DirectHitBuildsEdge(t *testing.T) {
	const query = "Donald Trump Kanye West"
	const url = "https://example.com/img1.jpg"

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {{ImageURL: url, ContextURL: "https://example.com/ctx1"}},
	}}
	scene := &fake.Scene{}
	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		url: {
			{Name: "Donald Trump", Confidence: 95},
			{Name: "Kanye West", Confidence: 88},
		},
	}}
	fetcher := &fake.Fetcher{}

	log := events.NewLog()
	v := NewVerifier(search, fetcher, scene, recognizer, unlimitedBudget(), log, nil, Config{})

	a := person.NewPerson("Donald Trump")
	b := person.NewPerson("Kanye West")

	edge, _, err := v.VerifyPair(context.Background(), a, b, query)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Len(t, edge.Evidence, 1)
	assert.InDelta(t, 88, edge.Confidence(), 0.001)

	recorded := log.All()
	require.Len(t, recorded, 1)
	assert.Equal(t, "evidence", recorded[0].Data["status"])
}

func TestVerifyPair_CollageRejectedExcludesCoAppearances(t *testing.T) {
	const query = "Elon Musk event"
	const url = "https://example.com/collage.jpg"

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {{ImageURL: url, ContextURL: "https://example.com/ctx"}},
	}}
	scene := &fake.Scene{CollageURLs: map[string]bool{url: true}}
	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		url: {{Name: "Elon Musk", Confidence: 99}, {Name: "Jimmy Fallon", Confidence: 90}},
	}}
	fetcher := &fake.Fetcher{}

	log := events.NewLog()
	v := NewVerifier(search, fetcher, scene, recognizer, unlimitedBudget(), log, nil, Config{})

	a := person.NewPerson("Elon Musk")
	b := person.NewPerson("Jimmy Fallon")

	edge, coAppearances, err := v.VerifyPair(context.Background(), a, b, query)
	require.NoError(t, err)
	assert.Nil(t, edge)
	assert.Empty(t, coAppearances)

	require.Len(t, log.All(), 1)
	assert.Equal(t, "rejected", log.All()[0].Data["status"])
	assert.Equal(t, "rejected-collage", log.All()[0].Data["reason"])
}

func TestVerifyPair_BudgetExhaustionStopsAtCeiling(t *testing.T) {
	const query = "three image query"
	urls := []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"https://example.com/c.jpg",
	}

	candidates := make([]model.ImageCandidate, len(urls))
	detections := make(map[string][]model.DetectedCelebrity)
	for i, u := range urls {
		candidates[i] = model.ImageCandidate{ImageURL: u, ContextURL: u + "-ctx"}
		detections[u] = []model.DetectedCelebrity{{Name: "Person A", Confidence: 99}, {Name: "Person B", Confidence: 99}}
	}

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{query: candidates}}
	scene := &fake.Scene{}
	recognizer := &fake.Recognizer{Detections: detections}
	fetcher := &fake.Fetcher{}

	budget := &model.Budget{MaxHops: 6, MaxImagesSearched: 2}
	log := events.NewLog()
	v := NewVerifier(search, fetcher, scene, recognizer, budget, log, nil, Config{VerifyParallelism: 1})

	a := person.NewPerson("Person A")
	b := person.NewPerson("Person B")

	_, _, err := v.VerifyPair(context.Background(), a, b, query)
	require.NoError(t, err)

	assert.Equal(t, 2, budget.ImagesSearched())
	assert.Equal(t, "max_images_searched", budget.ExhaustedReason())
}

func TestVerifyPair_NoEvidenceReturnsNilEdge(t *testing.T) {
	const query = "no match query"
	const url = "https://example.com/none.jpg"

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {{ImageURL: url, ContextURL: "https://example.com/ctx"}},
	}}
	scene := &fake.Scene{}
	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		url: {{Name: "Someone Else", Confidence: 99}},
	}}
	fetcher := &fake.Fetcher{}

	v := NewVerifier(search, fetcher, scene, recognizer, unlimitedBudget(), events.NewLog(), nil, Config{})

	a := person.NewPerson("Donald Trump")
	b := person.NewPerson("Kanye West")

	edge, coAppearances, err := v.VerifyPair(context.Background(), a, b, query)
	require.NoError(t, err)
	assert.Nil(t, edge)
	require.Contains(t, coAppearances, person.Normalize("Someone Else"))
}

func TestVerifyPair_SearchProviderErrorPropagates(t *testing.T) {
	const query = "errors out"
	search := &fake.Search{Errors: map[string]error{query: assert.AnError}}

	v := NewVerifier(search, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, unlimitedBudget(), events.NewLog(), nil, Config{})

	_, _, err := v.VerifyPair(context.Background(), person.NewPerson("A"), person.NewPerson("B"), query)
	assert.Error(t, err)
}

func TestVerifyPair_MissingRequiredURLsAreDropped(t *testing.T) {
	const query = "missing urls"
	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {
			{ImageURL: "", ContextURL: "https://example.com/ctx"},
			{ImageURL: "https://example.com/img.jpg", ContextURL: ""},
		},
	}}

	v := NewVerifier(search, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, unlimitedBudget(), events.NewLog(), nil, Config{})

	edge, coAppearances, err := v.VerifyPair(context.Background(), person.NewPerson("A"), person.NewPerson("B"), query)
	require.NoError(t, err)
	assert.Nil(t, edge)
	assert.Empty(t, coAppearances)
}
