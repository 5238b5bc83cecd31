package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/orchestrator"
	"github.com/lumenpath/investigator/internal/providers/fake"
)

func TestHandleStart_ReturnsRunID(t *testing.T) {
	o := orchestrator.New(&fake.Search{}, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, nil)
	s := New(o, nil)

	result, data, err := s.handleStart(context.Background(), nil, startInvestigationParams{PersonA: "A", PersonB: "B"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	out, ok := data.(map[string]string)
	require.True(t, ok)
	assert.NotEmpty(t, out["runId"])
}

func TestHandleStart_InvalidPairReturnsToolError(t *testing.T) {
	o := orchestrator.New(&fake.Search{}, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, nil)
	s := New(o, nil)

	result, _, err := s.handleStart(context.Background(), nil, startInvestigationParams{PersonA: "A", PersonB: "A"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGet_UnknownRunReturnsToolError(t *testing.T) {
	o := orchestrator.New(&fake.Search{}, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, nil)
	s := New(o, nil)

	result, _, err := s.handleGet(context.Background(), nil, getInvestigationParams{RunID: "missing"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGet_KnownRunReturnsSnapshot(t *testing.T) {
	const url = "https://example.com/direct.jpg"
	query := "Donald Trump Kanye West"

	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {{ImageURL: url, ContextURL: url + "-ctx"}},
	}}
	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		url: {{Name: "Donald Trump", Confidence: 95}, {Name: "Kanye West", Confidence: 88}},
	}}
	o := orchestrator.New(search, &fake.Fetcher{}, &fake.Scene{}, recognizer, nil)
	runID, err := o.Start(context.Background(), "Donald Trump", "Kanye West", orchestrator.Options{})
	require.NoError(t, err)

	ch, cancel, err := o.Subscribe(runID)
	require.NoError(t, err)
	for range ch {
	}
	cancel()

	s := New(o, nil)
	result, data, err := s.handleGet(context.Background(), nil, getInvestigationParams{RunID: runID})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	snap, ok := data.(*orchestrator.Snapshot)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, snap.Status)
}
