package providerfactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/planner"
)

func TestBuild_HeuristicProviderReturnsNil(t *testing.T) {
	f := New()
	p, err := f.Build(ProviderConfig{Provider: ProviderHeuristic})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestBuild_UnsupportedProviderErrors(t *testing.T) {
	f := New()
	_, err := f.Build(ProviderConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestLLMPlanner_EndToEndParsesBackendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"here is my pick: {\"nextCandidates\":[\"Jimmy Fallon\"],\"searchQueries\":[\"Jimmy Fallon Beyoncé\"],\"narration\":\"Fallon looks strong\",\"stop\":false,\"reason\":\"highest count\"} thanks"}]}`))
	}))
	defer srv.Close()

	f := New()
	p, err := f.Build(ProviderConfig{
		Provider: ProviderAnthropic,
		Model:    "claude-3",
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	in := planner.Input{
		Candidates: []planner.RankedCandidate{{Name: "Jimmy Fallon", Count: 3, BestConfidence: 90}},
	}
	out, err := p.Plan(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jimmy Fallon"}, out.NextCandidates)
	assert.Equal(t, []string{"Jimmy Fallon Beyoncé"}, out.SearchQueries)
	assert.False(t, out.Stop)
}

func TestParseOutput_NoJSONObjectErrors(t *testing.T) {
	_, err := parseOutput("sorry, I cannot help with that")
	assert.Error(t, err)
}
