package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServeCommand_RegistersMCPStdioFlag(t *testing.T) {
	cmd := newServeCommand()
	flag := cmd.Flags().Lookup("mcp-stdio")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestNewRunCommand_RegistersSubjectFlags(t *testing.T) {
	cmd := newRunCommand()
	assert.NotNil(t, cmd.Flags().Lookup("a"))
	assert.NotNil(t, cmd.Flags().Lookup("b"))
}

func TestLoadConfig_DefaultsWithNoConfigFlag(t *testing.T) {
	configPath = ""
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "heuristic", cfg.Planner.Provider)
}

func TestDemoProviders_ResolveTheSeededChain(t *testing.T) {
	search, scene, recognizer := demoProviders()
	fetcher := demoFetcher()
	ctx := context.Background()

	candidates, err := search.SearchImages(ctx, "Donald Trump Kanye West")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	data, _, err := fetcher.Fetch(ctx, candidates[0].ImageURL, 1<<20)
	require.NoError(t, err)

	verdict, err := scene.Classify(ctx, data)
	require.NoError(t, err)
	assert.True(t, verdict.IsRealScene)

	detections, err := recognizer.Recognize(ctx, data)
	require.NoError(t, err)
	assert.Len(t, detections, 2)
}
