package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 80.0, cfg.Orchestrator.ConfidenceThreshold)
	assert.Equal(t, 6, cfg.Orchestrator.MaxHops)
	assert.Equal(t, ProviderHeuristic, cfg.Planner.Provider)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9999"
  ws_addr: ":9998"
orchestrator:
  max_hops: 3
planner:
  provider: ollama
  model: "granite4:micro-h"
observability:
  service_name: "investigator-test"
  metrics_addr: ":9091"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, 3, cfg.Orchestrator.MaxHops)
	assert.Equal(t, ProviderOllama, cfg.Planner.Provider)
	assert.Equal(t, "granite4:micro-h", cfg.Planner.Model)
	// Untouched defaults survive the partial override.
	assert.Equal(t, 80.0, cfg.Orchestrator.ConfidenceThreshold)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9999"
  ws_addr: ":9998"
orchestrator:
  max_hops: 3
observability:
  service_name: "investigator-test"
  metrics_addr: ":9091"
`), 0o600))

	t.Setenv("INVESTIGATOR_HTTP_ADDR", ":7777")
	t.Setenv("INVESTIGATOR_MAX_HOPS", "9")
	t.Setenv("INVESTIGATOR_PLANNER_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.HTTPAddr)
	assert.Equal(t, 9, cfg.Orchestrator.MaxHops)
	assert.Equal(t, ProviderAnthropic, cfg.Planner.Provider)
	assert.Equal(t, "sk-test-key", cfg.Planner.APIKey)
}

func TestLoad_OllamaFallbackURL(t *testing.T) {
	t.Setenv("INVESTIGATOR_PLANNER_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Planner.BaseURL)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("INVESTIGATOR_PLANNER_PROVIDER", "not-a-provider")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestConfig_ToOrchestratorOptionsRoundTrips(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	opts := cfg.ToOrchestratorOptions()
	assert.Equal(t, cfg.Orchestrator.MaxHops, opts.MaxHops)
	assert.Equal(t, cfg.Orchestrator.ConfidenceThreshold, opts.ConfidenceThreshold)
}
