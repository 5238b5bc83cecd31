// Package providerfactory constructs a planner.Planner backed by a
// concrete LLM provider, mirroring the teacher's per-role
// agent/providers.ProviderFactory: one config in, the right adapter out,
// wrapped in the same egress controls regardless of which provider was
// chosen.
package providerfactory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/prompts"

	"github.com/lumenpath/investigator/internal/planner"
	"github.com/lumenpath/investigator/internal/planner/egress"
	"github.com/lumenpath/investigator/internal/planner/llm"
)

// Provider identifies which backend a ProviderConfig selects.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
	ProviderHeuristic Provider = "heuristic"
)

// ProviderConfig selects and configures one planner backend.
type ProviderConfig struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// RateLimitPerMinute, if non-zero, bounds outbound calls to this
	// provider via the egress guard.
	RateLimitPerMinute int
	// AuditLog enables structured audit logging of every planner call.
	AuditLog bool
}

// Factory constructs planner.Planner instances from ProviderConfig.
// Safe for concurrent use after construction.
type Factory struct{}

// New returns a Factory.
func New() *Factory { return &Factory{} }

// Build constructs the planner.Planner for cfg. ProviderHeuristic (or the
// zero Provider value) returns (nil, nil): the caller passes nil straight
// into planner.Plan, which degrades to the heuristic fallback.
func (f *Factory) Build(cfg ProviderConfig) (planner.Planner, error) {
	if cfg.Provider == "" || cfg.Provider == ProviderHeuristic {
		return nil, nil
	}

	backend, err := f.backend(cfg)
	if err != nil {
		return nil, err
	}

	limiter := egress.NewLimiter(map[string]int{string(cfg.Provider): cfg.RateLimitPerMinute})
	guard := egress.NewGuard(limiter, egress.NewAuditor(nil, cfg.AuditLog))
	credential := egress.NewCredential(cfg.APIKey)

	return &llmPlanner{backend: backend, guard: guard, credential: credential, model: cfg.Model}, nil
}

func (f *Factory) backend(cfg ProviderConfig) (llm.Backend, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return llm.NewAnthropicBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case ProviderOpenAI:
		return llm.NewOpenAIBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case ProviderGemini:
		return llm.NewGeminiBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case ProviderOllama:
		return llm.NewOllamaBackend(cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("providerfactory: unsupported provider %q", cfg.Provider)
	}
}

// promptTemplate renders the planner's "pick next candidates" instruction
// from the current investigation state. Built with langchaingo's prompt
// template type rather than ad hoc string concatenation.
var promptTemplate = prompts.NewPromptTemplate(
	`You are choosing the next hop in a chain of public co-appearances.

Source: {{.source}}
Target: {{.target}}
Currently at: {{.frontier}}
Hops used: {{.hopsUsed}} of {{.hopLimit}}
Failed candidates (do not reselect): {{.failedCandidates}}

Ranked candidates seen alongside {{.frontier}} (name, co-appearance count, best confidence):
{{.candidates}}

Reply with ONLY a JSON object of this exact shape, choosing nextCandidates strictly from the ranked candidates above:
{"nextCandidates": ["name", ...], "searchQueries": ["query", ...], "narration": "short sentence", "stop": false, "reason": "short string"}`,
	[]string{"source", "target", "frontier", "hopsUsed", "hopLimit", "failedCandidates", "candidates"},
)

// llmPlanner adapts an llm.Backend into a planner.Planner, routing every
// call through the egress guard and parsing the backend's JSON reply into
// a planner.Output.
type llmPlanner struct {
	backend    llm.Backend
	guard      *egress.Guard
	credential *egress.Credential
	model      string
}

func (p *llmPlanner) Plan(ctx context.Context, in planner.Input) (planner.Output, error) {
	prompt, err := p.renderPrompt(in)
	if err != nil {
		return planner.Output{}, fmt.Errorf("providerfactory: rendering prompt: %w", err)
	}

	decision := egress.Decision{Provider: p.backend.Name(), Model: p.model}
	raw, err := p.guard.Call(ctx, decision, func(ctx context.Context) (string, error) {
		return p.backend.Complete(ctx, systemPrompt, prompt)
	})
	if err != nil {
		return planner.Output{}, err
	}

	return parseOutput(raw)
}

const systemPrompt = "You select the next candidate to investigate in a public co-appearance search. Always answer with a single JSON object and nothing else."

func (p *llmPlanner) renderPrompt(in planner.Input) (string, error) {
	var candidateLines []string
	for _, c := range in.Candidates {
		candidateLines = append(candidateLines, fmt.Sprintf("- %s (count=%d, bestConfidence=%.1f)", c.Name, c.Count, c.BestConfidence))
	}

	return promptTemplate.Format(map[string]any{
		"source":           in.Source.Name,
		"target":           in.Target.Name,
		"frontier":         in.Frontier.Name,
		"hopsUsed":         in.HopsUsed,
		"hopLimit":         in.HopLimit,
		"failedCandidates": strings.Join(in.FailedCandidates, ", "),
		"candidates":       strings.Join(candidateLines, "\n"),
	})
}

// jsonOutput mirrors planner.Output for decoding the backend's reply.
type jsonOutput struct {
	NextCandidates []string `json:"nextCandidates"`
	SearchQueries  []string `json:"searchQueries"`
	Narration      string   `json:"narration"`
	Stop           bool     `json:"stop"`
	Reason         string   `json:"reason"`
}

// parseOutput extracts the JSON object from raw, tolerating leading or
// trailing prose some providers add despite instructions.
func parseOutput(raw string) (planner.Output, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return planner.Output{}, fmt.Errorf("providerfactory: no JSON object found in planner reply")
	}

	var parsed jsonOutput
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return planner.Output{}, fmt.Errorf("providerfactory: parsing planner reply: %w", err)
	}

	return planner.Output{
		NextCandidates: parsed.NextCandidates,
		SearchQueries:  parsed.SearchQueries,
		Narration:      parsed.Narration,
		Stop:           parsed.Stop,
		Reason:         parsed.Reason,
	}, nil
}
