// Package config loads the investigator's settings from a YAML file,
// applies environment overrides, and fills in defaults, mirroring the
// teacher's trace/agent/providers config loader: explicit env var wins
// over file, file wins over default.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lumenpath/investigator/internal/orchestrator"
	"github.com/lumenpath/investigator/internal/planner/providerfactory"
)

// Provider name constants, same set the provider factory recognizes.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// ServerConfig holds the transport adapters' listen addresses.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" validate:"required"`
	WSAddr   string `yaml:"ws_addr" validate:"required"`
}

// PlannerConfig selects and configures the planner backend. Provider ""
// (or "heuristic") disables the LLM planner; the orchestrator falls back
// to the heuristic for every decision.
type PlannerConfig struct {
	Provider           string        `yaml:"provider" validate:"omitempty,oneof=ollama anthropic openai gemini heuristic"`
	Model              string        `yaml:"model"`
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"-"` // never loaded from file; env/secret store only
	Timeout            time.Duration `yaml:"timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	AuditLog           bool          `yaml:"audit_log"`
}

// ObservabilityConfig configures the tracer/meter-provider bootstrap.
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	MetricsAddr    string `yaml:"metrics_addr" validate:"required"`
	StdoutFallback bool   `yaml:"stdout_fallback"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// NATSConfig configures the optional event-stream fan-out. Disabled when
// URL is empty.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// InfluxConfig configures the optional budget-consumption time-series
// sink. Disabled when URL is empty.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"-"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// OrchestratorConfig mirrors orchestrator.Options field for field, so it
// can be loaded from YAML/env and then converted with ToOptions.
type OrchestratorConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold" validate:"gte=0,lte=100"`
	MaxHops             int           `yaml:"max_hops" validate:"gte=1"`
	ImagesPerQuery      int           `yaml:"images_per_query" validate:"gte=1"`
	MaxImagesSearched   int           `yaml:"max_images_searched" validate:"gte=0"`
	MaxImagesRecognized int           `yaml:"max_images_recognized" validate:"gte=0"`
	MaxPlannerCalls     int           `yaml:"max_planner_calls" validate:"gte=0"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	MaxImageBytes       int64         `yaml:"max_image_bytes" validate:"gte=0"`
	VerifyParallelism   int           `yaml:"verify_parallelism" validate:"gte=1"`
}

// Config is the investigator's full runtime configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" validate:"required"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator" validate:"required"`
	Planner       PlannerConfig       `yaml:"planner"`
	Observability ObservabilityConfig `yaml:"observability" validate:"required"`
	NATS          NATSConfig          `yaml:"nats"`
	Influx        InfluxConfig        `yaml:"influx"`
}

// Default returns a Config populated with the values enumerated in the
// consumer interface's configuration table.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
			WSAddr:   ":8081",
		},
		Orchestrator: OrchestratorConfig{
			ConfidenceThreshold: 80,
			MaxHops:             6,
			ImagesPerQuery:      5,
			FetchTimeout:        10 * time.Second,
			MaxImageBytes:       5 * 1024 * 1024,
			VerifyParallelism:   2,
		},
		Planner: PlannerConfig{
			Provider: ProviderHeuristic,
			Timeout:  30 * time.Second,
		},
		Observability: ObservabilityConfig{
			ServiceName: "investigator",
			MetricsAddr: ":9090",
			LogLevel:    "info",
		},
	}
}

// Load reads path (if non-empty) as YAML over the defaults, applies
// environment overrides, validates the result, and returns it. path may
// be empty to load defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// applyEnvOverrides reads INVESTIGATOR_* variables, falling back to
// OLLAMA_BASE_URL/OLLAMA_URL and the cloud providers' own *_API_KEY
// variables, the same resolution order as the teacher's role config
// loader.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INVESTIGATOR_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("INVESTIGATOR_WS_ADDR"); v != "" {
		cfg.Server.WSAddr = v
	}

	if v := os.Getenv("INVESTIGATOR_PLANNER_PROVIDER"); v != "" {
		cfg.Planner.Provider = v
	}
	if v := os.Getenv("INVESTIGATOR_PLANNER_MODEL"); v != "" {
		cfg.Planner.Model = v
	}
	if v := os.Getenv("INVESTIGATOR_PLANNER_BASE_URL"); v != "" {
		cfg.Planner.BaseURL = v
	}

	switch cfg.Planner.Provider {
	case ProviderOllama:
		if cfg.Planner.BaseURL == "" {
			cfg.Planner.BaseURL = resolveOllamaURL()
		}
	case ProviderAnthropic:
		cfg.Planner.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		cfg.Planner.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		cfg.Planner.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if v := os.Getenv("INVESTIGATOR_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orchestrator.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("INVESTIGATOR_MAX_HOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MaxHops = n
		}
	}

	if v := os.Getenv("INVESTIGATOR_OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("INVESTIGATOR_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		cfg.Influx.Token = v
	}
}

// resolveOllamaURL resolves the Ollama server URL from environment
// variables: OLLAMA_BASE_URL preferred, OLLAMA_URL accepted with a
// deprecation warning, http://localhost:11434 as the last resort.
func resolveOllamaURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		slog.Warn("OLLAMA_URL is deprecated, use OLLAMA_BASE_URL instead", slog.String("ollama_url", url))
		return url
	}
	return "http://localhost:11434"
}

// ToOrchestratorOptions converts the loaded configuration into
// orchestrator.Options, wiring planner last since it requires a built
// planner.Planner rather than a config value.
func (c Config) ToOrchestratorOptions() orchestrator.Options {
	return orchestrator.Options{
		ConfidenceThreshold: c.Orchestrator.ConfidenceThreshold,
		MaxHops:             c.Orchestrator.MaxHops,
		ImagesPerQuery:      c.Orchestrator.ImagesPerQuery,
		MaxImagesSearched:   c.Orchestrator.MaxImagesSearched,
		MaxImagesRecognized: c.Orchestrator.MaxImagesRecognized,
		MaxPlannerCalls:     c.Orchestrator.MaxPlannerCalls,
		FetchTimeout:        c.Orchestrator.FetchTimeout,
		MaxImageBytes:       c.Orchestrator.MaxImageBytes,
		VerifyParallelism:   c.Orchestrator.VerifyParallelism,
	}
}

// ToProviderConfig converts the loaded planner configuration into
// providerfactory.ProviderConfig.
func (c Config) ToProviderConfig() providerfactory.ProviderConfig {
	return providerfactory.ProviderConfig{
		Provider:           providerfactory.Provider(c.Planner.Provider),
		Model:              c.Planner.Model,
		APIKey:             c.Planner.APIKey,
		BaseURL:            c.Planner.BaseURL,
		Timeout:            c.Planner.Timeout,
		RateLimitPerMinute: c.Planner.RateLimitPerMinute,
		AuditLog:           c.Planner.AuditLog,
	}
}
