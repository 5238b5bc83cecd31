package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	anthropicAPIVersion    = "2023-06-01"
	defaultAnthropicAPIURL = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string              `json:"model"`
	Messages  []anthropicMessage  `json:"messages"`
	System    []anthropicSysBlock `json:"system,omitempty"`
	MaxTokens int                 `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicSysBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *anthropicAPIError      `json:"error,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicBackend calls the Anthropic Messages API directly over HTTP.
type AnthropicBackend struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicBackend builds an AnthropicBackend. An empty baseURL falls
// back to the public API endpoint.
func NewAnthropicBackend(apiKey, model, baseURL string, timeout time.Duration) *AnthropicBackend {
	if baseURL == "" {
		baseURL = defaultAnthropicAPIURL
	}
	return &AnthropicBackend{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		maxTokens:  1024,
		httpClient: newHTTPClient(timeout),
	}
}

func (a *AnthropicBackend) Name() string { return "anthropic" }

func (a *AnthropicBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}
	if systemPrompt != "" {
		payload.System = []anthropicSysBlock{{Type: "text", Text: systemPrompt}}
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	body, status, err := doJSON(ctx, a.httpClient, http.MethodPost, a.baseURL, headers, payload)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var parsed anthropicResponse
	if err := unmarshalOrStatusError(body, status, "anthropic", &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic: api error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: response carried no text block")
}
