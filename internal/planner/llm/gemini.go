package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultGeminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiRequest struct {
	Contents          []geminiContent       `json:"contents"`
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiAPIError   `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GeminiBackend calls the Gemini generateContent REST API directly over
// HTTP.
type GeminiBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiBackend builds a GeminiBackend. An empty baseURL falls back to
// the public API endpoint.
func NewGeminiBackend(apiKey, model, baseURL string, timeout time.Duration) *GeminiBackend {
	if baseURL == "" {
		baseURL = defaultGeminiAPIURL
	}
	return &GeminiBackend{apiKey: apiKey, model: model, baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
	}
	if systemPrompt != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	body, status, err := doJSON(ctx, g.httpClient, http.MethodPost, url, nil, payload)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	var parsed geminiResponse
	if err := unmarshalOrStatusError(body, status, "gemini", &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: api error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: response carried no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
