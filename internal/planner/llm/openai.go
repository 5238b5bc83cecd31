package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultOpenAIAPIURL = "https://api.openai.com/v1/chat/completions"

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice   `json:"choices"`
	Error   *openaiAPIError  `json:"error,omitempty"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OpenAIBackend calls the OpenAI Chat Completions API directly over HTTP.
type OpenAIBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIBackend builds an OpenAIBackend. An empty baseURL falls back to
// the public API endpoint, which also lets an OpenAI-compatible gateway be
// configured in its place.
func NewOpenAIBackend(apiKey, model, baseURL string, timeout time.Duration) *OpenAIBackend {
	if baseURL == "" {
		baseURL = defaultOpenAIAPIURL
	}
	return &OpenAIBackend{apiKey: apiKey, model: model, baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

func (o *OpenAIBackend) Name() string { return "openai" }

func (o *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openaiMessage{}
	if systemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: userPrompt})

	payload := openaiRequest{Model: o.model, Messages: messages}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	body, status, err := doJSON(ctx, o.httpClient, http.MethodPost, o.baseURL, headers, payload)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var parsed openaiResponse
	if err := unmarshalOrStatusError(body, status, "openai", &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai: api error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: response carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
