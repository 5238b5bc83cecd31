package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// OllamaBackend calls a local Ollama /api/chat endpoint directly over
// HTTP, with no streaming (stream: false is always sent).
type OllamaBackend struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOllamaBackend builds an OllamaBackend. An empty baseURL falls back to
// the default local Ollama endpoint.
func NewOllamaBackend(model, baseURL string, timeout time.Duration) *OllamaBackend {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaBackend{model: model, baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []ollamaMessage{}
	if systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: userPrompt})

	payload := ollamaChatRequest{Model: o.model, Messages: messages, Stream: false}
	url := o.baseURL + "/api/chat"

	body, status, err := doJSON(ctx, o.httpClient, http.MethodPost, url, nil, payload)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	var parsed ollamaChatResponse
	if err := unmarshalOrStatusError(body, status, "ollama", &parsed); err != nil {
		return "", err
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: api error: %s", parsed.Error)
	}
	if parsed.Message.Content == "" {
		return "", fmt.Errorf("ollama: response carried no message content")
	}
	return parsed.Message.Content, nil
}
