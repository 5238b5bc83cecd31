// Package llm provides minimal, hand-rolled HTTP+JSON clients for the
// cloud and local chat-completion APIs the planner can be backed by. None
// of these wrap a vendor SDK: each talks raw HTTP, mirroring how the
// teacher's own LLM clients are built.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Backend is a single chat-completion call: a system prompt plus a user
// prompt in, a response string out.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// unmarshalOrStatusError decodes body into v, or returns a status-carrying
// error if the HTTP call itself reported a non-2xx status and the body
// could not be parsed into the expected success shape.
func unmarshalOrStatusError(body []byte, status int, provider string, v any) error {
	if status < 200 || status >= 300 {
		return fmt.Errorf("%s: api returned status %d: %s", provider, status, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: parsing response json: %w", provider, err)
	}
	return nil
}
