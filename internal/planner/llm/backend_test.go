package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicBackend_ParsesTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"content":[{"type":"text","text":"hello from claude"}]}`))
	}))
	defer srv.Close()

	b := NewAnthropicBackend("test-key", "claude-3", srv.URL, time.Second)
	out, err := b.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello from claude", out)
	assert.Equal(t, "anthropic", b.Name())
}

func TestAnthropicBackend_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad key"}}`))
	}))
	defer srv.Close()

	b := NewAnthropicBackend("bad-key", "claude-3", srv.URL, time.Second)
	_, err := b.Complete(context.Background(), "", "user")
	assert.ErrorContains(t, err, "bad key")
}

func TestOpenAIBackend_ParsesChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello from gpt"}}]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("test-key", "gpt-4o", srv.URL, time.Second)
	out, err := b.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello from gpt", out)
}

func TestGeminiBackend_ParsesCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello from gemini"}]}}]}`))
	}))
	defer srv.Close()

	b := NewGeminiBackend("test-key", "gemini-1.5", srv.URL, time.Second)
	out, err := b.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello from gemini", out)
}

func TestOllamaBackend_ParsesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello from llama"}}`))
	}))
	defer srv.Close()

	b := NewOllamaBackend("llama3", srv.URL, time.Second)
	out, err := b.Complete(context.Background(), "", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello from llama", out)
}

func TestOllamaBackend_EmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":""}}`))
	}))
	defer srv.Close()

	b := NewOllamaBackend("llama3", srv.URL, time.Second)
	_, err := b.Complete(context.Background(), "", "user")
	assert.Error(t, err)
}
