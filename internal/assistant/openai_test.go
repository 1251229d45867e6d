package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salesflow/salesflow-api/internal/assistant"
	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOpenAI(t *testing.T, handler http.HandlerFunc) *assistant.OpenAICompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return assistant.NewOpenAICompleter(&config.AIConfig{
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: srv.URL + "/",
		Timeout:       5,
	}, zap.NewNop())
}

func TestOpenAICompleter_Success(t *testing.T) {
	c := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4.1-mini", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"reply\":\"hi\"}"}}]}`))
	})

	out, err := c.Complete(context.Background(), assistant.CompletionRequest{System: "s", User: "u", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"hi"}`, out)
	assert.Equal(t, assistant.ProviderOpenAI, c.Provider())
}

func TestOpenAICompleter_UpstreamError(t *testing.T) {
	c := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	_, err := c.Complete(context.Background(), assistant.CompletionRequest{User: "u"})
	var upstream *assistant.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.Equal(t, "Rate limit reached", upstream.Message)
}

func TestOpenAICompleter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := assistant.NewOpenAICompleter(&config.AIConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: url, Timeout: 5}, zap.NewNop())
	_, err := c.Complete(context.Background(), assistant.CompletionRequest{User: "u"})
	assert.ErrorIs(t, err, assistant.ErrUnavailable)
}

func TestNewCompleter_NotConfigured(t *testing.T) {
	_, err := assistant.NewCompleter(context.Background(), &config.AIConfig{Provider: "openai"}, zap.NewNop())
	assert.ErrorIs(t, err, assistant.ErrNotConfigured)

	_, err = assistant.NewCompleter(context.Background(), &config.AIConfig{Provider: "gemini", OpenAIAPIKey: "sk"}, zap.NewNop())
	assert.ErrorIs(t, err, assistant.ErrNotConfigured)
}
