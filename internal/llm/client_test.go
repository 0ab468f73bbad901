package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestComplete_MissingCredential(t *testing.T) {
	c := &OpenAIClient{getenv: envFrom(nil)}
	_, err := c.Complete(context.Background(), []Message{User("hi")}, 0.1)
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestModel_Resolution(t *testing.T) {
	assert.Equal(t, DefaultModel, (&OpenAIClient{getenv: envFrom(nil)}).Model())
	assert.Equal(t, "gpt-4.1", (&OpenAIClient{getenv: envFrom(map[string]string{"OPENAI_MODEL": "gpt-4.1"})}).Model())
	assert.Equal(t, "o3", (&OpenAIClient{getenv: envFrom(map[string]string{
		"OPENAI_MODEL":      "gpt-4.1",
		"OPENAI_BASE_MODEL": "o3",
	})}).Model())
}

func TestComplete_SendsRequest(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  diff --git a/x b/x\n"}}]}`))
	}))
	defer srv.Close()

	c := &OpenAIClient{getenv: envFrom(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"OPENAI_BASE_URL": srv.URL,
	})}
	out, err := c.Complete(context.Background(), []Message{System("only diffs"), User("fix it")}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "  diff --git a/x b/x\n", out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.1, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "fix it", got.Messages[1].Content)
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := &OpenAIClient{getenv: envFrom(map[string]string{"OPENAI_API_KEY": "sk", "OPENAI_BASE_URL": srv.URL})}
	_, err := c.Complete(context.Background(), []Message{User("x")}, 0.1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCredential)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	c := &OpenAIClient{getenv: envFrom(map[string]string{"OPENAI_API_KEY": "sk", "OPENAI_BASE_URL": srv.URL})}
	out, err := c.Complete(context.Background(), []Message{User("x")}, 0.1)
	require.NoError(t, err)
	assert.Empty(t, out)
}
