package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

func TestGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"tiny",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Answer: Paris."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Options: generator.Options{Model: "tiny"}})
	require.NoError(t, err)
	assert.Equal(t, "openai/tiny", g.Name())

	out, err := g.Generate(context.Background(), "What is the capital?")
	require.NoError(t, err)
	assert.Equal(t, "Answer: Paris.", out)
	assert.Equal(t, "tiny", got.Model)
	assert.Equal(t, generator.DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "What is the capital?", got.Messages[0].Content)
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	g, err := New(Config{BaseURL: srv.URL + "/v1", Options: generator.Options{Model: "tiny"}})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "q")
	assert.True(t, errs.HasCode(err, errs.CodeGenerationResponseInvalid))
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	g, err := New(Config{BaseURL: srv.URL + "/v1", Options: generator.Options{Model: "tiny"}})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "q")
	assert.True(t, errs.IsUpstreamFailure(err))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errs.IsInvalidInput(err))
	_, err = New(Config{Options: generator.Options{Model: "gpt-4.1-mini"}})
	assert.True(t, errs.IsInvalidInput(err))
}
