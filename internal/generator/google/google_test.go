package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "g-test", r.Header.Get("X-Goog-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model",
			"parts":[{"text":"Answer: "},{"text":"Hanoi."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "g-test", BaseURL: srv.URL, Options: generator.Options{Model: "gemini-test", MaxTokens: 64}})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-test", g.Name())

	out, err := g.Generate(context.Background(), "Capital of Vietnam?")
	require.NoError(t, err)
	assert.Equal(t, "Answer: Hanoi.", out)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", body)
	assert.EqualValues(t, 64, cfg["maxOutputTokens"])
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL, Options: generator.Options{Model: "gemini-test"}})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "q")
	assert.True(t, errs.HasCode(err, errs.CodeGenerationResponseInvalid))
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad model","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL, Options: generator.Options{Model: "gemini-test"}})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "q")
	assert.True(t, errs.IsUpstreamFailure(err))
}

func TestNewValidation(t *testing.T) {
	_, err := New(context.Background(), Config{Options: generator.Options{Model: "m"}})
	assert.True(t, errs.IsInvalidInput(err))
	_, err = New(context.Background(), Config{APIKey: "k"})
	assert.True(t, errs.IsInvalidInput(err))
}
