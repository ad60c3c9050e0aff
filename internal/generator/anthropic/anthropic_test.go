package anthropic

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
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Answer: "},{"type":"text","text":"Hanoi."}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "sk-ant-test", BaseURL: srv.URL, Options: generator.Options{Model: "claude-test", MaxTokens: 64}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-test", g.Name())

	out, err := g.Generate(context.Background(), "Capital of Vietnam?")
	require.NoError(t, err)
	assert.Equal(t, "Answer: Hanoi.", out)
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Options: generator.Options{Model: "claude-test"}})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "q")
	assert.True(t, errs.IsUpstreamFailure(err))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Options: generator.Options{Model: "m"}})
	assert.True(t, errs.IsInvalidInput(err))
	_, err = New(Config{APIKey: "k"})
	assert.True(t, errs.IsInvalidInput(err))
}
