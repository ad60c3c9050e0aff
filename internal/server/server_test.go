package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/chunker"
	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/embedding/hashing"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator/extractive"
	"github.com/hieu7404/nlp-rag/internal/retriever"
	"github.com/hieu7404/nlp-rag/internal/server"
	"github.com/hieu7404/nlp-rag/internal/service"
	"github.com/hieu7404/nlp-rag/internal/tokenizer/word"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
	_ "github.com/hieu7404/nlp-rag/internal/vectorstore/flat"
)

func newRAG(t *testing.T) *service.RAGService {
	t.Helper()
	ctx := context.Background()
	ch, err := chunker.NewTokenChunker(word.New(), chunker.Config{ChunkSize: 256})
	require.NoError(t, err)
	emb, err := hashing.NewEmbedder("", hashing.DefaultDimension)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.bin")
	ix, err := service.NewIndexer(ch, emb, service.IndexConfig{Path: path, ChunkSize: 256})
	require.NoError(t, err)
	_, err = ix.BuildText(ctx, "Cat sat on mat.\nDog ran in park.\nBirds sing at dawn.")
	require.NoError(t, err)

	store, err := vectorstore.Open(ctx, "", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	r, err := retriever.New(emb, store, store, retriever.Config{TopK: 2})
	require.NoError(t, err)
	svc, err := service.NewRAGService(r, extractive.New(), service.Options{UseRAG: true})
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, rag server.RAG) *server.Server {
	t.Helper()
	srv, err := server.New(rag, server.Config{ListenAddr: "127.0.0.1:0", Chunks: 3, Model: "hashing-384"})
	require.NoError(t, err)
	return srv
}

func post(t *testing.T, srv *server.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_New_Validation(t *testing.T) {
	_, err := server.New(nil, server.Config{ListenAddr: ":0"})
	assert.True(t, errs.HasCode(err, errs.CodeConfigValidateInvalidValue))

	_, err = server.New(newRAG(t), server.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen address is required")
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
		Model  string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Chunks)
	assert.Equal(t, "hashing-384", body.Model)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestServer_Retrieve(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	w := post(t, srv, "/v1/retrieve", `{"question":"Where did the cat sit?","top_k":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Passages []server.PassageView `json:"passages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Passages, 1)
	assert.Equal(t, 1, body.Passages[0].Rank)
	assert.Equal(t, 0, body.Passages[0].Position)
	assert.Equal(t, "Cat sat on mat", body.Passages[0].Text)
}

func TestServer_PromptUsesDefaultTopK(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	w := post(t, srv, "/v1/prompt", `{"question":"Where did the dog run?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Prompt   string               `json:"prompt"`
		Passages []server.PassageView `json:"passages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Passages, 2)
	assert.Contains(t, body.Prompt, "Dog ran in park")
	assert.True(t, strings.HasSuffix(body.Prompt, "Answer: "))
}

func TestServer_Answer(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	w := post(t, srv, "/v1/answer", `{"question":"When do birds sing?","top_k":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Prompt string `json:"prompt"`
		Answer string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Birds sing at dawn.", body.Answer)
	assert.Contains(t, body.Prompt, "Birds sing at dawn.")
}

func TestServer_RejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	w := post(t, srv, "/v1/answer", `{"question":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// failingRAG returns the same error from every operation.
type failingRAG struct{ err error }

func (f failingRAG) Retrieve(context.Context, string, int) ([]domain.Passage, error) {
	return nil, f.err
}

func (f failingRAG) Prompt(context.Context, string, int) ([]domain.Passage, string, error) {
	return nil, "", f.err
}

func (f failingRAG) Answer(context.Context, string, int) (service.Result, error) {
	return service.Result{}, f.err
}

func TestServer_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"dimension mismatch", errs.New(errs.CodeIndexSearchDimension, "query dimension does not match index"), http.StatusBadRequest},
		{"upstream", errs.New(errs.CodeGenerationUpstreamFailure, "model unavailable"), http.StatusBadGateway},
		{"missing chunk", errs.New(errs.CodeChunkStorePositionInvalid, "chunk position out of range"), http.StatusNotFound},
		{"internal", errs.New(errs.CodeIndexLoadFailure, "boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, failingRAG{err: tt.err})
			for _, path := range []string{"/v1/retrieve", "/v1/prompt", "/v1/answer"} {
				w := post(t, srv, path, `{"question":"q"}`)
				assert.Equal(t, tt.want, w.Code, path)
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, newRAG(t))
	req := httptest.NewRequest(http.MethodOptions, "/v1/answer", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
