package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/config"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, "hashing-384", cfg.Embedder.Model)
	assert.Zero(t, cfg.Embedder.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Embedder.Timeout)
	assert.Equal(t, 256, cfg.Chunker.ChunkSize)
	assert.InDelta(t, 1.1, cfg.Chunker.OverflowRatio, 1e-9)
	assert.Equal(t, "flat", cfg.Index.Backend)
	assert.Equal(t, 3, cfg.Retriever.TopK)
	assert.Equal(t, 256, cfg.Retriever.MaxContextChars)
	assert.Equal(t, "extractive", cfg.Generator.Type)
	assert.True(t, cfg.Generator.UseRAG)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.yaml")
	content := `
embedder:
  type: openai
  model: text-embedding-3-small
  timeout: 5s
index:
  backend: sqlite
  path: /tmp/idx.db
retriever:
  top_k: 5
  language: vi
generator:
  type: anthropic
  model: claude-haiku
  use_rag: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 5*time.Second, cfg.Embedder.Timeout)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, 5, cfg.Retriever.TopK)
	assert.Equal(t, "vi", cfg.Retriever.Language)
	assert.False(t, cfg.Generator.UseRAG)
	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Chunker.ChunkSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RAG_INDEX_PATH", "/srv/index.bin")
	t.Setenv("RAG_RETRIEVER_TOP_K", "7")
	t.Setenv("MODEL_EMBEDDING", "hashing-custom")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/index.bin", cfg.Index.Path)
	assert.Equal(t, 7, cfg.Retriever.TopK)
	assert.Equal(t, "hashing-custom", cfg.Embedder.Model)
}

func TestLoad_MissingModelIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  model: \"\"\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "embedder.model")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeConfigLoadReadFailure))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Embedder.Type = "bert"
	cfg.Tokenizer.Type = "sentencepiece"
	cfg.Chunker.ChunkSize = 0
	cfg.Chunker.OverflowRatio = 0.5
	cfg.Index.Backend = "qdrant"
	cfg.Retriever.TopK = 0
	cfg.Retriever.Language = "fr"
	cfg.Generator.Type = "openai"
	cfg.Log.Format = "xml"

	list := cfg.Validate()
	require.Len(t, list, 9)
	var joined []string
	for _, err := range list {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")
	for _, key := range []string{
		"embedder.type", "tokenizer.type", "chunker.chunk_size", "chunker.overflow_ratio",
		"index.backend", "retriever.top_k", "retriever.language", "generator.model", "log.format",
	} {
		assert.Contains(t, all, key)
	}
}

func TestValidate_HashingModelDimension(t *testing.T) {
	cfg := config.Default()
	cfg.Embedder.Dimension = 128
	list := cfg.Validate()
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Error(), "embedder.dimension 128")

	cfg.Embedder.Model = "hashing-128"
	assert.Empty(t, cfg.Validate())

	cfg.Embedder.Model = "my-hashing"
	assert.Empty(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.Retriever.Fallback = "Nothing found."
	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_BootstrapsUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := config.LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "rag", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, config.Default(), cfg)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("TEST_RAG_KEY", "sk-test")
	assert.Equal(t, "sk-test", config.APIKey("TEST_RAG_KEY"))
	assert.Equal(t, "", config.APIKey(""))
}
