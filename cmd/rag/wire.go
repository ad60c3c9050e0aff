package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hieu7404/nlp-rag/internal/chunker"
	"github.com/hieu7404/nlp-rag/internal/config"
	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/embedding/hashing"
	openaiemb "github.com/hieu7404/nlp-rag/internal/embedding/openai"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
	anthropicgen "github.com/hieu7404/nlp-rag/internal/generator/anthropic"
	"github.com/hieu7404/nlp-rag/internal/generator/extractive"
	googlegen "github.com/hieu7404/nlp-rag/internal/generator/google"
	openaigen "github.com/hieu7404/nlp-rag/internal/generator/openai"
	"github.com/hieu7404/nlp-rag/internal/retriever"
	"github.com/hieu7404/nlp-rag/internal/service"
	"github.com/hieu7404/nlp-rag/internal/tokenizer/tiktoken"
	"github.com/hieu7404/nlp-rag/internal/tokenizer/word"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
	_ "github.com/hieu7404/nlp-rag/internal/vectorstore/flat"   // register flat backend
	_ "github.com/hieu7404/nlp-rag/internal/vectorstore/sqlite" // register sqlite backend
)

func buildTokenizer(cfg config.TokenizerConfig) (domain.Tokenizer, error) {
	switch cfg.Type {
	case "word", "":
		return word.New(), nil
	case "tiktoken":
		return tiktoken.New(cfg.Encoding)
	default:
		return nil, errs.Errorf(errs.CodeConfigValidateInvalidValue, "unknown tokenizer: %s", cfg.Type)
	}
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Model, cfg.Dimension)
	case "openai":
		return openaiemb.New(openaiemb.Config{
			APIKey:     config.APIKey(cfg.APIKeyEnv),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimension,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, errs.Errorf(errs.CodeConfigValidateInvalidValue, "unknown embedder: %s", cfg.Type)
	}
}

func buildGenerator(ctx context.Context, cfg config.GeneratorConfig) (domain.Generator, error) {
	opts := generator.Options{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	switch cfg.Type {
	case "extractive", "":
		return extractive.New(), nil
	case "openai":
		return openaigen.New(openaigen.Config{APIKey: config.APIKey(cfg.APIKeyEnv), BaseURL: cfg.BaseURL, Options: opts})
	case "anthropic":
		return anthropicgen.New(anthropicgen.Config{APIKey: config.APIKey(cfg.APIKeyEnv), BaseURL: cfg.BaseURL, Options: opts})
	case "google":
		return googlegen.New(ctx, googlegen.Config{APIKey: config.APIKey(cfg.APIKeyEnv), BaseURL: cfg.BaseURL, Options: opts})
	default:
		return nil, errs.Errorf(errs.CodeConfigValidateInvalidValue, "unknown generator: %s", cfg.Type)
	}
}

func buildIndexer(cfg *config.AppConfig) (*service.Indexer, error) {
	tok, err := buildTokenizer(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewTokenChunker(tok, chunker.Config{
		ChunkSize:     cfg.Chunker.ChunkSize,
		OverflowRatio: cfg.Chunker.OverflowRatio,
		MaxDepth:      cfg.Chunker.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	return service.NewIndexer(ch, emb, service.IndexConfig{
		Backend:          cfg.Index.Backend,
		Path:             cfg.Index.Path,
		ChunkSize:        cfg.Chunker.ChunkSize,
		Tokenizer:        tok.Name(),
		SummarySentences: cfg.Summarizer.MaxSentences,
	})
}

// runtime is the query side: a loaded index and the service built on it.
type runtime struct {
	store vectorstore.Store
	svc   *service.RAGService
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// openRuntime loads the configured index and wires retriever and generator.
// The index must have been built with the configured embedding model.
func openRuntime(ctx context.Context, cfg *config.AppConfig) (*runtime, error) {
	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.Open(ctx, cfg.Index.Backend, cfg.Index.Path)
	if err != nil {
		return nil, err
	}
	meta := store.Meta()
	if meta.Model != "" && meta.Model != emb.Name() {
		_ = store.Close()
		return nil, errs.New(errs.CodeConfigValidateInvalidValue,
			fmt.Sprintf("index was built with model %q but %q is configured", meta.Model, emb.Name()),
			errs.FieldPath(cfg.Index.Path))
	}
	slog.Debug("index opened", "path", cfg.Index.Path, "backend", meta.Backend, "chunks", store.Len(), "model", meta.Model)

	r, err := retriever.New(emb, store, store, retriever.Config{
		TopK:            cfg.Retriever.TopK,
		MaxContextChars: cfg.Retriever.MaxContextChars,
		Language:        cfg.Retriever.Language,
		Template:        cfg.Retriever.Template,
		Fallback:        cfg.Retriever.Fallback,
		AnswerCue:       cfg.Retriever.AnswerCue,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	gen, err := buildGenerator(ctx, cfg.Generator)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	svc, err := service.NewRAGService(r, gen, service.Options{UseRAG: cfg.Generator.UseRAG, TopK: cfg.Retriever.TopK})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &runtime{store: store, svc: svc}, nil
}
