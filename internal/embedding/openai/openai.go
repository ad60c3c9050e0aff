// Package openai embeds text through an OpenAI-compatible /embeddings
// endpoint. Setting BaseURL points it at Ollama, vLLM or TEI servers.
package openai

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hieu7404/nlp-rag/internal/embedding"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

const DefaultBatchSize = 64

// Config holds the embedding endpoint configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional; empty means api.openai.com
	Model   string
	// Dimensions asks the server for truncated embeddings when > 0.
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// Embedder calls the embeddings API in batches. Requests are not retried.
type Embedder struct {
	client    openaisdk.Client
	model     string
	requested int
	dims      atomic.Int64
	batchSize int
}

// New creates an embedder. The API key may only be omitted for a custom BaseURL.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errs.New(errs.CodeEmbeddingRequestInvalid, "openai embedder: model is required")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errs.New(errs.CodeEmbeddingRequestInvalid, "openai embedder: missing api key", errs.FieldModel(cfg.Model))
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	e := &Embedder{
		client:    openaisdk.NewClient(opts...),
		model:     cfg.Model,
		requested: cfg.Dimensions,
		batchSize: cfg.BatchSize,
	}
	e.dims.Store(int64(cfg.Dimensions))
	return e, nil
}

// Name returns the model identity.
func (e *Embedder) Name() string { return e.model }

// Dimension is the configured size, or the size of the last response.
// It is 0 until known.
func (e *Embedder) Dimension() int { return int(e.dims.Load()) }

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in order, BatchSize texts per request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.Batched(ctx, texts, e.batchSize, e.embed)
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openaisdk.EmbeddingModel(e.model),
	}
	if e.requested > 0 {
		params.Dimensions = openaisdk.Int(int64(e.requested))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstreamFailure, "embeddings request failed",
			errs.FieldModel(e.model), errs.Field("batch", len(texts)))
	}
	if len(resp.Data) != len(texts) {
		return nil, errs.New(errs.CodeEmbeddingResponseInvalid, "embeddings response has wrong length",
			errs.FieldModel(e.model), errs.Field("want", len(texts)), errs.Field("got", len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, errs.New(errs.CodeEmbeddingResponseInvalid, "embeddings response has bad index",
				errs.FieldModel(e.model), errs.Field("index", d.Index))
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		out[d.Index] = v
	}

	dim := int64(len(out[0]))
	if e.dims.CompareAndSwap(0, dim) {
		slog.Debug("embedding dimension detected", "model", e.model, "dimension", dim)
	}
	if err := embedding.CheckDimension(out, int(e.dims.Load())); err != nil {
		return nil, err
	}
	return out, nil
}
