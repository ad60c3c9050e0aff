package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hieu7404/nlp-rag/internal/corpus"
	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/summarizer"
	"github.com/hieu7404/nlp-rag/internal/vectorstore"
)

const DefaultSummarySentences = 3

// IndexConfig says where and how a build is persisted.
type IndexConfig struct {
	Backend          string
	Path             string
	ChunkSize        int
	Tokenizer        string
	SummarySentences int
}

// BuildReport describes a finished build.
type BuildReport struct {
	Documents int
	Chunks    int
	Dimension int
	Model     string
	Backend   string
	Path      string
	Summary   string
	Elapsed   time.Duration
}

// Indexer runs the offline pipeline: corpus, chunks, vectors, artifact.
type Indexer struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	ranker   *summarizer.Ranker
	cfg      IndexConfig
}

func NewIndexer(chunker domain.Chunker, embedder domain.Embedder, cfg IndexConfig) (*Indexer, error) {
	if chunker == nil || embedder == nil {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "indexer requires a chunker and an embedder")
	}
	if cfg.Path == "" {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "index path is required")
	}
	if cfg.Backend == "" {
		cfg.Backend = vectorstore.DefaultBackend
	}
	if cfg.SummarySentences <= 0 {
		cfg.SummarySentences = DefaultSummarySentences
	}
	return &Indexer{chunker: chunker, embedder: embedder, ranker: summarizer.New(), cfg: cfg}, nil
}

// Build loads the corpus files matched by inputs and persists a fresh index.
// Any previous artifact at the configured path is replaced.
func (ix *Indexer) Build(ctx context.Context, inputs []string) (BuildReport, error) {
	start := time.Now()
	docs, err := corpus.Load(inputs)
	if err != nil {
		return BuildReport{}, err
	}
	slog.Info("corpus loaded", "documents", len(docs))
	report, err := ix.BuildText(ctx, corpus.CollapseBlankLines(corpus.Join(docs)))
	if err != nil {
		return BuildReport{}, err
	}
	report.Documents = len(docs)
	report.Elapsed = time.Since(start)
	return report, nil
}

// BuildText indexes an already loaded corpus.
func (ix *Indexer) BuildText(ctx context.Context, text string) (BuildReport, error) {
	start := time.Now()
	chunks, err := ix.chunker.Chunk(text)
	if err != nil {
		return BuildReport{}, err
	}
	if chunks == nil {
		chunks = []string{}
	}
	slog.Info("corpus chunked", "chunks", len(chunks), "chunk_size", ix.cfg.ChunkSize)

	vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return BuildReport{}, errs.Wrap(err, errs.CodeEmbeddingUpstreamFailure, "embedding chunks",
			errs.FieldModel(ix.embedder.Name()))
	}
	slog.Info("chunks embedded", "vectors", len(vectors), "model", ix.embedder.Name())

	artifact := vectorstore.Artifact{
		Meta: vectorstore.Meta{
			Model:     ix.embedder.Name(),
			ChunkSize: ix.cfg.ChunkSize,
			Tokenizer: ix.cfg.Tokenizer,
		},
		Vectors: vectors,
		Chunks:  chunks,
	}
	if err := vectorstore.Save(ctx, ix.cfg.Backend, ix.cfg.Path, artifact); err != nil {
		return BuildReport{}, err
	}
	dim := ix.embedder.Dimension()
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	slog.Info("index saved", "path", ix.cfg.Path, "backend", ix.cfg.Backend, "dimension", dim)

	return BuildReport{
		Chunks:    len(chunks),
		Dimension: dim,
		Model:     ix.embedder.Name(),
		Backend:   ix.cfg.Backend,
		Path:      ix.cfg.Path,
		Summary:   ix.ranker.Summarize(text, ix.cfg.SummarySentences),
		Elapsed:   time.Since(start),
	}, nil
}
