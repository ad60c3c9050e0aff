// Package retriever turns a question into a ranked, cleaned context and the
// augmented prompt handed to a generator.
package retriever

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

const DefaultTopK = 3

// Config controls retrieval and prompt assembly. Zero values select defaults.
type Config struct {
	TopK            int
	MaxContextChars int
	// Language picks a built-in preset ("en", "vi").
	Language string
	// Template, Fallback and AnswerCue override the preset when set.
	Template  string
	Fallback  string
	AnswerCue string
}

// Retriever combines an embedder with a loaded index and its chunks. The index
// and chunks are only read, so one Retriever can serve concurrent queries.
type Retriever struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	chunks   domain.ChunkStore
	cleaner  Cleaner
	tmpl     *template.Template
	fallback string
	cue      string
	topK     int
}

func New(embedder domain.Embedder, index domain.VectorIndex, chunks domain.ChunkStore, cfg Config) (*Retriever, error) {
	if embedder == nil || index == nil || chunks == nil {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "retriever requires an embedder, an index and a chunk store")
	}
	lang, ok := LookupLanguage(cfg.Language)
	if !ok {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "unknown prompt language",
			errs.Field("language", cfg.Language), errs.Field("known", Languages()))
	}
	src := lang.Template
	if cfg.Template != "" {
		src = cfg.Template
	}
	tmpl, err := parseTemplate(src)
	if err != nil {
		return nil, err
	}
	fallback := lang.Fallback
	if cfg.Fallback != "" {
		fallback = cfg.Fallback
	}
	cue := lang.AnswerCue
	if cfg.AnswerCue != "" {
		cue = cfg.AnswerCue
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		cleaner:  Cleaner{MaxChars: cfg.MaxContextChars},
		tmpl:     tmpl,
		fallback: fallback,
		cue:      cue,
		topK:     topK,
	}, nil
}

// Fallback is the string returned when nothing relevant was found.
func (r *Retriever) Fallback() string { return r.fallback }

// AnswerCue is the label the prompt ends with.
func (r *Retriever) AnswerCue() string { return r.cue }

// TopK is the default number of passages per query.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve embeds query and returns up to topK cleaned passages in rank order.
// topK <= 0 selects the configured default. An empty index yields no passages
// and no error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.Passage, error) {
	if topK <= 0 {
		topK = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := r.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	passages := make([]domain.Passage, 0, len(hits))
	for rank, hit := range hits {
		raw, err := r.chunks.Chunk(hit.Position)
		if err != nil {
			return nil, err
		}
		passages = append(passages, domain.Passage{
			Rank:     rank + 1,
			Position: hit.Position,
			Distance: hit.Distance,
			Raw:      raw,
			Text:     r.cleaner.Clean(raw),
		})
	}
	slog.Debug("retrieved passages", "query", query, "top_k", topK, "hits", len(passages))
	return passages, nil
}

// BuildPrompt renders the prompt for query over passages. With no passages it
// returns the fallback string.
func (r *Retriever) BuildPrompt(query string, passages []domain.Passage) (string, error) {
	if len(passages) == 0 {
		return r.fallback, nil
	}
	var b strings.Builder
	err := r.tmpl.Execute(&b, PromptData{
		Context:  joinContext(passages),
		Question: query,
		Passages: passages,
	})
	if err != nil {
		return "", errs.Wrap(err, errs.CodeConfigValidateInvalidValue, "rendering prompt template")
	}
	return b.String(), nil
}

// RetrieveAndBuildPrompt is Retrieve followed by BuildPrompt.
func (r *Retriever) RetrieveAndBuildPrompt(ctx context.Context, query string, topK int) (string, error) {
	passages, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return r.BuildPrompt(query, passages)
}
