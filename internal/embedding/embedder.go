package embedding

import (
	"context"
	"math"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

// Embedder converts free text into a numeric vector representation.
type Embedder = domain.Embedder

// BatchFunc embeds one batch of texts, returning one vector per text.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Batched splits texts into groups of at most size and calls fn for each,
// concatenating the vectors in input order. A non-positive size means one batch.
func Batched(ctx context.Context, texts []string, size int, fn BatchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(texts))
		vectors, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, errs.New(errs.CodeEmbeddingResponseInvalid, "embedding batch returned wrong number of vectors",
				errs.Field("want", end-start), errs.Field("got", len(vectors)))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// CheckDimension returns an error unless every vector has dimension dim.
func CheckDimension(vectors [][]float32, dim int) error {
	for i, v := range vectors {
		if len(v) != dim {
			return errs.New(errs.CodeEmbeddingResponseInvalid, "embedding has unexpected dimension",
				errs.Field("position", i), errs.Field("want", dim), errs.Field("got", len(v)))
		}
	}
	return nil
}

// Normalize scales v to unit L2 norm in place. The zero vector is left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
