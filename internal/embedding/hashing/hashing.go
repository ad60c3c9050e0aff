// Package hashing provides an offline bag-of-words embedder. Terms are hashed
// into a fixed number of buckets, so no vocabulary has to be fitted and the
// same text always maps to the same vector.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hieu7404/nlp-rag/internal/embedding"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

const DefaultDimension = 384

// Embedder implements signed feature hashing over lowercased word tokens
// with sublinear term frequency and L2 normalisation.
type Embedder struct {
	name         string
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// ModelDimension reports the bucket count named by a "hashing-<N>" identity.
func ModelDimension(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "hashing-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NewEmbedder creates a hashing embedder with the given number of buckets.
// An empty name yields the identity "hashing-<dimension>". A "hashing-<N>"
// name fixes the dimension to N: a zero dimension takes it, any other value
// must agree with it.
func NewEmbedder(name string, dimension int) (*Embedder, error) {
	if dimension < 0 {
		return nil, errs.Errorf(errs.CodeEmbeddingRequestInvalid, "hashing dimension must be positive, got %d", dimension)
	}
	if n, ok := ModelDimension(name); ok {
		if dimension != 0 && dimension != n {
			return nil, errs.Errorf(errs.CodeEmbeddingRequestInvalid,
				"hashing model %q has dimension %d, configured %d", name, n, dimension)
		}
		dimension = n
	}
	if dimension == 0 {
		dimension = DefaultDimension
	}
	if name == "" {
		name = fmt.Sprintf("hashing-%d", dimension)
	}
	return &Embedder{
		name:         name,
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}, nil
}

// Name returns the model identity persisted with an index.
func (e *Embedder) Name() string { return e.name }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed embedding for text. Text without any content
// word maps to the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimension)
	tf := make(map[string]int)
	for _, tok := range e.tokenize(text) {
		tf[tok]++
	}
	for term, count := range tf {
		idx, sign := e.bucket(term)
		vec[idx] += sign * float32(1+math.Log(float64(count)))
	}
	embedding.Normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) bucket(term string) (int, float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum32()
	sign := float32(1)
	if sum>>31 == 1 {
		sign = -1
	}
	return int(sum % uint32(e.dimension)), sign
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
