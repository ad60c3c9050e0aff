package domain

import "context"

// SearchResult is one nearest-neighbour hit: a position in the index and its
// squared Euclidean distance to the query.
type SearchResult struct {
	Position int
	Distance float32
}

// Passage is a retrieved chunk after cleaning, in rank order.
type Passage struct {
	Rank     int
	Position int
	Distance float32
	Raw      string
	Text     string
}

// Tokenizer maps text to token ids and back. The round trip is allowed to be
// lossy with respect to whitespace.
type Tokenizer interface {
	Name() string
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunker splits raw corpus text into ordered, bounded-size chunks.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Embedder converts free text into a fixed-dimension vector.
// Name is the model identity persisted alongside an index.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex answers exact k-nearest-neighbour queries over stored vectors.
type VectorIndex interface {
	Len() int
	Dimension() int
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)
}

// ChunkStore is the ordered chunk list aligned 1:1 with a VectorIndex.
type ChunkStore interface {
	Len() int
	Chunk(position int) (string, error)
}

// Generator produces an answer for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
