package chunker

import (
	"regexp"
	"strings"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

const (
	DefaultChunkSize     = 256
	DefaultOverflowRatio = 1.1
	DefaultMaxDepth      = 64
)

// Config controls the token budget of a chunk.
type Config struct {
	// ChunkSize is the target number of tokens per chunk.
	ChunkSize int
	// OverflowRatio scales ChunkSize into the inclusive ceiling a chunk may reach.
	OverflowRatio float64
	// MaxDepth caps the bisection recursion.
	MaxDepth int
}

// TokenChunker splits text on sentence and line boundaries, then bisects any
// segment whose token count exceeds the ceiling.
type TokenChunker struct {
	tokenizer domain.Tokenizer
	ceiling   float64
	maxDepth  int
	splitter  *regexp.Regexp
}

func NewTokenChunker(tokenizer domain.Tokenizer, cfg Config) (*TokenChunker, error) {
	if tokenizer == nil {
		return nil, errs.New(errs.CodeChunkerConfigInvalid, "chunker requires a tokenizer")
	}
	if cfg.ChunkSize <= 0 {
		return nil, errs.Errorf(errs.CodeChunkerConfigInvalid, "chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.OverflowRatio == 0 {
		cfg.OverflowRatio = DefaultOverflowRatio
	}
	if cfg.OverflowRatio < 1 {
		return nil, errs.Errorf(errs.CodeChunkerConfigInvalid, "overflow ratio must be >= 1, got %g", cfg.OverflowRatio)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &TokenChunker{
		tokenizer: tokenizer,
		ceiling:   float64(cfg.ChunkSize) * cfg.OverflowRatio,
		maxDepth:  cfg.MaxDepth,
		splitter:  regexp.MustCompile(`\.[\s\p{Z}\x{85}]+|\n+`),
	}, nil
}

// Ceiling is the inclusive maximum token count of an emitted chunk.
func (c *TokenChunker) Ceiling() float64 { return c.ceiling }

// Chunk returns the chunks of text in document order.
func (c *TokenChunker) Chunk(text string) ([]string, error) {
	var chunks []string
	for _, segment := range c.roughSegments(text) {
		tokens := c.tokenizer.Encode(segment)
		if len(tokens) == 0 {
			continue
		}
		for _, part := range c.Split(tokens) {
			chunks = append(chunks, c.tokenizer.Decode(part))
		}
	}
	return chunks, nil
}

func (c *TokenChunker) roughSegments(text string) []string {
	raw := c.splitter.Split(text, -1)
	out := raw[:0]
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Split bisects tokens at the midpoint until every piece fits the ceiling.
// A single token is never split, and pieces at MaxDepth are kept as they are.
func (c *TokenChunker) Split(tokens []int) [][]int {
	return c.bisect(tokens, 0, nil)
}

func (c *TokenChunker) bisect(tokens []int, depth int, out [][]int) [][]int {
	if float64(len(tokens)) <= c.ceiling || len(tokens) <= 1 || depth >= c.maxDepth {
		return append(out, tokens)
	}
	mid := len(tokens) / 2
	out = c.bisect(tokens[:mid], depth+1, out)
	return c.bisect(tokens[mid:], depth+1, out)
}
