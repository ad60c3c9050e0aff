// Package generator holds the answer post-processing shared by all text
// generators. Implementations live in the sub-packages.
package generator

import (
	"context"
	"strings"

	"github.com/hieu7404/nlp-rag/internal/domain"
)

// Generator produces an answer for a prompt.
type Generator = domain.Generator

// Grounded is implemented by generators that answer from the retrieved
// passages directly rather than from the rendered prompt.
type Grounded interface {
	Answer(ctx context.Context, question string, passages []domain.Passage) (string, error)
}

const (
	DefaultMaxTokens   = 128
	DefaultTemperature = 0.2
)

// Options are the sampling settings common to the remote generators.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// WithDefaults fills a zero MaxTokens. A zero Temperature is kept.
func (o Options) WithDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// ExtractAnswer reduces raw model output to a short answer: the text after
// the last occurrence of cue (all of raw when cue is absent), then its first
// line, then its first sentence.
func ExtractAnswer(raw, cue string) string {
	answer := raw
	if cue != "" {
		if i := strings.LastIndex(raw, cue); i >= 0 {
			answer = raw[i+len(cue):]
		}
	}
	answer = strings.TrimSpace(answer)
	if i := strings.IndexByte(answer, '\n'); i >= 0 {
		answer = answer[:i]
	}
	if i := strings.Index(answer, ". "); i >= 0 {
		answer = answer[:i]
	}
	return strings.TrimSpace(answer)
}
