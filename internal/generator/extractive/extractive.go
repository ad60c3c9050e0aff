// Package extractive answers offline by quoting the retrieved sentence that
// best matches the question.
package extractive

import (
	"context"
	"strings"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/summarizer"
)

const Name = "extractive"

type Generator struct {
	ranker *summarizer.Ranker
}

func New() *Generator {
	return &Generator{ranker: summarizer.New()}
}

func (g *Generator) Name() string { return Name }

// Answer returns the passage sentence with the highest word overlap with
// question, or the first sentence of the top passage when none overlaps.
func (g *Generator) Answer(ctx context.Context, question string, passages []domain.Passage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var sentences []string
	for _, p := range passages {
		sentences = append(sentences, summarizer.Sentences(p.Text)...)
	}
	if len(sentences) == 0 {
		return "", nil
	}
	if best := g.ranker.BestSentence(question, sentences); best >= 0 {
		return sentences[best], nil
	}
	return sentences[0], nil
}

// Generate answers from the prompt text alone: the last line ending in a
// question mark is taken as the question (without any "label:" prefix), cue
// lines ending in a colon are skipped and the other sentences are context.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	question := ""
	var sentences []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasSuffix(line, "?"):
			question = line
			if i := strings.LastIndex(line, ": "); i >= 0 {
				question = line[i+2:]
			}
			continue
		case strings.HasSuffix(line, ":"):
			continue
		}
		sentences = append(sentences, summarizer.Sentences(line)...)
	}
	if question == "" || len(sentences) == 0 {
		return "", nil
	}
	if best := g.ranker.BestSentence(question, sentences); best >= 0 {
		return sentences[best], nil
	}
	return "", nil
}
