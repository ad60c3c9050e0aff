package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

var _ generator.Grounded = (*Generator)(nil)

func TestAnswerPicksBestSentence(t *testing.T) {
	g := New()
	assert.Equal(t, Name, g.Name())

	passages := []domain.Passage{
		{Rank: 1, Text: "Dog ran in park. It was sunny."},
		{Rank: 2, Text: "Cat sat on mat."},
	}
	got, err := g.Answer(context.Background(), "Where did the cat sit?", passages)
	require.NoError(t, err)
	assert.Equal(t, "Cat sat on mat.", got)

	got, err = g.Answer(context.Background(), "zebra?", passages)
	require.NoError(t, err)
	assert.Equal(t, "Dog ran in park.", got)

	got, err = g.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateFromPrompt(t *testing.T) {
	g := New()
	prompt := "\nBased on the following information: Dog ran in park. Cat sat on mat.\n" +
		"Answer the question: Where did the cat sit?\nAnswer: "
	got, err := g.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Cat sat on mat.", got)

	got, err = g.Generate(context.Background(), "no question here")
	require.NoError(t, err)
	assert.Empty(t, got)
}
