package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/service"
)

type fakeService struct {
	result service.Result
	err    error
	asked  []string
	topK   int
}

func (f *fakeService) Answer(_ context.Context, question string, topK int) (service.Result, error) {
	f.asked = append(f.asked, question)
	f.topK = topK
	res := f.result
	res.Question = question
	return res, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestEnterAsksAndRendersAnswer(t *testing.T) {
	svc := &fakeService{result: service.Result{
		Prompt: "Based on the following information: Cat sat on mat. Dog ran in park.",
		Answer: "Cat sat on mat.",
		Passages: []domain.Passage{
			{Rank: 1, Position: 0, Text: "Cat sat on mat. It was warm."},
			{Rank: 2, Position: 1, Text: "Dog ran in park."},
		},
	}}
	m := sized(t, New(context.Background(), svc, 2, "2 chunks"))
	assert.Contains(t, m.View(), "2 chunks")

	m.input.SetValue("  Where did the cat sit?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"Where did the cat sit?"}, svc.asked)
	assert.Equal(t, 2, svc.topK)

	out := m.renderCurrentResult()
	assert.Contains(t, out, "Passage 1/2")
	assert.Contains(t, out, "Cat sat on mat.")
	assert.Contains(t, out, "It was warm.")
	assert.Contains(t, out, "Based on the following information")
	assert.Contains(t, m.status, "2 passage(s)")
}

func TestCursorWrapsAroundPassages(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeService{}, 3, ""))
	next, _ := m.Update(answerMsg{result: service.Result{
		Question: "q",
		Passages: []domain.Passage{{Text: "one"}, {Text: "two"}, {Text: "three"}},
	}})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 2, m.cursor)
	assert.Contains(t, m.renderCurrentResult(), "Passage 3/3")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestErrorIsShownInStatus(t *testing.T) {
	svc := &fakeService{err: errors.New("index unavailable")}
	m := sized(t, New(context.Background(), svc, 3, ""))
	m.input.SetValue("anything")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Error: index unavailable", m.status)
	assert.Equal(t, "No question yet.", m.renderCurrentResult())
}

func TestEmptyInputDoesNotAsk(t *testing.T) {
	svc := &fakeService{}
	m := sized(t, New(context.Background(), svc, 3, ""))
	m.input.SetValue("   ")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Empty(t, svc.asked)
}

func TestHighlightKeepsAllSentences(t *testing.T) {
	m := New(context.Background(), &fakeService{}, 3, "")
	out := m.highlightBestSentence("The sky is blue. Cats sleep a lot.", "why do cats sleep")
	assert.Contains(t, out, "The sky is blue.")
	assert.Contains(t, out, "Cats sleep a lot.")
	assert.Equal(t, "", m.highlightBestSentence("", "q"))
}
