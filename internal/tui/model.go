package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hieu7404/nlp-rag/internal/service"
	"github.com/hieu7404/nlp-rag/internal/summarizer"
)

// RAGPort answers one question with its retrieved passages and prompt.
type RAGPort interface {
	Answer(ctx context.Context, question string, topK int) (service.Result, error)
}

// answerMsg carries the outcome of a question back into Update.
type answerMsg struct {
	result service.Result
	err    error
}

// Model is the chat screen: a question input over a scrollable answer pane.
type Model struct {
	service  RAGPort
	ctx      context.Context
	topK     int
	input    textinput.Model
	viewport viewport.Model
	ranker   *summarizer.Ranker
	result   service.Result
	summary  string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance. summary is shown under the header.
func New(ctx context.Context, svc RAGPort, topK int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  svc,
		ctx:      ctx,
		topK:     topK,
		input:    ti,
		viewport: vp,
		ranker:   summarizer.New(),
		summary:  summary,
		status:   "Index loaded. Type a question.",
	}
}

// Init starts the input cursor blinking.
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.service.Answer(m.ctx, question, m.topK)
		return answerMsg{result: res, err: err}
	}
}

// Update handles resizes, key presses and finished answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// header, summary, status and one spacer
		reserved := 4 + qh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = service.Result{}
		} else {
			m.result = msg.result
			m.cursor = 0
			m.status = fmt.Sprintf("%d passage(s) for %q", len(msg.result.Passages), msg.result.Question)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if n := len(m.result.Passages); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if n := len(m.result.Passages); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View stacks the header, index summary, answer pane, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("RAG Question Answering")
	summary := dimStyle.Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if m.result.Question == "" {
		return "No question yet."
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(answerStyle.Render(m.result.Answer))
	b.WriteString("\n\n")

	if len(m.result.Passages) == 0 {
		b.WriteString(dimStyle.Render("No passages retrieved."))
	} else {
		p := m.result.Passages[m.cursor]
		b.WriteString(labelStyle.Render(fmt.Sprintf("Passage %d/%d  position=%d  distance=%.4f",
			m.cursor+1, len(m.result.Passages), p.Position, p.Distance)))
		b.WriteString("\n")
		b.WriteString(m.highlightBestSentence(p.Text, m.result.Question))
	}

	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Prompt"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.TrimSpace(m.result.Prompt)))
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle     = lipgloss.NewStyle().Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func (m Model) highlightBestSentence(text, query string) string {
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	best := m.ranker.BestSentence(query, sentences)
	for i := range sentences {
		if i == best {
			sentences[i] = highlightStyle.Render(sentences[i])
		}
	}
	return strings.Join(sentences, " ")
}
