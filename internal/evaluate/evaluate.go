// Package evaluate scores predicted answers against reference answers.
package evaluate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hieu7404/nlp-rag/internal/errs"
)

// Row is the comparison of one reference with one prediction.
type Row struct {
	Index      int
	Reference  string
	Prediction string
	Match      bool
}

// Report holds the per-item rows and the overall accuracy.
type Report struct {
	Rows    []Row
	Correct int
	Total   int
}

// Accuracy is Correct/Total as a percentage; 0 for an empty report.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

// Match reports whether two answers agree after trimming and lowercasing:
// equal, or one contained in the other. An empty answer only matches an
// empty answer.
func Match(reference, prediction string) bool {
	ref := normalize(reference)
	pred := normalize(prediction)
	if ref == "" || pred == "" {
		return ref == pred
	}
	return ref == pred || strings.Contains(pred, ref) || strings.Contains(ref, pred)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Compare pairs references and predictions by position. Different lengths
// produce an eval.count.mismatch error and no report.
func Compare(references, predictions []string) (Report, error) {
	if len(references) != len(predictions) {
		return Report{}, errs.New(errs.CodeEvalCountMismatch, "reference and prediction counts differ",
			errs.Field("references", len(references)), errs.Field("predictions", len(predictions)))
	}
	rep := Report{Rows: make([]Row, len(references)), Total: len(references)}
	for i := range references {
		m := Match(references[i], predictions[i])
		if m {
			rep.Correct++
		}
		rep.Rows[i] = Row{Index: i + 1, Reference: references[i], Prediction: predictions[i], Match: m}
	}
	return rep, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle   = lipgloss.NewStyle().Width(50).MaxWidth(50)
	indexStyle  = lipgloss.NewStyle().Width(5)
)

// Render formats the report as a table followed by the accuracy line.
// Mismatched rows are repeated in full below the table row.
func Render(rep Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		indexStyle.Render("#"), cellStyle.Render("Reference"), cellStyle.Render("Prediction"), "Result")))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("-", 110)))
	b.WriteString("\n")
	for _, row := range rep.Rows {
		result := okStyle.Render("match")
		if !row.Match {
			result = failStyle.Render("miss")
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			indexStyle.Render(fmt.Sprint(row.Index)),
			cellStyle.Render(ellipsize(row.Reference, 47)),
			cellStyle.Render(ellipsize(row.Prediction, 47)),
			result))
		b.WriteString("\n")
		if !row.Match {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    reference=%q prediction=%q", row.Reference, row.Prediction)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("Accuracy: %.2f%% (%d/%d)", rep.Accuracy(), rep.Correct, rep.Total)))
	b.WriteString("\n")
	return b.String()
}

func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
