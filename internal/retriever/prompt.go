package retriever

import (
	"sort"
	"strings"
	"text/template"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

// Language is a built-in prompt preset.
type Language struct {
	// Template is a text/template over PromptData.
	Template string
	// Fallback is returned instead of a prompt when nothing was retrieved.
	Fallback string
	// AnswerCue is the label the template ends with; generators cut their
	// output after its last occurrence.
	AnswerCue string
}

const DefaultLanguage = "en"

var languages = map[string]Language{
	"en": {
		Template: "\nBased on the following information: {{.Context}}\n" +
			"Answer the question: {{.Question}}\n" +
			"Reply with one short sentence that goes straight to the point, without repeating the prompt or unneeded information.\n" +
			"Answer: ",
		Fallback:  "No relevant information could be found.",
		AnswerCue: "Answer:",
	},
	"vi": {
		Template: "\nDựa vào thông tin sau: {{.Context}}\n" +
			"Trả lời câu hỏi: {{.Question}}\n" +
			"Chỉ trả lời bằng một câu ngắn gọn, đúng trọng tâm, không lặp lại thông tin thừa hoặc prompt.\n" +
			"Câu trả lời: ",
		Fallback:  "Không thể tìm thấy thông tin liên quan.",
		AnswerCue: "Câu trả lời:",
	},
}

// LookupLanguage returns the preset registered under name.
func LookupLanguage(name string) (Language, bool) {
	if name == "" {
		name = DefaultLanguage
	}
	l, ok := languages[name]
	return l, ok
}

// Languages lists the preset names.
func Languages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PromptData is what a prompt template is executed with.
type PromptData struct {
	// Context is the cleaned passages joined by single spaces, in rank order.
	Context  string
	Question string
	Passages []domain.Passage
}

func parseTemplate(src string) (*template.Template, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigValidateInvalidValue, "parsing prompt template")
	}
	return tmpl, nil
}

func joinContext(passages []domain.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, " ")
}
