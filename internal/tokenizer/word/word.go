// Package word is an offline tokenizer that splits text into words and
// punctuation marks and numbers them with a process-local vocabulary.
package word

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Tokenizer assigns ids in first-seen order. Ids are stable for the lifetime
// of the value, which is all the chunker needs: it decodes with the same
// tokenizer that encoded.
type Tokenizer struct {
	mu      sync.Mutex
	pattern *regexp.Regexp
	ids     map[string]int
	words   []string
}

func New() *Tokenizer {
	return &Tokenizer{
		pattern: regexp.MustCompile(`[\p{L}\p{M}\p{N}]+(?:['’][\p{L}\p{M}\p{N}]+)*|[^\s\p{Z}\x{85}\p{L}\p{M}\p{N}]`),
		ids:     make(map[string]int),
	}
}

// Name returns the identifier of this tokenizer.
func (t *Tokenizer) Name() string { return "word" }

// Encode splits text into word and punctuation tokens.
func (t *Tokenizer) Encode(text string) []int {
	raw := t.pattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(raw))
	for i, tok := range raw {
		id, ok := t.ids[tok]
		if !ok {
			id = len(t.words)
			t.ids[tok] = id
			t.words = append(t.words, tok)
		}
		out[i] = id
	}
	return out
}

// Decode joins tokens with single spaces, attaching closing punctuation to
// the preceding word. Unknown ids decode to "<unk>".
func (t *Tokenizer) Decode(tokens []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for i, id := range tokens {
		tok := "<unk>"
		if id >= 0 && id < len(t.words) {
			tok = t.words[id]
		}
		if i > 0 && !attachesLeft(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// VocabularySize reports how many distinct tokens have been seen.
func (t *Tokenizer) VocabularySize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.words)
}

func attachesLeft(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	if size != len(tok) {
		return false
	}
	switch r {
	case '.', ',', ';', ':', '!', '?', ')', ']', '}', '%':
		return true
	}
	return unicode.Is(unicode.Pf, r)
}
