// Package summarizer ranks sentences. It backs the corpus summary shown after
// a build, the offline extractive generator and the highlight in the shell.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	sentenceRe = regexp.MustCompile(`(?m)[^.!?\n]+(?:[.!?]+|$)`)
)

// Ranker scores sentences by word statistics, ignoring stopwords.
type Ranker struct {
	stopwords map[string]struct{}
}

// New creates a Ranker with the default English stopword list.
func New() *Ranker {
	return &Ranker{stopwords: defaultStopwords()}
}

// Sentences splits text on . ! ? and newlines, trimmed, empty ones dropped.
func Sentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Summarize returns up to maxSentences sentences of text, chosen by the
// normalised frequency of their content words and kept in document order.
func (r *Ranker) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range r.contentWords(sent) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		words := r.contentWords(sent)
		s := 0.0
		for _, tok := range words {
			s += freq[tok] / maxF
		}
		// long sentences would otherwise always win
		if len(words) > 0 {
			s /= math.Sqrt(float64(len(words)))
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(maxSentences, len(scores))
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// BestSentence returns the index of the sentence sharing the most content
// words with query, by the Ochiai coefficient. Ties keep the earliest
// sentence. It returns -1 when nothing overlaps.
func (r *Ranker) BestSentence(query string, sentences []string) int {
	q := r.wordSet(query)
	if len(q) == 0 {
		return -1
	}
	best, bestScore := -1, 0.0
	for i, sent := range sentences {
		if score := ochiai(q, r.wordSet(sent)); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range b {
		if _, ok := a[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

func (r *Ranker) wordSet(text string) map[string]struct{} {
	words := r.contentWords(text)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func (r *Ranker) contentWords(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := r.stopwords[t]; !isStop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "where", "when", "why", "how", "did", "does", "do",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
