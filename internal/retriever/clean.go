package retriever

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxContextChars caps the length of each cleaned passage, in runes.
const DefaultMaxContextChars = 256

var (
	citationPattern    = regexp.MustCompile(`\[\p{Nd}+`)
	unknownPattern     = regexp.MustCompile(`<unk>`)
	punctuationPattern = regexp.MustCompile(`[,:;()]+`)
	spacePattern       = regexp.MustCompile(`[\s\p{Z}\x{85}]+`)
)

// Cleaner normalises retrieved chunk text before it is placed in a prompt.
type Cleaner struct {
	MaxChars int
}

// Clean removes citation markers ("[12" in any script's decimal digits,
// closing bracket not required) and <unk> tokens, drops runs of , : ; ( )
// except a lone comma, collapses Unicode whitespace runs and truncates to
// MaxChars runes. Truncation may cut a word.
func (c Cleaner) Clean(text string) string {
	// Removing one pattern can join the pieces of another ("[<unk>1"), so the
	// removals repeat until nothing changes.
	for {
		next := strip(text)
		if next == text {
			break
		}
		text = next
	}
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	return truncate(text, c.maxChars())
}

func strip(text string) string {
	text = citationPattern.ReplaceAllString(text, "")
	text = unknownPattern.ReplaceAllString(text, "")
	return punctuationPattern.ReplaceAllStringFunc(text, func(run string) string {
		if run == "," {
			return run
		}
		return ""
	})
}

func (c Cleaner) maxChars() int {
	if c.MaxChars <= 0 {
		return DefaultMaxContextChars
	}
	return c.MaxChars
}

// Clean applies the default Cleaner.
func Clean(text string) string {
	return Cleaner{}.Clean(text)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
