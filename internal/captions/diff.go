package captions

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Divergence is the first position where display text and recognised speech
// disagree after case folding and punctuation stripping.
type Divergence struct {
	Index   int
	Display string
	Heard   string
}

// Diff compares display words against recognised words position by position.
// It reports false when every paired word matches and the counts agree.
func Diff(displayWords []string, timings []WordTiming) (Divergence, bool) {
	folder := cases.Fold()
	n := min(len(displayWords), len(timings))
	for i := 0; i < n; i++ {
		if normalizeWord(folder, displayWords[i]) != normalizeWord(folder, timings[i].Text) {
			return Divergence{Index: i, Display: displayWords[i], Heard: timings[i].Text}, true
		}
	}
	switch {
	case len(displayWords) > n:
		return Divergence{Index: n, Display: displayWords[n]}, true
	case len(timings) > n:
		return Divergence{Index: n, Heard: timings[n].Text}, true
	}
	return Divergence{}, false
}

func normalizeWord(folder cases.Caser, word string) string {
	folded := folder.String(strings.TrimSpace(word))
	return strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
