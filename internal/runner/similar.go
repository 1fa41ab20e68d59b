package runner

import (
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
)

// repeatThreshold is the largest edit distance, relative to the longer
// hint, at which two OCR hints count as the same question.
const repeatThreshold = 0.15

// sameQuestion reports whether two OCR hints most likely read the same
// question. Empty hints never match.
func sameQuestion(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return float64(levenshtein.Distance(a, b)) <= repeatThreshold*float64(n)
}
