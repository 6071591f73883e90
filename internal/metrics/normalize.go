package metrics

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var lower = cases.Lower(language.Und)

// Normalize folds full-width forms, lowercases, and strips punctuation and
// symbols. Apostrophes survive in word mode so contractions stay one token.
func Normalize(text string, mode TokenMode) string {
	text = width.Fold.String(text)
	text = lower.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\'' && mode == Words {
			b.WriteRune(r)
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
