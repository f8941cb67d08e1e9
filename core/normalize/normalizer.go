// Package normalize implements the Normalizer interface.
// It cleans paragraph text into the canonical form the filter and
// classifiers expect: NFKC-folded, zero-width characters removed,
// whitespace collapsed to single spaces.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// zeroWidth are characters Word and web exports scatter through text.
var zeroWidth = strings.NewReplacer(
	"\u200b", "", // zero width space
	"\u200c", "", // zero width non-joiner
	"\u200d", "", // zero width joiner
	"\u2060", "", // word joiner
	"\ufeff", "", // byte order mark
	"\u00ad", "", // soft hyphen
)

// TextNormalizer folds Unicode compatibility forms and whitespace.
type TextNormalizer struct{}

// New creates a TextNormalizer.
func New() *TextNormalizer {
	return &TextNormalizer{}
}

// Normalize returns the canonical form of text. Tabs, newlines and
// non-breaking spaces all collapse to a single space.
func (n *TextNormalizer) Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = zeroWidth.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
