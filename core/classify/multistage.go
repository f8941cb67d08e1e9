package classify

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/extract"
)

const (
	headingMaxRunes   = 100
	shortCapsMaxRunes = 30
)

// MultiStage is the content heuristic: list markers, imperative verbs and
// modal phrases make list paragraphs; short unpunctuated ALL CAPS or Title
// Case lines make headings; everything else is body text. It always
// decides.
type MultiStage struct{}

// NewMultiStage creates a MultiStage classifier.
func NewMultiStage() *MultiStage {
	return &MultiStage{}
}

// Classify labels p from its text alone.
func (m *MultiStage) Classify(_ context.Context, p core.Paragraph) (core.Action, bool, error) {
	return core.LabelAction(classifyText(strings.TrimSpace(p.Text))), true, nil
}

func classifyText(text string) core.Label {
	switch {
	case listMarker.MatchString(text),
		imperativeStart.MatchString(text),
		modalPhrase.MatchString(text):
		return core.LabelListParagraph
	}

	if n := utf8.RuneCountInString(text); n < headingMaxRunes && !strings.HasSuffix(text, ".") {
		if extract.IsUpper(text) {
			if n < shortCapsMaxRunes {
				return core.LabelHeading2
			}
			return core.LabelHeading1
		}
		if extract.IsTitle(text) {
			return core.LabelHeading3
		}
	}

	if strings.HasPrefix(text, "NOTE:") {
		return core.LabelNormal
	}
	return core.LabelBodyText
}
