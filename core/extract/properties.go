// Package extract — derived paragraph properties.
// Every reader's output passes through Enrich so rules can rely on the same
// property vocabulary whatever the source format.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Property names set by readers and Enrich.
const (
	PropLength           = "length"
	PropWordCount        = "wordCount"
	PropTextCase         = "textCase"
	PropIsAllCaps        = "isAllCaps"
	PropIsTitleCase      = "isTitleCase"
	PropStartsWithBullet = "startsWithBullet"
	PropStartsWithNumber = "startsWithNumber"
	PropEndsWithPeriod   = "endsWithPeriod"
	PropIsStandalone     = "isStandalone"
	PropContainsCode     = "containsCode"
	PropIsDate           = "isDate"
	PropIsEmail          = "isEmail"
	PropIsPhone          = "isPhone"
	PropIsURL            = "isUrl"

	PropIsBold      = "isBold"
	PropIsItalic    = "isItalic"
	PropIsUnderline = "isUnderline"
	PropFontSize    = "fontSize"
	PropFontName    = "fontName"
	PropAlignment   = "alignment"
)

// Text case values, matching the rule-trainer vocabulary.
const (
	CaseUpper = "UPPER"
	CaseLower = "lower"
	CaseTitle = "Title"
	CaseMixed = "Mixed"
)

const (
	defaultFontSize   = 12
	defaultAlignment  = "left"
	standaloneMaxWord = 5
)

var (
	codePattern   = regexp.MustCompile(`\(.*?\)`)
	datePattern   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	numberPattern = regexp.MustCompile(`^\d+\.`)
)

var bulletPrefixes = []string{"•", "●", "○", "-"}

// Derive computes the text-only properties of a paragraph.
func Derive(text string) map[string]core.Value {
	words := len(strings.Fields(text))
	props := map[string]core.Value{
		PropLength:           core.Int(utf8.RuneCountInString(text)),
		PropWordCount:        core.Int(words),
		PropTextCase:         core.String(TextCase(text)),
		PropIsAllCaps:        core.Bool(IsUpper(text)),
		PropIsTitleCase:      core.Bool(IsTitle(text)),
		PropStartsWithBullet: core.Bool(hasAnyPrefix(text, bulletPrefixes)),
		PropStartsWithNumber: core.Bool(numberPattern.MatchString(text)),
		PropEndsWithPeriod:   core.Bool(strings.HasSuffix(text, ".")),
		PropIsStandalone:     core.Bool(words <= standaloneMaxWord && !strings.HasSuffix(text, ".")),
		PropContainsCode:     core.Bool(codePattern.MatchString(text)),
		PropIsDate:           core.Bool(datePattern.MatchString(text)),
		PropIsEmail:          core.Bool(emailPattern.MatchString(text)),
		PropIsPhone:          core.Bool(phonePattern.MatchString(text)),
		PropIsURL:            core.Bool(urlPattern.MatchString(text)),
	}
	return props
}

// Enrich returns p with derived properties and formatting defaults merged
// in. Properties already present on p win.
func Enrich(p core.Paragraph) core.Paragraph {
	merged := Derive(p.Text)
	merged[PropIsBold] = core.Bool(false)
	merged[PropIsItalic] = core.Bool(false)
	merged[PropIsUnderline] = core.Bool(false)
	merged[PropFontSize] = core.Int(defaultFontSize)
	merged[PropAlignment] = core.String(defaultAlignment)
	for k, v := range p.Properties {
		merged[k] = v
	}
	p.Properties = merged
	return p
}

// TextCase classifies text as UPPER, lower, Title or Mixed.
func TextCase(text string) string {
	switch {
	case IsUpper(text):
		return CaseUpper
	case IsLower(text):
		return CaseLower
	case IsTitle(text):
		return CaseTitle
	default:
		return CaseMixed
	}
}

// IsUpper reports whether text has at least one cased letter and no
// lower-case letters.
func IsUpper(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// IsLower reports whether text has at least one cased letter and no
// upper-case letters.
func IsLower(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// IsTitle reports whether every word starts with an upper-case letter
// followed only by lower-case letters. "Scope And Purpose" and "Appendix A"
// are title case; "PASS Travel" and "Pass travel" are not.
func IsTitle(text string) bool {
	cased, prevCased := false, false
	for _, r := range text {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
