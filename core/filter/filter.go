// Package filter implements the paragraph Filter.
// It drops structural noise before classification:
//  1. Intentionally-blank page markers (highest priority)
//  2. Headers and footers (page numbers, revision stamps, copyright lines)
//  3. Table-of-contents entries
//  4. Cover-page titles
//
// Exact phrase checks run before regular expressions, and the first
// matching step wins.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Reasons reported by Check.
const (
	ReasonEmpty      = "empty"
	ReasonTooShort   = "too short"
	ReasonBlank      = "intentionally blank"
	ReasonHeaderFoot = "header/footer"
	ReasonTOC        = "table of contents"
	ReasonCoverPage  = "cover page"
)

const (
	defaultMinLength  = 3
	coverPageMaxRunes = 100
)

// blankPhrases mark pages deliberately left empty. Letting one of these
// through is the worst failure this package can have.
var blankPhrases = []string{
	"intentionally left blank",
	"this page intentionally left blank",
	"blank page",
	"intentionally blank",
}

// headerFooterPatterns match running heads, footers and stamps.
// They are applied to the lower-cased text.
var headerFooterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bpage \d+(\s+of\s+\d+)?\b`),
	regexp.MustCompile(`\brevision:`),
	regexp.MustCompile(`\brev\.\s*\d+`),
	regexp.MustCompile(`\breport #`),
	regexp.MustCompile(`\bdate:?\s*\d{2}-\d{2}-\d{2}`),
	regexp.MustCompile(`©|\(c\)\s*\d{4}|\bcopyright\b|\bproprietary\b|\ball rights reserved\b`),
	regexp.MustCompile(`\boae\.`),
}

// pageReference matches bare footer page ids such as A-1, REV-3, LoES-12.
// It runs on the original-case text: these tokens are upper-case prefixes.
var pageReference = regexp.MustCompile(`^[A-Z][A-Za-z]{0,5}-\d+$`)

// companyHeader is a short line carrying the company header token.
const (
	companyHeader       = "company name"
	companyHeaderMaxLen = 50
)

var tocPhrases = []string{
	"table of contents",
	"master table",
	"record of revisions",
	"revision highlights",
	"list of effective sections",
	"list of effective pages",
}

var tocPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.{3,}`),
	regexp.MustCompile(`^\d+(\.\d+)*\s+.*\.{3,}\s*\d+$`),
}

var coverPhrases = []string{
	"flight attendant policies & procedures handbook",
	"policies & procedures handbook",
	"flight crew training manual",
}

// Config extends the built-in phrase and pattern sets.
type Config struct {
	// MinLength drops paragraphs shorter than this many runes (default 3).
	// Set to a negative number to keep every non-empty paragraph.
	MinLength int `koanf:"min_length" yaml:"min_length"`

	BlankPhrases         []string `koanf:"blank_phrases" yaml:"blank_phrases,omitempty"`
	HeaderFooterPatterns []string `koanf:"header_footer_patterns" yaml:"header_footer_patterns,omitempty"`
	TOCPhrases           []string `koanf:"toc_phrases" yaml:"toc_phrases,omitempty"`
	CoverPhrases         []string `koanf:"cover_phrases" yaml:"cover_phrases,omitempty"`
}

// PhraseFilter is the layered phrase/pattern Filter.
type PhraseFilter struct {
	minLength    int
	blank        []string
	headerFooter []*regexp.Regexp
	toc          []string
	cover        []string
}

// New creates a PhraseFilter with the built-in rules only.
func New() *PhraseFilter {
	f, _ := NewWithConfig(Config{})
	return f
}

// NewWithConfig creates a PhraseFilter with extra phrases and patterns.
// Configured phrases are matched case-insensitively; configured patterns
// are compiled case-insensitive.
func NewWithConfig(cfg Config) (*PhraseFilter, error) {
	f := &PhraseFilter{
		minLength:    cfg.MinLength,
		blank:        append(append([]string(nil), blankPhrases...), lowerAll(cfg.BlankPhrases)...),
		headerFooter: append([]*regexp.Regexp(nil), headerFooterPatterns...),
		toc:          append(append([]string(nil), tocPhrases...), lowerAll(cfg.TOCPhrases)...),
		cover:        append(append([]string(nil), coverPhrases...), lowerAll(cfg.CoverPhrases)...),
	}
	if f.minLength == 0 {
		f.minLength = defaultMinLength
	}
	for _, p := range cfg.HeaderFooterPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling header/footer pattern %q: %w", p, err)
		}
		f.headerFooter = append(f.headerFooter, re)
	}
	return f, nil
}

// ShouldFilter reports whether p is noise that must not be classified.
func (f *PhraseFilter) ShouldFilter(p core.Paragraph) bool {
	_, drop := f.Check(p)
	return drop
}

// Check reports whether p is noise and which step caught it.
func (f *PhraseFilter) Check(p core.Paragraph) (string, bool) {
	text := strings.Join(strings.Fields(norm.NFKC.String(p.Text)), " ")
	if text == "" {
		return ReasonEmpty, true
	}
	if f.minLength > 0 && utf8.RuneCountInString(text) < f.minLength {
		return ReasonTooShort, true
	}
	lower := strings.ToLower(text)

	if containsAny(lower, f.blank) {
		return ReasonBlank, true
	}

	for _, re := range f.headerFooter {
		if re.MatchString(lower) {
			return ReasonHeaderFoot, true
		}
	}
	if pageReference.MatchString(text) {
		return ReasonHeaderFoot, true
	}
	if strings.Contains(lower, companyHeader) && len(text) < companyHeaderMaxLen {
		return ReasonHeaderFoot, true
	}

	if containsAny(lower, f.toc) {
		return ReasonTOC, true
	}
	for _, re := range tocPatterns {
		if re.MatchString(text) {
			return ReasonTOC, true
		}
	}

	if utf8.RuneCountInString(text) < coverPageMaxRunes && containsAny(lower, f.cover) {
		return ReasonCoverPage, true
	}
	return "", false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
