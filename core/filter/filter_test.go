package filter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/parapipe/core"
)

func para(text string) core.Paragraph { return core.Paragraph{Text: text} }

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func TestCheck(t *testing.T) {
	f := New()

	tests := []struct {
		text   string
		reason string
	}{
		{"", ReasonEmpty},
		{"   \t\n ", ReasonEmpty},
		{"ab", ReasonTooShort},
		{"INTENTIONALLY LEFT BLANK", ReasonBlank},
		{"  INTENTIONALLY LEFT BLANK  ", ReasonBlank},
		{"This Page Intentionally Left Blank", ReasonBlank},
		{"[ Blank Page ]", ReasonBlank},
		{"Intentionally  Blank", ReasonBlank},
		{"INTENTIONALLY LEFT BLANK", ReasonBlank},
		{"Page 12", ReasonHeaderFoot},
		{"Page 3 of 40", ReasonHeaderFoot},
		{"Revision: 07", ReasonHeaderFoot},
		{"Rev. 4", ReasonHeaderFoot},
		{"Report # 2231-A", ReasonHeaderFoot},
		{"Date: 03-14-24", ReasonHeaderFoot},
		{"© 2024 Example Air, Inc.", ReasonHeaderFoot},
		{"PROPRIETARY AND CONFIDENTIAL", ReasonHeaderFoot},
		{"Copyright notice", ReasonHeaderFoot},
		{"OAE.FA.001", ReasonHeaderFoot},
		{"A-1", ReasonHeaderFoot},
		{"REV-3", ReasonHeaderFoot},
		{"LoES-2", ReasonHeaderFoot},
		{"Company Name Air Group", ReasonHeaderFoot},
		{"TABLE OF CONTENTS", ReasonTOC},
		{"Master Table of Contents", ReasonTOC},
		{"RECORD OF REVISIONS", ReasonTOC},
		{"Revision Highlights", ReasonTOC},
		{"List of Effective Pages", ReasonTOC},
		{"Scheduling ........ 4-1", ReasonTOC},
		{"3.2 Uniform Guidelines ... 17", ReasonTOC},
		{"FLIGHT ATTENDANT POLICIES & PROCEDURES HANDBOOK", ReasonCoverPage},
		{"Flight Crew Training Manual", ReasonCoverPage},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			reason, drop := f.Check(para(tt.text))
			assert.True(t, drop)
			assert.Equal(t, tt.reason, reason)
			assert.True(t, f.ShouldFilter(para(tt.text)))
		})
	}
}

func TestCheck_KeepsContent(t *testing.T) {
	f := New()
	keep := []string{
		"PREFACE",
		"EMPLOYMENT POLICIES",
		"Crewmembers must report to the gate 60 minutes before departure.",
		"1. Wear the approved uniform.",
		"How do I sign up?",
		"Appendix A PHONE/FAX NUMBERS",
		"The handbook explains pass travel for employees and their families in detail and covers policies & procedures handbook revisions across every base and every fleet type in service.",
	}
	for _, text := range keep {
		reason, drop := f.Check(para(text))
		assert.False(t, drop, "%q dropped as %q", text, reason)
	}
}

func TestCheck_BlankBeatsLaterSteps(t *testing.T) {
	reason, drop := New().Check(para("Page 4 - This page intentionally left blank"))
	require.True(t, drop)
	assert.Equal(t, ReasonBlank, reason)
}

func TestBlankPhrases_AlwaysFiltered(t *testing.T) {
	f, err := NewWithConfig(Config{MinLength: -1})
	require.NoError(t, err)
	wrappers := []string{"%s", "  %s  ", "-- %s --", "(%s)", "Note: %s."}
	for _, phrase := range blankPhrases {
		for _, variant := range []string{phrase, strings.ToUpper(phrase), titleCase(phrase)} {
			for _, w := range wrappers {
				text := fmt.Sprintf(w, variant)
				assert.True(t, f.ShouldFilter(para(text)), text)
			}
		}
	}
}

func TestNewWithConfig(t *testing.T) {
	f, err := NewWithConfig(Config{
		MinLength:            -1,
		BlankPhrases:         []string{"  Page Vide  "},
		HeaderFooterPatterns: []string{`^form \d{3}$`},
		TOCPhrases:           []string{"Index of Figures"},
		CoverPhrases:         []string{"Ground Ops Handbook"},
	})
	require.NoError(t, err)

	cases := map[string]string{
		"PAGE VIDE":           ReasonBlank,
		"Form 220":            ReasonHeaderFoot,
		"INDEX OF FIGURES":    ReasonTOC,
		"ground ops handbook": ReasonCoverPage,
	}
	for text, want := range cases {
		reason, drop := f.Check(para(text))
		assert.True(t, drop, text)
		assert.Equal(t, want, reason, text)
	}

	_, drop := f.Check(para("ok"))
	assert.False(t, drop, "negative MinLength keeps short text")

	_, err = NewWithConfig(Config{HeaderFooterPatterns: []string{"(unclosed"}})
	assert.Error(t, err)
}
