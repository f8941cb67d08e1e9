// Package authoring turns an example paragraph plus a plain-language intent
// ("make this a level 2 heading", "remove these") into a candidate rule.
// Candidates come from fixed templates keyed on words in the intent; the
// caller reviews a candidate before storing it.
package authoring

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/extract"
	"github.com/gaurav-prasanna/parapipe/core/rules"
)

// ErrNeedsClarification is returned when no template matches the intent.
var ErrNeedsClarification = errors.New("intent needs clarification: say whether this is a heading, list, body text or something to remove")

// Template priorities. Filters beat headings, headings beat lists, lists
// beat body text.
const (
	PriorityFilter      = 300
	PriorityHeadingBase = 200
	PriorityList        = 150
	PriorityBody        = 50
)

// Intent keywords, checked in this order. Removal comes first so "remove
// the page header" is a filter, not a heading.
var (
	filterWords  = []string{"remove", "filter", "delete", "hide", "drop"}
	headingWords = []string{"heading", "title", "header"}
	listWords    = []string{"list", "bullet", "numbered"}
	bodyWords    = []string{"body", "paragraph", "text", "content"}
)

var levelPattern = regexp.MustCompile(`\b(?:level|heading|h)\s*([1-6])\b`)

// Suggestion is a candidate rule and a short explanation of it.
type Suggestion struct {
	Rule    rules.Rule
	Message string
}

// Suggester builds candidate rules.
type Suggester struct {
	now   func() time.Time
	newID func() string
}

// New creates a Suggester that stamps rules with random UUIDs and the
// current time.
func New() *Suggester {
	return &Suggester{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Suggest proposes a rule that classifies paragraphs like p the way intent
// describes.
func (s *Suggester) Suggest(p core.Paragraph, intent string) (Suggestion, error) {
	lower := strings.ToLower(intent)
	if p.Property(extract.PropLength).IsNull() {
		p = extract.Enrich(p)
	}

	var sug Suggestion
	switch {
	case containsAny(lower, filterWords):
		sug = filterRule(p)
	case containsAny(lower, headingWords):
		sug = headingRule(p, lower)
	case containsAny(lower, listWords):
		sug = listRule(p)
	case containsAny(lower, bodyWords):
		sug = bodyRule(p)
	default:
		return Suggestion{}, ErrNeedsClarification
	}

	if len(sug.Rule.Conditions) == 0 || !rules.MatchRule(p, sug.Rule) {
		// Nothing distinctive, or a template that misses its own example:
		// match this exact text instead.
		sug.Rule.Conditions = []rules.Condition{
			{Property: core.PropText, Operator: rules.OpEquals, Value: core.String(p.Text)},
		}
	}
	sug.Rule.ID = s.newID()
	sug.Rule.CreatedAt = s.now().UTC().Format(time.RFC3339)
	if err := sug.Rule.Validate(); err != nil {
		return Suggestion{}, fmt.Errorf("suggested rule is invalid: %w", err)
	}
	return sug, nil
}

// HeadingLevel reads a heading level from an intent such as "level 3" or
// "heading 2". It defaults to 1.
func HeadingLevel(intent string) int {
	m := levelPattern.FindStringSubmatch(strings.ToLower(intent))
	if m == nil {
		return 1
	}
	level, _ := strconv.Atoi(m[1])
	return level
}

func headingRule(p core.Paragraph, intent string) Suggestion {
	level := HeadingLevel(intent)
	var conds []rules.Condition
	if p.Property(extract.PropTextCase).String() == extract.CaseUpper {
		conds = append(conds, equals(extract.PropTextCase, core.String(extract.CaseUpper)))
	}
	if isTrue(p, extract.PropIsBold) {
		conds = append(conds, equals(extract.PropIsBold, core.Bool(true)))
	}
	if size, ok := p.Property(extract.PropFontSize).Float(); ok && size > 12 {
		conds = append(conds, rules.Condition{Property: extract.PropFontSize, Operator: rules.OpGreaterThan, Value: core.Int(12)})
	}
	if isTrue(p, extract.PropIsStandalone) {
		conds = append(conds, equals(extract.PropIsStandalone, core.Bool(true)))
	}
	if isTrue(p, extract.PropContainsCode) {
		conds = append(conds, equals(extract.PropContainsCode, core.Bool(true)))
	}

	label := core.HeadingLabel(level)
	return Suggestion{
		Rule: rules.Rule{
			Description: fmt.Sprintf("Classify text as %s based on formatting patterns", label),
			Conditions:  conds,
			Action:      core.LabelAction(label),
			Priority:    PriorityHeadingBase - level*10,
		},
		Message: fmt.Sprintf("Created %s rule based on text properties", label),
	}
}

func listRule(p core.Paragraph) Suggestion {
	var conds []rules.Condition
	if isTrue(p, extract.PropStartsWithBullet) {
		conds = append(conds, equals(extract.PropStartsWithBullet, core.Bool(true)))
	}
	if isTrue(p, extract.PropStartsWithNumber) {
		conds = append(conds, equals(extract.PropStartsWithNumber, core.Bool(true)))
	}
	return Suggestion{
		Rule: rules.Rule{
			Description: "Classify text as List Paragraph based on bullet/number patterns",
			Conditions:  conds,
			Action:      core.LabelAction(core.LabelListParagraph),
			Priority:    PriorityList,
		},
		Message: "Created List Paragraph rule based on bullet/number patterns",
	}
}

func bodyRule(p core.Paragraph) Suggestion {
	var conds []rules.Condition
	if !isTrue(p, extract.PropIsBold) {
		conds = append(conds, equals(extract.PropIsBold, core.Bool(false)))
	}
	if p.Property(extract.PropTextCase).String() != extract.CaseUpper {
		conds = append(conds, rules.Condition{Property: extract.PropTextCase, Operator: rules.OpNotEquals, Value: core.String(extract.CaseUpper)})
	}
	if words, ok := p.Property(extract.PropWordCount).Float(); ok && words > 5 {
		conds = append(conds, rules.Condition{Property: extract.PropWordCount, Operator: rules.OpGreaterThan, Value: core.Int(5)})
	}
	return Suggestion{
		Rule: rules.Rule{
			Description: "Classify explanatory text as Body Text",
			Conditions:  conds,
			Action:      core.LabelAction(core.LabelBodyText),
			Priority:    PriorityBody,
		},
		Message: "Created Body Text rule for explanatory content",
	}
}

// blankMarkers are tried in order; the first one found in the text becomes
// the FILTER condition.
var blankMarkers = []string{"intentionally left blank", "intentionally blank", "blank page"}

func filterRule(p core.Paragraph) Suggestion {
	var conds []rules.Condition
	lower := strings.ToLower(p.Text)
	if strings.Contains(lower, "page") {
		conds = append(conds, contains("page"))
	}
	for _, marker := range blankMarkers {
		if strings.Contains(lower, marker) {
			conds = append(conds, contains(marker))
			break
		}
	}
	return Suggestion{
		Rule: rules.Rule{
			Description: "Filter out unwanted content",
			Conditions:  conds,
			Action:      core.ActionFilter,
			Priority:    PriorityFilter,
		},
		Message: "Created filter rule to remove unwanted content",
	}
}

func equals(prop string, v core.Value) rules.Condition {
	return rules.Condition{Property: prop, Operator: rules.OpEquals, Value: v}
}

func contains(phrase string) rules.Condition {
	return rules.Condition{Property: core.PropText, Operator: rules.OpContains, Value: core.String(phrase)}
}

func isTrue(p core.Paragraph, prop string) bool {
	f, ok := p.Property(prop).Float()
	return ok && f != 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
