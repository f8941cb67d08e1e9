package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/extract"
	"github.com/gaurav-prasanna/parapipe/core/rules"
)

// Priorities of the pattern rules. Exact matches outrank every pattern.
const (
	priorityExact       = 500
	priorityAppendix    = 400
	priorityRCCode      = 390
	priorityH2Keyword   = 380
	priorityCFR         = 370
	priorityH3Keyword   = 360
	priorityNote        = 350
	priorityQuestion    = 340
	priorityOptions     = 330
	priorityListMarker  = 200
	priorityImperative  = 190
	priorityModal       = 180
	priorityPatternBody = 0
)

// PatternConfig holds document-specific exact matches. Headings maps a
// label ("Heading 1" … "Heading 6", "Normal", ...) to the exact paragraph
// texts that take it.
type PatternConfig struct {
	Headings map[string][]string `koanf:"headings" yaml:"headings,omitempty"`
}

// PatternRules returns the pattern-based rule set: configured exact
// matches, then appendix, RC-code, keyword, CFR, NOTE, question and
// options headings, then list markers, imperative verbs and modal phrases,
// and finally a Body Text catch-all.
func PatternRules(cfg PatternConfig) ([]rules.Rule, error) {
	var out []rules.Rule

	labels := make([]string, 0, len(cfg.Headings))
	for label := range cfg.Headings {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, name := range labels {
		label, ok := core.ParseLabel(name)
		if !ok {
			return nil, fmt.Errorf("pattern headings: unknown style %q", name)
		}
		for i, text := range cfg.Headings[name] {
			out = append(out, rules.Rule{
				ID:          fmt.Sprintf("exact-%s-%d", strings.ReplaceAll(strings.ToLower(string(label)), " ", "-"), i+1),
				Description: "exact match: " + text,
				Conditions:  []rules.Condition{textIs(rules.OpEquals, text)},
				Action:      core.LabelAction(label),
				Priority:    priorityExact,
			})
		}
	}

	caps := rules.Condition{Property: extract.PropIsAllCaps, Operator: rules.OpEquals, Value: core.Bool(true)}
	shorter := func(n int) rules.Condition {
		return rules.Condition{Property: extract.PropLength, Operator: rules.OpLessThan, Value: core.Int(n)}
	}

	out = append(out,
		rules.Rule{
			ID: "appendix", Description: "Appendix X title",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, `^Appendix [A-Z] `)},
			Action:     core.LabelAction(core.LabelHeading1), Priority: priorityAppendix,
		},
		rules.Rule{
			ID: "rc-code", Description: "ALL CAPS with an RC code",
			Conditions: []rules.Condition{caps, textIs(rules.OpMatchesRegex, `\(RC-(THPPH|SMM)\)`)},
			Action:     core.LabelAction(core.LabelHeading2), Priority: priorityRCCode,
		},
		rules.Rule{
			ID: "h2-keyword", Description: "short ALL CAPS section keyword",
			Conditions: []rules.Condition{caps, shorter(60), textIs(rules.OpMatchesRegex, `DEFINITIONS|POLICY|PROCEDURE|BENEFITS|REQUIREMENTS`)},
			Action:     core.LabelAction(core.LabelHeading2), Priority: priorityH2Keyword,
		},
		rules.Rule{
			ID: "cfr", Description: "CFR part reference",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, `^\d+ CFR Part `)},
			Action:     core.LabelAction(core.LabelHeading3), Priority: priorityCFR,
		},
		rules.Rule{
			ID: "h3-keyword", Description: "short ALL CAPS subsection keyword",
			Conditions: []rules.Condition{caps, shorter(50), textIs(rules.OpMatchesRegex, `SCOPE|PURPOSE|GENERAL|EMPLOYEE|MANAGEMENT|CORE`)},
			Action:     core.LabelAction(core.LabelHeading3), Priority: priorityH3Keyword,
		},
		rules.Rule{
			ID: "note", Description: "NOTE: lead-in",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, `^NOTE:`)},
			Action:     core.LabelAction(core.LabelHeading4), Priority: priorityNote,
		},
		rules.Rule{
			ID: "question", Description: "question",
			Conditions: []rules.Condition{textIs(rules.OpEndsWith, "?")},
			Action:     core.LabelAction(core.LabelHeading4), Priority: priorityQuestion,
		},
		rules.Rule{
			ID: "options", Description: "short options or system title",
			Conditions: []rules.Condition{shorter(50), textIs(rules.OpMatchesRegex, `Options|System`)},
			Action:     core.LabelAction(core.LabelHeading5), Priority: priorityOptions,
		},
		rules.Rule{
			ID: "list-marker", Description: "bullet or enumerator",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, listMarker.String())},
			Action:     core.LabelAction(core.LabelListParagraph), Priority: priorityListMarker,
		},
		rules.Rule{
			ID: "imperative", Description: "starts with an imperative verb",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, imperativeStart.String())},
			Action:     core.LabelAction(core.LabelListParagraph), Priority: priorityImperative,
		},
		rules.Rule{
			ID: "modal", Description: "obligation phrase",
			Conditions: []rules.Condition{textIs(rules.OpMatchesRegex, modalPhrase.String())},
			Action:     core.LabelAction(core.LabelListParagraph), Priority: priorityModal,
		},
		rules.Rule{
			ID: "body", Description: "catch-all",
			Conditions: []rules.Condition{},
			Action:     core.LabelAction(core.LabelBodyText), Priority: priorityPatternBody,
		},
	)
	return out, nil
}

func textIs(op rules.Operator, v string) rules.Condition {
	return rules.Condition{Property: core.PropText, Operator: op, Value: core.String(v)}
}

// Pattern classifies with PatternRules. It always decides.
type Pattern struct {
	set *rules.RuleSet
}

// NewPattern builds the pattern classifier.
func NewPattern(cfg PatternConfig) (*Pattern, error) {
	rs, err := PatternRules(cfg)
	if err != nil {
		return nil, err
	}
	set, err := rules.NewRuleSet(rs...)
	if err != nil {
		return nil, fmt.Errorf("building pattern rules: %w", err)
	}
	return &Pattern{set: set}, nil
}

// Rules returns the pattern rules in evaluation order.
func (c *Pattern) Rules() []rules.Rule {
	return c.set.Rules()
}

// Classify labels p. Paragraphs that have not been through a reader get
// their derived properties computed first.
func (c *Pattern) Classify(_ context.Context, p core.Paragraph) (core.Action, bool, error) {
	if p.Property(extract.PropLength).IsNull() {
		p = extract.Enrich(p)
	}
	action, ok := c.set.Classify(p)
	return action, ok, nil
}
