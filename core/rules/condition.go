// Package rules implements the declarative rule engine: conditions over
// paragraph properties, prioritized rules, and first-match rule sets.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Operator is a condition comparison.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "notEquals"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "startsWith"
	OpEndsWith     Operator = "endsWith"
	OpGreaterThan  Operator = "greaterThan"
	OpLessThan     Operator = "lessThan"
	OpMatchesRegex Operator = "matchesRegex"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpMatchesRegex,
}

// Known reports whether op is a supported operator.
func (op Operator) Known() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// IsNumeric reports whether op compares numbers.
func (op Operator) IsNumeric() bool {
	return op == OpGreaterThan || op == OpLessThan
}

// Condition is a single property/operator/value predicate.
type Condition struct {
	Property string     `json:"property" yaml:"property"`
	Operator Operator   `json:"operator" yaml:"operator"`
	Value    core.Value `json:"value" yaml:"value"`
}

// Matches evaluates the condition against p.
func (c Condition) Matches(p core.Paragraph) bool {
	return EvaluateCondition(p.Property(c.Property), c.Operator, c.Value)
}

// Validate reports why the condition can never match, or nil.
func (c Condition) Validate() error {
	if c.Property == "" {
		return fmt.Errorf("condition has no property")
	}
	if !c.Operator.Known() {
		return fmt.Errorf("property %q: unknown operator %q", c.Property, c.Operator)
	}
	if c.Value.IsNull() {
		return fmt.Errorf("property %q: %s needs a value", c.Property, c.Operator)
	}
	switch {
	case c.Operator.IsNumeric():
		if _, ok := c.Value.Float(); !ok {
			return fmt.Errorf("property %q: %s needs a number, got %s %q",
				c.Property, c.Operator, c.Value.Kind(), c.Value.String())
		}
	case c.Operator == OpMatchesRegex:
		if c.Value.Kind() != core.KindString {
			return fmt.Errorf("property %q: matchesRegex needs a pattern string, got %s",
				c.Property, c.Value.Kind())
		}
		if _, err := regexp.Compile(c.Value.String()); err != nil {
			return fmt.Errorf("property %q: bad pattern: %w", c.Property, err)
		}
	}
	return nil
}

// EvaluateCondition compares actual against expected with op.
//
// equals and notEquals compare the string forms exactly (case-sensitive).
// contains, startsWith and endsWith lower-case both string forms first.
// greaterThan and lessThan coerce both operands to numbers; a non-numeric
// operand yields false. matchesRegex searches actual's string form with the
// pattern in expected; an invalid pattern yields false. Unknown operators
// yield false, as does any expected value whose kind op cannot use.
func EvaluateCondition(actual core.Value, op Operator, expected core.Value) bool {
	if !accepts(op, expected) {
		return false
	}
	switch op {
	case OpEquals:
		return actual.String() == expected.String()
	case OpNotEquals:
		return actual.String() != expected.String()
	case OpContains:
		return strings.Contains(strings.ToLower(actual.String()), strings.ToLower(expected.String()))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(actual.String()), strings.ToLower(expected.String()))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(actual.String()), strings.ToLower(expected.String()))
	case OpGreaterThan, OpLessThan:
		a, ok := actual.Float()
		if !ok {
			return false
		}
		e, ok := expected.Float()
		if !ok {
			return false
		}
		if op == OpGreaterThan {
			return a > e
		}
		return a < e
	case OpMatchesRegex:
		re, ok := compilePattern(expected.String())
		if !ok {
			return false
		}
		return re.MatchString(actual.String())
	default:
		return false
	}
}

// accepts reports whether op can compare against a value of expected's
// kind. A null value suits no operator; matchesRegex needs a string.
func accepts(op Operator, expected core.Value) bool {
	switch {
	case expected.IsNull():
		return false
	case op == OpMatchesRegex:
		return expected.Kind() == core.KindString
	default:
		return true
	}
}

// patternCache memoizes compiled patterns. Failed compilations are cached
// as nil so a bad pattern is only compiled once.
var patternCache sync.Map // map[string]*regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := patternCache.Load(pattern); ok {
		re := cached.(*regexp.Regexp)
		return re, re != nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		patternCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil, false
	}
	patternCache.Store(pattern, re)
	return re, true
}
