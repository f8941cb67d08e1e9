package rules

import (
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/parapipe/core"
)

// DefaultPriority is used when a persisted rule omits its priority.
const DefaultPriority = 100

var (
	// ErrInvalidRule is returned when a rule cannot be stored.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrDuplicateRule is returned when a rule id is already in the set.
	ErrDuplicateRule = errors.New("duplicate rule id")
)

// Rule is one declarative formatting decision: when every condition holds,
// the action applies. Rules are never modified after being stored.
type Rule struct {
	ID          string      `json:"id" yaml:"id"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Conditions  []Condition `json:"conditions" yaml:"conditions"`
	Action      core.Action `json:"action" yaml:"action"`
	Priority    int         `json:"priority" yaml:"priority"`
	CreatedAt   string      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// MatchRule reports whether every condition of rule holds for p.
// A rule without conditions matches every paragraph.
func MatchRule(p core.Paragraph, rule Rule) bool {
	for _, c := range rule.Conditions {
		if !c.Matches(p) {
			return false
		}
	}
	return true
}

// Validate reports every condition that can never match, joined.
// A rule that fails validation can still be stored; it simply never fires.
func (r Rule) Validate() error {
	var errs []error
	if err := r.checkStorable(); err != nil {
		errs = append(errs, err)
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("condition %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// checkStorable is the minimum a rule needs to enter a RuleSet.
func (r Rule) checkStorable() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if r.Action == "" {
		return fmt.Errorf("%w: rule %q has no action", ErrInvalidRule, r.ID)
	}
	return nil
}

// clone copies the condition slice so stored rules share nothing with the
// caller.
func (r Rule) clone() Rule {
	if r.Conditions != nil {
		r.Conditions = append([]Condition(nil), r.Conditions...)
	}
	return r
}
