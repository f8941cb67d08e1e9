package rules

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gaurav-prasanna/parapipe/core"
)

// RuleSet is an ordered, priority-sorted collection of rules, unique by id.
//
// Rules are evaluated by descending priority; rules of equal priority keep
// insertion order, so the earlier-added rule wins a tie. Mutations are
// serialized and publish a fresh immutable snapshot, so Classify never sees
// a half-sorted set.
type RuleSet struct {
	mu   sync.Mutex
	snap atomic.Pointer[[]Rule]
}

// NewRuleSet builds a RuleSet from rules in insertion order.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := rs.ReplaceAll(rules); err != nil {
		return nil, err
	}
	return rs, nil
}

// MustRuleSet is NewRuleSet for built-in rule tables; it panics on error.
func MustRuleSet(rules ...Rule) *RuleSet {
	rs, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs *RuleSet) load() []Rule {
	if p := rs.snap.Load(); p != nil {
		return *p
	}
	return nil
}

// Rules returns a copy of the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	cur := rs.load()
	out := make([]Rule, len(cur))
	for i, r := range cur {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.load()) }

// Get returns the rule with the given id.
func (rs *RuleSet) Get(id string) (Rule, bool) {
	for _, r := range rs.load() {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return Rule{}, false
}

// Add appends a rule and re-sorts by priority.
func (rs *RuleSet) Add(rule Rule) error {
	if err := rule.checkStorable(); err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cur := rs.load()
	for _, r := range cur {
		if r.ID == rule.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
		}
	}
	next := make([]Rule, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, rule.clone())
	sortByPriority(next)
	rs.snap.Store(&next)
	return nil
}

// Remove deletes the rule with the given id and reports whether it existed.
func (rs *RuleSet) Remove(id string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cur := rs.load()
	next := make([]Rule, 0, len(cur))
	found := false
	for _, r := range cur {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if found {
		rs.snap.Store(&next)
	}
	return found
}

// ReplaceAll swaps the whole set for rules, treating their slice order as
// insertion order. Nothing changes if any rule is rejected.
func (rs *RuleSet) ReplaceAll(rules []Rule) error {
	next := make([]Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.checkStorable(); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = true
		next = append(next, r.clone())
	}
	sortByPriority(next)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.snap.Store(&next)
	return nil
}

// Classify returns the action of the first matching rule in priority order.
// ok is false when no rule matches.
func (rs *RuleSet) Classify(p core.Paragraph) (core.Action, bool) {
	rule, ok := rs.Explain(p)
	if !ok {
		return "", false
	}
	return rule.Action, true
}

// Explain returns the rule that Classify would apply to p.
func (rs *RuleSet) Explain(p core.Paragraph) (Rule, bool) {
	for _, r := range rs.load() {
		if MatchRule(p, r) {
			return r.clone(), true
		}
	}
	return Rule{}, false
}

// sortByPriority orders rules by descending priority, keeping the relative
// order of equal priorities.
func sortByPriority(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
}
