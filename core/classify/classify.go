// Package classify implements the Classifier strategies: a rule set, the
// pattern-based default rules, the multi-stage heuristic, and an LLM
// classifier, plus a Chain that falls through them in order.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/rules"
)

// Strategy names accepted by New.
const (
	StrategyRules      = "rules"
	StrategyPattern    = "pattern"
	StrategyMultiStage = "multi-stage"
	StrategyLLM        = "llm"
)

// ErrUnknownStrategy is returned by New for an unrecognised name.
var ErrUnknownStrategy = errors.New("unknown classification strategy")

// Deps carries what the strategies need. Only the fields used by the
// requested strategies must be set.
type Deps struct {
	Rules     *rules.RuleSet
	Pattern   PatternConfig
	LLM       LLMConfig
	Completer Completer
	Logger    *zap.Logger
}

// New builds the named strategy. A comma-separated list such as
// "llm,pattern" builds a Chain tried left to right.
func New(name string, deps Deps) (core.Classifier, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	names := strings.Split(name, ",")
	if len(names) > 1 {
		chain := &Chain{logger: deps.Logger}
		for _, n := range names {
			c, err := newSingle(strings.TrimSpace(n), deps)
			if err != nil {
				return nil, err
			}
			chain.Add(strings.TrimSpace(n), c)
		}
		return chain, nil
	}
	return newSingle(strings.TrimSpace(name), deps)
}

func newSingle(name string, deps Deps) (core.Classifier, error) {
	switch name {
	case StrategyRules:
		if deps.Rules == nil {
			return nil, fmt.Errorf("strategy %q needs a rule set", name)
		}
		return NewRules(deps.Rules), nil
	case StrategyPattern:
		return NewPattern(deps.Pattern)
	case StrategyMultiStage:
		return NewMultiStage(), nil
	case StrategyLLM:
		completer := deps.Completer
		if completer == nil {
			c, err := NewOllama(deps.LLM)
			if err != nil {
				return nil, err
			}
			completer = c
		}
		return NewLLM(completer, deps.LLM, deps.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// RuleClassifier classifies with a RuleSet.
type RuleClassifier struct {
	set *rules.RuleSet
}

// NewRules wraps set. Mutations to set are visible to later calls.
func NewRules(set *rules.RuleSet) *RuleClassifier {
	return &RuleClassifier{set: set}
}

// Classify returns the action of the first matching rule.
func (c *RuleClassifier) Classify(_ context.Context, p core.Paragraph) (core.Action, bool, error) {
	action, ok := c.set.Classify(p)
	return action, ok, nil
}

// Explain returns the rule that decided p.
func (c *RuleClassifier) Explain(p core.Paragraph) (rules.Rule, bool) {
	return c.set.Explain(p)
}

// Chain tries strategies in order and returns the first decision.
// A strategy error is logged and the next strategy is tried; only context
// cancellation stops the chain.
type Chain struct {
	names      []string
	strategies []core.Classifier
	logger     *zap.Logger
}

// NewChain creates an empty Chain.
func NewChain(logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{logger: logger}
}

// Add appends a named strategy.
func (c *Chain) Add(name string, s core.Classifier) {
	c.names = append(c.names, name)
	c.strategies = append(c.strategies, s)
}

// Classify returns the first strategy decision.
func (c *Chain) Classify(ctx context.Context, p core.Paragraph) (core.Action, bool, error) {
	for i, s := range c.strategies {
		action, ok, err := s.Classify(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			c.logger.Warn("strategy failed, trying next",
				zap.String("strategy", c.names[i]),
				zap.String("paragraph", p.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			return action, true, nil
		}
	}
	return "", false, nil
}
