package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/parapipe/core"
)

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name     string
		actual   core.Value
		op       Operator
		expected core.Value
		want     bool
	}{
		{"equals exact", core.String("PREFACE"), OpEquals, core.String("PREFACE"), true},
		{"equals is case-sensitive", core.String("Preface"), OpEquals, core.String("PREFACE"), false},
		{"equals style label", core.String("Heading 2"), OpEquals, core.String("Heading 2"), true},
		{"equals bool against bool", core.Bool(true), OpEquals, core.Bool(true), true},
		{"equals bool against string", core.Bool(true), OpEquals, core.String("true"), true},
		{"equals number coerced", core.Int(12), OpEquals, core.String("12"), true},
		{"notEquals different", core.String("UPPER"), OpNotEquals, core.String("lower"), true},
		{"notEquals is case-sensitive", core.String("Upper"), OpNotEquals, core.String("UPPER"), true},
		{"notEquals same", core.String("UPPER"), OpNotEquals, core.String("UPPER"), false},
		{"contains ignores case", core.String("This Page Intentionally Left Blank"), OpContains, core.String("intentionally LEFT"), true},
		{"contains miss", core.String("policy"), OpContains, core.String("procedure"), false},
		{"startsWith ignores case", core.String("NOTE: keep"), OpStartsWith, core.String("note:"), true},
		{"startsWith miss", core.String("a NOTE:"), OpStartsWith, core.String("note:"), false},
		{"endsWith ignores case", core.String("How do I sign up?"), OpEndsWith, core.String("UP?"), true},
		{"greaterThan numbers", core.Int(150), OpGreaterThan, core.Int(100), true},
		{"greaterThan numeric strings", core.String(" 150 "), OpGreaterThan, core.String("100"), true},
		{"greaterThan equal is false", core.Int(100), OpGreaterThan, core.Int(100), false},
		{"greaterThan non-numeric actual", core.String("abc"), OpGreaterThan, core.Int(100), false},
		{"greaterThan non-numeric expected", core.Int(5), OpGreaterThan, core.String("many"), false},
		{"greaterThan null actual", core.Null, OpGreaterThan, core.Int(0), false},
		{"lessThan numbers", core.Int(3), OpLessThan, core.Number(3.5), true},
		{"lessThan bool coerces", core.Bool(false), OpLessThan, core.Int(1), true},
		{"matchesRegex hit", core.String("Appendix C PASS TRAVEL"), OpMatchesRegex, core.String(`^Appendix [A-Z] `), true},
		{"matchesRegex is case-sensitive", core.String("appendix c"), OpMatchesRegex, core.String(`^Appendix`), false},
		{"matchesRegex searches", core.String("see 14 CFR Part 5"), OpMatchesRegex, core.String(`\d+ CFR`), true},
		{"matchesRegex invalid pattern", core.String("anything"), OpMatchesRegex, core.String(`([unclosed`), false},
		{"matchesRegex on number", core.Int(2024), OpMatchesRegex, core.String(`^\d{4}$`), true},
		{"unknown operator", core.String("x"), Operator("between"), core.String("x"), false},
		{"missing property equals empty", core.Null, OpEquals, core.String(""), true},
		{"null expected never equals", core.Null, OpEquals, core.Null, false},
		{"null expected never notEquals", core.String("x"), OpNotEquals, core.Null, false},
		{"matchesRegex number pattern", core.String("5"), OpMatchesRegex, core.Int(5), false},
		{"matchesRegex bool pattern", core.String("true"), OpMatchesRegex, core.Bool(true), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.actual, tt.op, tt.expected))
		})
	}
}

func TestEvaluateCondition_NonNumericLengthIsFalse(t *testing.T) {
	p := core.Paragraph{
		Text:       "short",
		Properties: map[string]core.Value{"length": core.String("abc")},
	}
	c := Condition{Property: "length", Operator: OpGreaterThan, Value: core.Int(100)}

	assert.NotPanics(t, func() { c.Matches(p) })
	assert.False(t, c.Matches(p))
}

func TestEvaluateCondition_InvalidPatternIsCached(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.False(t, EvaluateCondition(core.String("a"), OpMatchesRegex, core.String("(?P<")))
	}
	cached, ok := patternCache.Load("(?P<")
	require.True(t, ok)
	assert.Nil(t, cached)
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr string
	}{
		{"string op with string", Condition{"text", OpContains, core.String("page")}, ""},
		{"numeric op with number", Condition{"length", OpGreaterThan, core.Int(10)}, ""},
		{"numeric op with numeric string", Condition{"length", OpLessThan, core.String("10")}, ""},
		{"equals with bool", Condition{"isBold", OpEquals, core.Bool(true)}, ""},
		{"regex ok", Condition{"text", OpMatchesRegex, core.String(`^\d+\.`)}, ""},
		{"no property", Condition{"", OpEquals, core.String("x")}, "no property"},
		{"unknown operator", Condition{"text", "like", core.String("x")}, "unknown operator"},
		{"missing value", Condition{"text", OpEquals, core.Null}, "needs a value"},
		{"numeric op with word", Condition{"length", OpGreaterThan, core.String("long")}, "needs a number"},
		{"regex with number", Condition{"text", OpMatchesRegex, core.Int(5)}, "pattern string"},
		{"bad regex", Condition{"text", OpMatchesRegex, core.String("[a-")}, "bad pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
