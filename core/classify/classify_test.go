package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/rules"
)

func para(text string) core.Paragraph { return core.Paragraph{ID: "p", Text: text} }

func classifyOne(t *testing.T, c core.Classifier, text string) (core.Action, bool) {
	t.Helper()
	action, ok, err := c.Classify(context.Background(), para(text))
	require.NoError(t, err)
	return action, ok
}

func TestMultiStage(t *testing.T) {
	tests := []struct {
		text string
		want core.Label
	}{
		{"• Bring your crew ID", core.LabelListParagraph},
		{"1. Check in with the lead", core.LabelListParagraph},
		{"(b) uniform pieces", core.LabelListParagraph},
		{"B) Overnight bags", core.LabelListParagraph},
		{"Report any injury immediately.", core.LabelListParagraph},
		{"Read, sign and return the form.", core.LabelListParagraph},
		{"Crewmembers must carry a flashlight.", core.LabelListParagraph},
		{"Supervisors are responsible for scheduling.", core.LabelListParagraph},
		{"SCOPE", core.LabelHeading2},
		{"COMPENSATION AND EMPLOYEE BENEFITS", core.LabelHeading1},
		{"Credit Card Details", core.LabelHeading3},
		{"NOTE: See the appendix for details.", core.LabelNormal},
		{"The company was founded in 1980.", core.LabelBodyText},
		{"Pay is issued biweekly", core.LabelBodyText},
		{"SHORT CAPS SENTENCE.", core.LabelBodyText},
	}
	m := NewMultiStage()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			action, ok := classifyOne(t, m, tt.text)
			require.True(t, ok)
			assert.Equal(t, core.LabelAction(tt.want), action)
		})
	}
}

func TestPattern(t *testing.T) {
	p, err := NewPattern(PatternConfig{Headings: map[string][]string{
		"heading 1": {"PREFACE", "TRAVEL"},
		"Heading 4": {"Overview:"},
	}})
	require.NoError(t, err)

	tests := []struct {
		text string
		want core.Label
	}{
		{"PREFACE", core.LabelHeading1},
		{"TRAVEL", core.LabelHeading1},
		{"Overview:", core.LabelHeading4},
		{"Appendix C PASS TRAVEL POLICY", core.LabelHeading1},
		{"OPEN DOOR POLICY (RC-THPPH)", core.LabelHeading2},
		{"SAFETY POLICY – UNITED STATES FEDERAL AVIATION ADMINISTRATION (RC-SMM)", core.LabelHeading2},
		{"DEFINITIONS", core.LabelHeading2},
		{"14 CFR Part 5.95(a)", core.LabelHeading3},
		{"EMPLOYEE RESPONSIBILITIES", core.LabelHeading3},
		{"NOTE: Crewmembers must comply.", core.LabelHeading4},
		{"How do I sign up?", core.LabelHeading4},
		{"Pant & Skirt Wear Options", core.LabelHeading5},
		{"Squall System", core.LabelHeading5},
		{"• Bring your ID", core.LabelListParagraph},
		{"a) first item", core.LabelListParagraph},
		{"Wear the approved uniform at all times", core.LabelListParagraph},
		{"Crewmembers are required to carry their manuals", core.LabelListParagraph},
		{"The company was founded in 1980.", core.LabelBodyText},
		{"HARASSMENT", core.LabelBodyText},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			action, ok := classifyOne(t, p, tt.text)
			require.True(t, ok)
			assert.Equal(t, core.LabelAction(tt.want), action)
		})
	}
}

func TestPatternRules_Validate(t *testing.T) {
	rs, err := PatternRules(PatternConfig{})
	require.NoError(t, err)
	for _, r := range rs {
		assert.NoError(t, r.Validate(), r.ID)
	}

	_, err = PatternRules(PatternConfig{Headings: map[string][]string{"Subtitle": {"x"}}})
	assert.ErrorContains(t, err, "unknown style")
}

func TestRuleClassifier(t *testing.T) {
	set := rules.MustRuleSet(rules.Rule{
		ID: "preface", Action: "Heading 1", Priority: 10,
		Conditions: []rules.Condition{{Property: "text", Operator: rules.OpEquals, Value: core.String("PREFACE")}},
	})
	c := NewRules(set)

	action, ok := classifyOne(t, c, "PREFACE")
	require.True(t, ok)
	assert.Equal(t, core.Action("Heading 1"), action)

	_, ok = classifyOne(t, c, "Other")
	assert.False(t, ok)

	require.NoError(t, set.Add(rules.Rule{ID: "rest", Action: "Body Text", Priority: 1}))
	action, ok = classifyOne(t, c, "Other")
	require.True(t, ok)
	assert.Equal(t, core.Action("Body Text"), action)

	r, ok := c.Explain(para("PREFACE"))
	require.True(t, ok)
	assert.Equal(t, "preface", r.ID)
}

type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", nil
}

func testLLMConfig() LLMConfig {
	return LLMConfig{Model: "test", RetryInterval: time.Millisecond, RateLimit: 1000, MaxRetries: 3}
}

func TestLLM_ParsesStyle(t *testing.T) {
	tests := []struct {
		reply string
		want  core.Action
		ok    bool
	}{
		{"Heading 2", "Heading 2", true},
		{" style: list paragraph\n", "List Paragraph", true},
		{"BODY TEXT.", "Body Text", true},
		{"I am not sure", "", false},
	}
	for _, tt := range tests {
		f := &fakeCompleter{replies: []string{tt.reply}}
		l := NewLLM(f, testLLMConfig(), nil)
		action, ok := classifyOne(t, l, "EMPLOYMENT POLICIES")
		assert.Equal(t, tt.ok, ok, tt.reply)
		assert.Equal(t, tt.want, action, tt.reply)
		require.Len(t, f.prompts, 1)
		assert.Contains(t, f.prompts[0], `"EMPLOYMENT POLICIES"`)
	}
}

func TestLLM_Filter(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Filter = true

	f := &fakeCompleter{replies: []string{"FILTER"}}
	action, ok := classifyOne(t, NewLLM(f, cfg, nil), "Page 3 of 10")
	require.True(t, ok)
	assert.True(t, action.IsFilter())
	assert.Len(t, f.prompts, 1)

	f = &fakeCompleter{replies: []string{"INCLUDE", "Body Text"}}
	action, ok = classifyOne(t, NewLLM(f, cfg, nil), "Pay is issued biweekly.")
	require.True(t, ok)
	assert.Equal(t, core.Action("Body Text"), action)
	assert.Len(t, f.prompts, 2)
	assert.Contains(t, f.prompts[0], "INCLUDE or FILTER")
}

func TestLLM_RetriesThenSucceeds(t *testing.T) {
	f := &fakeCompleter{
		errs:    []error{errors.New("connection refused"), errors.New("timeout")},
		replies: []string{"", "", "Normal"},
	}
	action, ok := classifyOne(t, NewLLM(f, testLLMConfig(), nil), "\"SAFETY\"")
	require.True(t, ok)
	assert.Equal(t, core.Action("Normal"), action)
	assert.Len(t, f.prompts, 3)
}

func TestLLM_GivesUp(t *testing.T) {
	boom := errors.New("model unavailable")
	f := &fakeCompleter{errs: []error{boom, boom, boom, boom}}
	_, _, err := NewLLM(f, testLLMConfig(), nil).Classify(context.Background(), para("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.prompts, 3)
}

func TestLLM_TruncatesLongText(t *testing.T) {
	f := &fakeCompleter{replies: []string{"Body Text"}}
	long := strings.Repeat("word ", 400)
	classifyOne(t, NewLLM(f, testLLMConfig(), nil), long)
	assert.NotContains(t, f.prompts[0], long)
	assert.Contains(t, f.prompts[0], long[:classifyTextLimit])
}

type errClassifier struct{ err error }

func (e errClassifier) Classify(context.Context, core.Paragraph) (core.Action, bool, error) {
	return "", false, e.err
}

type noOpinion struct{}

func (noOpinion) Classify(context.Context, core.Paragraph) (core.Action, bool, error) {
	return "", false, nil
}

func TestChain(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	chain := NewChain(zap.New(obs))
	chain.Add("broken", errClassifier{errors.New("model down")})
	chain.Add("silent", noOpinion{})
	chain.Add("multi-stage", NewMultiStage())

	action, ok := classifyOne(t, chain, "SCOPE")
	require.True(t, ok)
	assert.Equal(t, core.Action("Heading 2"), action)

	entries := logs.FilterMessage("strategy failed, trying next").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["strategy"])

	empty := NewChain(nil)
	empty.Add("silent", noOpinion{})
	_, ok = classifyOne(t, empty, "SCOPE")
	assert.False(t, ok)
}

func TestChain_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chain := NewChain(nil)
	chain.Add("broken", errClassifier{context.Canceled})
	chain.Add("multi-stage", NewMultiStage())

	_, _, err := chain.Classify(ctx, para("SCOPE"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	c, err := New(StrategyMultiStage, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &MultiStage{}, c)

	c, err = New(StrategyPattern, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &Pattern{}, c)

	c, err = New("llm, pattern", Deps{Completer: &fakeCompleter{}, LLM: testLLMConfig()})
	require.NoError(t, err)
	chain, ok := c.(*Chain)
	require.True(t, ok)
	assert.Equal(t, []string{"llm", "pattern"}, chain.names)

	_, err = New(StrategyRules, Deps{})
	assert.Error(t, err)

	_, err = New("neural", Deps{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New("pattern,neural", Deps{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
