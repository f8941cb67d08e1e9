package rules

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/parapipe/core"
)

func sampleRules() []Rule {
	return []Rule{
		{ID: "blank", Description: "drop blank markers", Action: core.ActionFilter, Priority: 300, Conditions: []Condition{
			{Property: "text", Operator: OpContains, Value: core.String("intentionally left blank")},
		}},
		{ID: "h1", Action: "Heading 1", Priority: 190, Conditions: []Condition{
			{Property: "isAllCaps", Operator: OpEquals, Value: core.Bool(true)},
			{Property: "length", Operator: OpLessThan, Value: core.Int(30)},
		}},
		{ID: "list", Action: "List Paragraph", Priority: 150, Conditions: []Condition{
			{Property: "text", Operator: OpMatchesRegex, Value: core.String(`^\d+\.\s+`)},
		}},
		{ID: "body", Action: "Body Text", Priority: 50, Conditions: []Condition{
			{Property: "wordCount", Operator: OpGreaterThan, Value: core.Number(5)},
		}},
		{ID: "catch-all", Action: "Normal", Priority: 0, Conditions: []Condition{}},
	}
}

func sampleParagraphs() []core.Paragraph {
	mk := func(text string, caps bool, words int) core.Paragraph {
		return core.Paragraph{Text: text, Properties: map[string]core.Value{
			"isAllCaps": core.Bool(caps),
			"length":    core.Int(len(text)),
			"wordCount": core.Int(words),
		}}
	}
	return []core.Paragraph{
		mk("THIS PAGE INTENTIONALLY LEFT BLANK", true, 5),
		mk("SCHEDULING", true, 1),
		mk("1. Report to the gate on time.", false, 6),
		mk("Crewmembers are expected to keep their manuals current.", false, 8),
		mk("Short", false, 1),
	}
}

func assertSameClassification(t *testing.T, a, b *RuleSet) {
	t.Helper()
	for _, p := range sampleParagraphs() {
		wantAction, wantOK := a.Classify(p)
		gotAction, gotOK := b.Classify(p)
		assert.Equal(t, wantOK, gotOK, p.Text)
		assert.Equal(t, wantAction, gotAction, p.Text)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			orig := MustRuleSet(sampleRules()...)

			var buf bytes.Buffer
			require.NoError(t, Export(&buf, orig.Rules(), format))

			loaded, err := Import(&buf, format)
			require.NoError(t, err)
			reloaded, err := NewRuleSet(loaded...)
			require.NoError(t, err)

			assert.Equal(t, orig.Rules(), reloaded.Rules())
			assertSameClassification(t, orig, reloaded)
		})
	}
}

func TestExport_Envelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleRules()[:1], FormatJSON))
	out := buf.String()
	assert.Contains(t, out, `"format_version": "1.0"`)
	assert.Contains(t, out, `"exported_at"`)
	assert.Contains(t, out, `"action": "FILTER"`)
}

func TestImport_RuleTrainerExport(t *testing.T) {
	data := `{
  "rules": [
    {
      "id": "5b0c",
      "description": "Classify text as Heading 2 based on formatting patterns",
      "conditions": [
        {"property": "text_case", "operator": "equals", "value": "UPPER"},
        {"property": "is_bold", "operator": "equals", "value": true},
        {"property": "font_size", "operator": "greaterThan", "value": 12}
      ],
      "action": {"classify_as": "Heading 2", "set_style": {"is_bold": true, "font_size": 16}},
      "priority": 180,
      "created_at": "2025-01-14T10:00:00"
    },
    {
      "id": "noprio",
      "conditions": [],
      "action": "Body Text"
    }
  ],
  "exported_at": "2025-01-14T10:05:00",
  "format_version": "1.0"
}`
	got, err := Import(strings.NewReader(data), FormatJSON)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.Action("Heading 2"), got[0].Action)
	assert.Equal(t, 180, got[0].Priority)
	assert.Equal(t, core.Bool(true), got[0].Conditions[1].Value)
	assert.Equal(t, core.Int(12), got[0].Conditions[2].Value)

	assert.Equal(t, DefaultPriority, got[1].Priority)
	assert.NotNil(t, got[1].Conditions)
}

func TestImport_BareList(t *testing.T) {
	jsonList := `[{"id":"a","conditions":[],"action":"Normal","priority":1}]`
	got, err := Import(strings.NewReader(jsonList), FormatJSON)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	yamlList := `
- id: b
  action: Heading 3
  conditions:
    - property: text
      operator: matchesRegex
      value: '^\d+ CFR Part '
- id: c
  action:
    classify_as: List Paragraph
`
	got, err = Import(strings.NewReader(yamlList), FormatYAML)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.String(`^\d+ CFR Part `), got[0].Conditions[0].Value)
	assert.Equal(t, DefaultPriority, got[0].Priority)
	assert.Equal(t, core.Action("List Paragraph"), got[1].Action)
}

func TestImport_Errors(t *testing.T) {
	_, err := Import(strings.NewReader("{not json"), FormatJSON)
	assert.Error(t, err)

	_, err = Import(strings.NewReader(`[{"id":"a","action":["x"]}]`), FormatJSON)
	assert.Error(t, err)

	_, err = Import(strings.NewReader("[]"), "toml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"rules.json", "rules.yaml", "rules.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveFile(path, sampleRules()))

		loaded, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, sampleRules(), loaded, name)
	}

	_, err := LoadFile(filepath.Join(dir, "rules.toml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
