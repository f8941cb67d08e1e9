package render

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/extract"
)

func labeled(text string, label core.Label) core.Labeled {
	return core.Labeled{
		Paragraph: core.Paragraph{ID: "doc#" + text, Text: text},
		Label:     label,
		Source:    core.SourceClassifier,
	}
}

func sampleDoc() core.Document {
	return core.Document{
		Title:      "Crew Handbook",
		SourcePath: "handbook.docx",
		Paragraphs: []core.Labeled{
			{Paragraph: core.Paragraph{Text: "Page 1"}, Excluded: true, Reason: "header/footer", Source: core.SourceFilter},
			labeled("PREFACE", core.LabelHeading1),
			labeled("This handbook covers crew policy & procedure.", core.LabelBodyText),
			labeled("Uniforms", core.LabelHeading2),
			labeled("Wear the approved jacket.", core.LabelListParagraph),
			labeled("Carry your badge.", core.LabelListParagraph),
			{Paragraph: core.Paragraph{Text: "CONFIDENTIAL"}, Excluded: true, Reason: "classifier: FILTER", Source: core.SourceClassifier},
			labeled("Questions go to your base manager.", core.Label("Callout Box")),
		},
	}
}

func TestHTMLRenderer(t *testing.T) {
	out, err := NewHTMLRenderer().Render(sampleDoc())
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<title>Crew Handbook</title>")
	assert.Contains(t, html, "<h1>PREFACE</h1>")
	assert.Contains(t, html, "<h2>Uniforms</h2>")
	assert.Contains(t, html, `<p class="body-text">This handbook covers crew policy &amp; procedure.</p>`)
	assert.Contains(t, html, `<p class="callout-box">`)
	assert.Equal(t, 1, strings.Count(html, "<ul>"), "consecutive list items share one list")
	assert.Equal(t, 2, strings.Count(html, "<li>"))
	assert.NotContains(t, html, "Page 1")
	assert.NotContains(t, html, "CONFIDENTIAL")
	assert.Equal(t, ".html", NewHTMLRenderer().Extension())
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := NewMarkdownRenderer().Render(sampleDoc())
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "# PREFACE")
	assert.Contains(t, md, "## Uniforms")
	assert.Contains(t, md, "- Wear the approved jacket.")
	assert.Contains(t, md, "- Carry your badge.")
	assert.Contains(t, md, "Questions go to your base manager.")
	assert.NotContains(t, md, "CONFIDENTIAL")
	assert.Equal(t, ".md", NewMarkdownRenderer().Extension())
}

func TestJSONRenderer(t *testing.T) {
	out, err := NewJSONRenderer().Render(sampleDoc())
	require.NoError(t, err)

	var got DocumentJSON
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "Crew Handbook", got.Title)
	assert.Equal(t, "handbook.docx", got.SourcePath)
	require.Len(t, got.Paragraphs, 6)
	assert.Equal(t, core.LabelHeading1, got.Paragraphs[0].Style)
	assert.Equal(t, []Heading{{Level: 1, Text: "PREFACE"}, {Level: 2, Text: "Uniforms"}}, got.Headings)

	require.Len(t, got.Sections, 2)
	assert.Equal(t, "This handbook covers crew policy & procedure.", got.Sections[0].Text)
	assert.Equal(t, "Wear the approved jacket.\nCarry your badge.\nQuestions go to your base manager.", got.Sections[1].Text)

	assert.Equal(t, 8, got.Summary.Input)
	assert.Equal(t, 6, got.Summary.Kept)
	assert.Equal(t, 2, got.Summary.Excluded)
	assert.Equal(t, map[string]int{"header/footer": 1, "classifier: FILTER": 1}, got.Summary.Reasons)
	assert.Equal(t, 2, got.Summary.Styles[string(core.LabelListParagraph)])
}

func TestJSONRenderer_EmptyDocument(t *testing.T) {
	out, err := NewJSONRenderer().Render(core.Document{Title: "empty"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"paragraphs": []`)
	assert.Contains(t, string(out), `"headings": []`)
}

func TestPDFRenderer(t *testing.T) {
	out, err := NewPDFRenderer().Render(sampleDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF-"))
	assert.Equal(t, ".pdf", NewPDFRenderer().Extension())
}

func TestDOCXRenderer_RoundTrip(t *testing.T) {
	out, err := NewDOCXRenderer().Render(sampleDoc())
	require.NoError(t, err)

	paragraphs, err := extract.NewDocxReader().Read(context.Background(), "out.docx", out)
	require.NoError(t, err)
	require.Len(t, paragraphs, 6)

	want := []struct {
		text  string
		style core.Label
	}{
		{"PREFACE", core.LabelHeading1},
		{"This handbook covers crew policy & procedure.", core.LabelBodyText},
		{"Uniforms", core.LabelHeading2},
		{"Wear the approved jacket.", core.LabelListParagraph},
		{"Carry your badge.", core.LabelListParagraph},
		{"Questions go to your base manager.", core.Label("Callout Box")},
	}
	for i, w := range want {
		assert.Equal(t, w.text, paragraphs[i].Text)
		assert.Equal(t, w.style, paragraphs[i].CurrentStyle, w.text)
	}
	assert.Equal(t, ".docx", NewDOCXRenderer().Extension())
}

func TestStyleID(t *testing.T) {
	assert.Equal(t, "Heading1", styleID(core.LabelHeading1))
	assert.Equal(t, "ListParagraph", styleID(core.LabelListParagraph))
	assert.Equal(t, "Normal", styleID(""))
	assert.Equal(t, "QANotes", styleID(core.Label(`QA "&" Notes`)))
}
