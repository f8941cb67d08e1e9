package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gaurav-prasanna/parapipe/core"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func buildDocx(t *testing.T, body, styles string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`,
	}
	if styles != "" {
		parts["word/styles.xml"] = `<?xml version="1.0" encoding="UTF-8"?><w:styles ` + wordNS + `>` + styles + `</w:styles>`
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocxReader(t *testing.T) {
	body := `
<w:p><w:pPr><w:pStyle w:val="Heading1"/><w:jc w:val="center"/></w:pPr>
  <w:r><w:rPr><w:b/><w:sz w:val="32"/><w:rFonts w:ascii="Arial"/></w:rPr><w:t>EMPLOYMENT POLICIES</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="ListParagraph"/></w:pPr>
  <w:r><w:t xml:space="preserve">1. Wear </w:t></w:r><w:r><w:rPr><w:i/></w:rPr><w:t>the uniform.</w:t></w:r></w:p>
<w:p><w:r><w:t></w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b w:val="0"/><w:u w:val="single"/></w:rPr><w:t>Report</w:t><w:tab/><w:t>on time.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Custom7"/></w:pPr><w:r><w:t>Custom styled</w:t></w:r></w:p>`
	styles := `<w:style w:type="paragraph" w:styleId="Custom7"><w:name w:val="heading 3"/></w:style>`

	got, err := NewDocxReader().Read(context.Background(), "manual.docx", buildDocx(t, body, styles))
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "EMPLOYMENT POLICIES", got[0].Text)
	assert.Equal(t, core.LabelHeading1, got[0].CurrentStyle)
	assert.Equal(t, core.Bool(true), got[0].Properties[PropIsBold])
	assert.Equal(t, core.Int(16), got[0].Properties[PropFontSize])
	assert.Equal(t, core.String("center"), got[0].Properties[PropAlignment])
	assert.Equal(t, core.String("Arial"), got[0].Properties[PropFontName])
	assert.Equal(t, "manual.docx#1", got[0].ID)

	assert.Equal(t, "1. Wear the uniform.", got[1].Text)
	assert.Equal(t, core.LabelListParagraph, got[1].CurrentStyle)
	assert.Equal(t, core.Bool(false), got[1].Properties[PropIsItalic], "first run decides")

	assert.Equal(t, "Report on time.", got[2].Text)
	assert.Equal(t, core.Label(""), got[2].CurrentStyle)
	assert.Equal(t, core.Bool(false), got[2].Properties[PropIsBold])
	assert.Equal(t, core.Bool(true), got[2].Properties[PropIsUnderline])

	assert.Equal(t, core.LabelHeading3, got[3].CurrentStyle)
}

func TestDocxReader_Errors(t *testing.T) {
	_, err := NewDocxReader().Read(context.Background(), "x.docx", []byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = NewDocxReader().Read(context.Background(), "x.docx", buf.Bytes())
	assert.ErrorContains(t, err, "document.xml not found")
}

func TestDocxStyleLabel(t *testing.T) {
	tests := map[string]core.Label{
		"Heading2":      core.LabelHeading2,
		"heading 5":     core.LabelHeading5,
		"Titre1":        core.LabelHeading1,
		"Title":         core.LabelTitle,
		"BodyText":      core.LabelBodyText,
		"Normal":        core.LabelNormal,
		"ListParagraph": core.LabelListParagraph,
		"Caption":       core.Label("Caption"),
		"":              core.Label(""),
	}
	for id, want := range tests {
		assert.Equal(t, want, docxStyleLabel(id, nil), id)
	}
}

func TestHTMLReader(t *testing.T) {
	page := `<html><head><title>Handbook</title><script>var x = 1;</script></head>
<body>
  <nav><a href="/">Home</a></nav>
  <main>
    <h2>SCOPE</h2>
    <p>Crewmembers   must <b>always</b> report on time.</p>
    <p><strong>Bold lead paragraph</strong></p>
    <ul><li><p>First item</p></li><li>Second <em>item</em></li></ul>
    <p onclick="alert(1)">   </p>
    <div class="sidebar"><p>Sidebar text</p></div>
  </main>
  <footer><p>Page 3 of 10</p></footer>
</body></html>`

	got, err := NewHTMLReader().Read(context.Background(), "page.html", []byte(page))
	require.NoError(t, err)

	texts := make([]string, 0, len(got))
	for _, p := range got {
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{
		"SCOPE",
		"Crewmembers must always report on time.",
		"Bold lead paragraph",
		"First item",
		"Second item",
	}, texts)

	assert.Equal(t, core.LabelHeading2, got[0].CurrentStyle)
	assert.Equal(t, core.Bool(true), got[0].Properties[PropIsBold])
	assert.Equal(t, core.Bool(false), got[1].Properties[PropIsBold])
	assert.Equal(t, core.Bool(true), got[2].Properties[PropIsBold])
	assert.Equal(t, core.LabelListParagraph, got[3].CurrentStyle)
	assert.Equal(t, core.Label(""), got[1].CurrentStyle)
}

func TestTextReader(t *testing.T) {
	got, err := NewTextReader().Read(context.Background(), "a.txt", []byte("PREFACE\r\n\n  Body line.  \n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PREFACE", got[0].Text)
	assert.Equal(t, "Body line.", got[1].Text)
	assert.Equal(t, "a.txt#2", got[1].ID)
}

func TestJSONReader(t *testing.T) {
	bare := `[{"id":"e1","text":"SCOPE","style":"Heading 2","properties":{"is_bold":true,"font_size":14,"rgb_color":[0,0,0]}},{"text":"Body."}]`
	got, err := NewJSONReader().Read(context.Background(), "doc.json", []byte(bare))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.LabelHeading2, got[0].CurrentStyle)
	assert.Equal(t, core.Bool(true), got[0].Properties["isBold"])
	assert.Equal(t, core.Int(14), got[0].Properties["fontSize"])
	_, hasColor := got[0].Properties["rgbColor"]
	assert.False(t, hasColor)
	assert.Equal(t, "doc.json#2", got[1].ID)

	env := `{"elements":[{"id":"x","text":"NOTE: keep"}]}`
	got, err = NewJSONReader().Read(context.Background(), "doc.json", []byte(env))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)

	_, err = NewJSONReader().Read(context.Background(), "doc.json", []byte(`{"paragraphs": 3}`))
	assert.Error(t, err)
}

func TestMultiReader(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	m := New(WithLogger(zap.New(obs)))

	got, err := m.Read(context.Background(), "dir/Notes.TXT", []byte("  SCOPE AND PURPOSE \nCrewmembers must comply.\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "SCOPE AND PURPOSE", got[0].Text)
	assert.Equal(t, "Notes.TXT#1", got[0].ID)
	assert.Equal(t, core.String(CaseUpper), got[0].Properties[PropTextCase])
	assert.Equal(t, 1, logs.FilterMessage("document read").Len())

	_, err = m.Read(context.Background(), "deck.pptx", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, m.Supports("a.HTM"))
	assert.False(t, m.Supports("a.pdf"))
	assert.Equal(t, []string{".docx", ".htm", ".html", ".json", ".txt"}, m.Extensions())
}
