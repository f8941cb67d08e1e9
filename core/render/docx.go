// Package render — DOCX renderer.
// Writes a minimal WordprocessingML package: one <w:p> per kept paragraph,
// each referencing a paragraph style named after its label. List
// paragraphs are bulleted through numbering.xml.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	bulletNumID   = 1
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>
</Relationships>`

const numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="` + wordNamespace + `">
<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="` + "•" + `"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
</w:numbering>`

// headingSizes are heading font sizes in half-points.
var headingSizes = map[int]int{1: 32, 2: 28, 3: 26, 4: 24, 5: 22, 6: 22}

// DOCXRenderer renders a labeled document as a Word document.
type DOCXRenderer struct{}

// NewDOCXRenderer creates a DOCXRenderer.
func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{}
}

// Render builds the .docx archive in memory.
func (r *DOCXRenderer) Render(doc core.Document) ([]byte, error) {
	kept := doc.Kept()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/numbering.xml", numberingXML},
		{"word/styles.xml", stylesXML(sortedLabels(kept))},
		{"word/document.xml", documentXML(kept)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for Word output.
func (r *DOCXRenderer) Extension() string {
	return ".docx"
}

func documentXML(kept []core.Labeled) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:document xmlns:w="%s" xmlns:r="%s"><w:body>`, wordNamespace, relNamespace)
	for _, p := range kept {
		b.WriteString(`<w:p><w:pPr>`)
		fmt.Fprintf(&b, `<w:pStyle w:val="%s"/>`, styleID(p.Label))
		if p.Label.IsList() {
			fmt.Fprintf(&b, `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr>`, bulletNumID)
		}
		b.WriteString(`</w:pPr><w:r><w:t xml:space="preserve">`)
		b.WriteString(escapeXML(p.Paragraph.Text))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

// stylesXML declares Normal plus one paragraph style per label in use.
func stylesXML(labels []core.Label) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:styles xmlns:w="%s">`, wordNamespace)
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
		`<w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri"/><w:sz w:val="22"/></w:rPr></w:style>`)
	for _, l := range labels {
		id := styleID(l)
		if id == "Normal" {
			continue
		}
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:customStyle="%d" w:styleId="%s"><w:name w:val="%s"/><w:basedOn w:val="Normal"/>`,
			boolInt(!isKnown(l)), id, escapeXML(string(l)))
		switch level := l.HeadingLevel(); {
		case level > 0:
			fmt.Fprintf(&b, `<w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/><w:outlineLvl w:val="%d"/></w:pPr>`, level-1)
			fmt.Fprintf(&b, `<w:rPr><w:b/><w:sz w:val="%d"/></w:rPr>`, headingSizes[level])
		case l.IsList():
			b.WriteString(`<w:pPr><w:ind w:left="720"/><w:contextualSpacing/></w:pPr>`)
		default:
			b.WriteString(`<w:pPr><w:spacing w:after="120"/></w:pPr>`)
		}
		b.WriteString(`</w:style>`)
	}
	b.WriteString(`</w:styles>`)
	return b.String()
}

// styleID derives a style id from a label: "Heading 1" → Heading1.
// An empty label maps to Normal.
func styleID(l core.Label) string {
	id := strings.Join(strings.Fields(string(l)), "")
	if id == "" {
		return "Normal"
	}
	var b strings.Builder
	for _, r := range id {
		if r == '"' || r == '<' || r == '>' || r == '&' || r == '\'' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sortedLabels returns the distinct labels of kept paragraphs, sorted.
func sortedLabels(kept []core.Labeled) []core.Label {
	seen := map[core.Label]bool{}
	var labels []core.Label
	for _, p := range kept {
		if !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

func isKnown(l core.Label) bool {
	_, ok := core.ParseLabel(string(l))
	return ok
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeXML(s string) string {
	var b strings.Builder
	// EscapeText only fails on writer errors; strings.Builder never returns one.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
