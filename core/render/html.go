// Package render — HTML renderer.
// Writes kept paragraphs as semantic HTML: headings become <h1>…<h6>,
// consecutive list paragraphs are grouped into one <ul>, everything else is
// a <p> carrying its style as a class.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
)

// block is one rendered element: a heading, a paragraph or a list.
type block struct {
	Tag   string
	Class string
	Text  string
	Items []string
}

var htmlTemplate = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{- range .Blocks}}
{{if .Items}}<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>{{else}}<{{.Tag}}{{with .Class}} class="{{.}}"{{end}}>{{.Text}}</{{.Tag}}>{{end}}
{{- end}}
</body>
</html>
`))

// HTMLRenderer renders a labeled document as HTML.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render converts the kept paragraphs into an HTML page.
func (r *HTMLRenderer) Render(doc core.Document) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Title  string
		Blocks []block
	}{Title: doc.Title, Blocks: blocks(doc.Kept())}
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// blocks groups labeled paragraphs into HTML elements.
func blocks(paragraphs []core.Labeled) []block {
	var out []block
	for _, p := range paragraphs {
		text := p.Paragraph.Text
		switch {
		case p.Label.IsList():
			if n := len(out); n > 0 && out[n-1].Items != nil {
				out[n-1].Items = append(out[n-1].Items, text)
				continue
			}
			out = append(out, block{Tag: "ul", Items: []string{text}})
		case p.Label == core.LabelTitle:
			out = append(out, block{Tag: "h1", Class: "title", Text: text})
		case p.Label.HeadingLevel() > 0:
			out = append(out, block{Tag: fmt.Sprintf("h%d", p.Label.HeadingLevel()), Text: text})
		default:
			out = append(out, block{Tag: "p", Class: styleClass(p.Label), Text: text})
		}
	}
	return out
}

// styleClass turns a style name into a CSS class: "Body Text" → body-text.
func styleClass(l core.Label) string {
	if l == "" || l == core.LabelNormal {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(string(l)), "-"))
}
