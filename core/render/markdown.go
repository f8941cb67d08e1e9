// Package render provides output renderers for the parapipe pipeline.
// This file implements the Markdown renderer, which converts the HTML
// rendering with html-to-markdown so both outputs share one structure.
package render

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/gaurav-prasanna/parapipe/core"
)

// MarkdownRenderer writes headings as #-headings, list paragraphs as
// bullets and other paragraphs as plain text.
type MarkdownRenderer struct {
	html *HTMLRenderer
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{html: NewHTMLRenderer()}
}

// Render converts the document to Markdown.
func (r *MarkdownRenderer) Render(doc core.Document) ([]byte, error) {
	page, err := r.html.Render(doc)
	if err != nil {
		return nil, err
	}
	markdown, err := htmltomarkdown.ConvertString(string(page))
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return []byte(markdown), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
