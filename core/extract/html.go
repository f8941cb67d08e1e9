// Package extract — HTML reader.
// It isolates the main content of a page by:
//  1. Removing noise elements (nav, footer, scripts, images, etc.)
//  2. Finding the best content container (<main>, <article>, or <body>)
//  3. Sanitizing the container with bluemonday
//
// and then emits headings, paragraphs and list items in document order.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/gaurav-prasanna/parapipe/core"
)

// noiseSelectors are HTML elements removed before extraction.
// These contribute no meaningful content to the page text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li"

// HTMLReader reads HTML documents and Word "save as web page" exports.
type HTMLReader struct {
	policy *bluemonday.Policy
}

// NewHTMLReader creates an HTMLReader using the UGC sanitization policy.
func NewHTMLReader() *HTMLReader {
	return &HTMLReader{policy: bluemonday.UGCPolicy()}
}

// Read parses HTML and returns its block-level text in order.
func (r *HTMLReader) Read(ctx context.Context, name string, data []byte) ([]core.Paragraph, error) {
	content, err := r.mainContent(data)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.policy.SanitizeBytes(content)))
	if err != nil {
		return nil, fmt.Errorf("parsing sanitized HTML: %w", err)
	}

	var paragraphs []core.Paragraph
	doc.Find(blockSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		// A <p> inside a list item is covered by the item's text.
		if s.ParentsFiltered("li").Length() > 0 {
			return true
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}

		p := core.Paragraph{
			ID:   fmt.Sprintf("%s#%d", name, len(paragraphs)+1),
			Text: text,
			Properties: map[string]core.Value{
				PropIsBold:      core.Bool(wrappedIn(s, "strong, b", text)),
				PropIsItalic:    core.Bool(wrappedIn(s, "em, i", text)),
				PropIsUnderline: core.Bool(wrappedIn(s, "u", text)),
			},
		}
		switch tag := goquery.NodeName(s); tag {
		case "li":
			p.CurrentStyle = core.LabelListParagraph
		case "h1", "h2", "h3", "h4", "h5", "h6":
			p.CurrentStyle = core.HeadingLabel(int(tag[1] - '0'))
			p.Properties[PropIsBold] = core.Bool(true)
		}
		paragraphs = append(paragraphs, p)
		return true
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

// mainContent strips noise from a full page and returns the best content
// container as an HTML fragment.
func (r *HTMLReader) mainContent(data []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return nil, fmt.Errorf("no content container found in HTML")
	}

	result, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("serializing content: %w", err)
	}
	return []byte(result), nil
}

// wrappedIn reports whether the text of s is entirely inside elements
// matching sel.
func wrappedIn(s *goquery.Selection, sel, text string) bool {
	inner := s.Find(sel)
	if inner.Length() == 0 {
		return false
	}
	return strings.Join(strings.Fields(inner.Text()), " ") == text
}
