// Package render — JSON renderer.
// Emits the kept paragraphs with their labels, the heading outline and the
// sections under each heading, plus counts of what the pipeline dropped.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Heading is one entry of the document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Section is the text that follows a heading up to the next heading.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// JSONParagraph is a kept paragraph in the JSON output.
type JSONParagraph struct {
	ID     string      `json:"id,omitempty"`
	Text   string      `json:"text"`
	Style  core.Label  `json:"style"`
	Source core.Source `json:"source"`
}

// Summary counts paragraphs by outcome.
type Summary struct {
	Input    int            `json:"input"`
	Kept     int            `json:"kept"`
	Excluded int            `json:"excluded"`
	Reasons  map[string]int `json:"reasons,omitempty"`
	Styles   map[string]int `json:"styles,omitempty"`
}

// DocumentJSON is the top-level JSON output.
type DocumentJSON struct {
	Title      string          `json:"title"`
	SourcePath string          `json:"source_path"`
	Paragraphs []JSONParagraph `json:"paragraphs"`
	Headings   []Heading       `json:"headings"`
	Sections   []Section       `json:"sections,omitempty"`
	Summary    Summary         `json:"summary"`
}

// JSONRenderer produces structured JSON output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts the document into the JSON structure.
func (r *JSONRenderer) Render(doc core.Document) ([]byte, error) {
	kept := doc.Kept()
	out := DocumentJSON{
		Title:      doc.Title,
		SourcePath: doc.SourcePath,
		Paragraphs: make([]JSONParagraph, 0, len(kept)),
		Headings:   extractHeadings(kept),
		Sections:   buildSections(kept),
		Summary:    summarize(doc),
	}
	for _, p := range kept {
		out.Paragraphs = append(out.Paragraphs, JSONParagraph{
			ID:     p.Paragraph.ID,
			Text:   p.Paragraph.Text,
			Style:  p.Label,
			Source: p.Source,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

func extractHeadings(kept []core.Labeled) []Heading {
	headings := make([]Heading, 0)
	for _, p := range kept {
		if level := p.Label.HeadingLevel(); level > 0 {
			headings = append(headings, Heading{Level: level, Text: p.Paragraph.Text})
		}
	}
	return headings
}

// buildSections groups paragraphs under the heading that precedes them.
// Paragraphs before the first heading belong to no section.
func buildSections(kept []core.Labeled) []Section {
	var (
		sections []Section
		current  *Section
		lines    []string
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(lines, "\n")
			sections = append(sections, *current)
		}
	}
	for _, p := range kept {
		if level := p.Label.HeadingLevel(); level > 0 {
			flush()
			current = &Section{Heading: p.Paragraph.Text, Level: level}
			lines = nil
			continue
		}
		if current != nil {
			lines = append(lines, p.Paragraph.Text)
		}
	}
	flush()
	return sections
}

func summarize(doc core.Document) Summary {
	s := Summary{Input: len(doc.Paragraphs)}
	for _, p := range doc.Paragraphs {
		if p.Excluded {
			s.Excluded++
			if s.Reasons == nil {
				s.Reasons = map[string]int{}
			}
			s.Reasons[p.Reason]++
			continue
		}
		s.Kept++
		if s.Styles == nil {
			s.Styles = map[string]int{}
		}
		s.Styles[string(p.Label)]++
	}
	return s
}
