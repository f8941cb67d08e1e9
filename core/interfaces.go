// Package core defines the pipeline types and interfaces for parapipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"fmt"
	"strings"
)

// Reserved property names resolved from Paragraph fields instead of the
// Properties map.
const (
	PropText         = "text"
	PropID           = "id"
	PropCurrentStyle = "currentStyle"
	PropStyle        = "style"
)

// Paragraph is one unit of document text plus derived properties.
// Readers emit paragraphs in document order; nothing downstream mutates them.
type Paragraph struct {
	ID           string           `json:"id" yaml:"id"`
	Text         string           `json:"text" yaml:"text"`
	Properties   map[string]Value `json:"properties,omitempty" yaml:"properties,omitempty"`
	CurrentStyle Label            `json:"currentStyle,omitempty" yaml:"currentStyle,omitempty"`
}

// Property returns the named property. "text", "id" and "currentStyle"
// (alias "style") read the paragraph fields; anything else reads the
// Properties map. snake_case names fall back to their camelCase form, so
// "text_case" finds "textCase". A missing property is Null.
func (p Paragraph) Property(name string) Value {
	switch name {
	case PropText:
		return String(p.Text)
	case PropID:
		return String(p.ID)
	case PropCurrentStyle, PropStyle:
		if p.CurrentStyle == "" {
			return Null
		}
		return String(string(p.CurrentStyle))
	}
	if v, ok := p.Properties[name]; ok {
		return v
	}
	if strings.Contains(name, "_") {
		if v, ok := p.Properties[CanonicalProperty(name)]; ok {
			return v
		}
	}
	return Null
}

// CanonicalProperty converts a snake_case property name to camelCase.
// Names without underscores are returned unchanged.
func CanonicalProperty(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Label is a paragraph style name.
type Label string

const (
	LabelTitle         Label = "Title"
	LabelHeading1      Label = "Heading 1"
	LabelHeading2      Label = "Heading 2"
	LabelHeading3      Label = "Heading 3"
	LabelHeading4      Label = "Heading 4"
	LabelHeading5      Label = "Heading 5"
	LabelHeading6      Label = "Heading 6"
	LabelBodyText      Label = "Body Text"
	LabelListParagraph Label = "List Paragraph"
	LabelNormal        Label = "Normal"
)

// KnownLabels lists the style vocabulary in display order.
var KnownLabels = []Label{
	LabelTitle,
	LabelHeading1, LabelHeading2, LabelHeading3,
	LabelHeading4, LabelHeading5, LabelHeading6,
	LabelBodyText, LabelListParagraph, LabelNormal,
}

// HeadingLabel returns the label for a heading level (1-6).
func HeadingLabel(level int) Label {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return Label(fmt.Sprintf("Heading %d", level))
}

// HeadingLevel returns 1-6 for heading labels (Title counts as 1), else 0.
func (l Label) HeadingLevel() int {
	if l == LabelTitle {
		return 1
	}
	rest, ok := strings.CutPrefix(string(l), "Heading ")
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}

// ParseLabel matches s against KnownLabels ignoring case and surrounding
// space, so "heading 2" and "BODY TEXT" resolve to their canonical labels.
func ParseLabel(s string) (Label, bool) {
	s = strings.TrimSpace(s)
	for _, l := range KnownLabels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// IsList reports whether l is the list paragraph style.
func (l Label) IsList() bool { return l == LabelListParagraph }

// Action is what a classification decides: a Label, or FILTER.
type Action string

// ActionFilter drops the paragraph from the output.
const ActionFilter Action = "FILTER"

// LabelAction wraps a label as an Action.
func LabelAction(l Label) Action { return Action(l) }

// IsFilter reports whether a is the FILTER sentinel.
func (a Action) IsFilter() bool { return a == ActionFilter }

// Label returns the style label of a non-filter action.
func (a Action) Label() Label {
	if a.IsFilter() {
		return ""
	}
	return Label(a)
}

// Source identifies which stage produced a decision.
type Source string

const (
	SourceFilter     Source = "filter"
	SourceClassifier Source = "classifier"
	SourceOriginal   Source = "original"
)

// Labeled is a paragraph after filtering and classification.
// Excluded is the single exclusion signal: it is set both when the
// paragraph filter drops a paragraph and when a classifier returns FILTER.
type Labeled struct {
	Paragraph Paragraph `json:"paragraph"`
	Label     Label     `json:"label,omitempty"`
	Excluded  bool      `json:"excluded"`
	Reason    string    `json:"reason,omitempty"`
	Source    Source    `json:"source"`
}

// Document is a labeled paragraph stream handed to renderers.
type Document struct {
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path"`
	Paragraphs []Labeled `json:"paragraphs"`
}

// Kept returns the paragraphs that were not excluded, in order.
func (d Document) Kept() []Labeled {
	kept := make([]Labeled, 0, len(d.Paragraphs))
	for _, p := range d.Paragraphs {
		if !p.Excluded {
			kept = append(kept, p)
		}
	}
	return kept
}

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Reader turns raw document bytes into paragraphs. name is used for format
// detection (its extension) and for paragraph ids.
type Reader interface {
	Read(ctx context.Context, name string, data []byte) ([]Paragraph, error)
}

// Normalizer cleans up paragraph text before filtering and classification.
type Normalizer interface {
	Normalize(text string) string
}

// Filter decides whether a paragraph is structural noise.
type Filter interface {
	// Check reports whether p should be dropped and why.
	Check(p Paragraph) (reason string, drop bool)
}

// Classifier assigns an Action to a paragraph. ok is false when the
// classifier has no opinion, in which case the paragraph keeps its
// original style.
type Classifier interface {
	Classify(ctx context.Context, p Paragraph) (action Action, ok bool, err error)
}

// Renderer converts a labeled document into a final output format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".docx").
	Extension() string
}
