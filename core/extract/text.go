// Package extract — plain text and JSON readers.
package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
)

// TextReader emits one paragraph per non-empty line.
type TextReader struct{}

// NewTextReader creates a TextReader.
func NewTextReader() *TextReader {
	return &TextReader{}
}

// Read splits data into lines.
func (r *TextReader) Read(ctx context.Context, name string, data []byte) ([]core.Paragraph, error) {
	var paragraphs []core.Paragraph
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, core.Paragraph{
			ID:   fmt.Sprintf("%s#%d", name, len(paragraphs)+1),
			Text: line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return paragraphs, nil
}

// JSONReader reads paragraph records, either a bare array or an object
// with a "paragraphs" (or rule-trainer "elements") array.
type JSONReader struct{}

// NewJSONReader creates a JSONReader.
func NewJSONReader() *JSONReader {
	return &JSONReader{}
}

type paragraphRecord struct {
	ID           string                     `json:"id"`
	Text         string                     `json:"text"`
	Properties   map[string]json.RawMessage `json:"properties"`
	CurrentStyle core.Label                 `json:"currentStyle"`
	Style        core.Label                 `json:"style"`
}

type paragraphEnvelope struct {
	Paragraphs []paragraphRecord `json:"paragraphs"`
	Elements   []paragraphRecord `json:"elements"`
}

// Read decodes paragraph records.
func (r *JSONReader) Read(ctx context.Context, name string, data []byte) ([]core.Paragraph, error) {
	var records []paragraphRecord
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding paragraphs: %w", err)
		}
	} else {
		var env paragraphEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decoding paragraphs: %w", err)
		}
		records = env.Paragraphs
		if records == nil {
			records = env.Elements
		}
	}

	paragraphs := make([]core.Paragraph, 0, len(records))
	for i, rec := range records {
		p := core.Paragraph{
			ID:           rec.ID,
			Text:         rec.Text,
			Properties:   scalarProperties(rec.Properties),
			CurrentStyle: rec.CurrentStyle,
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s#%d", name, i+1)
		}
		if p.CurrentStyle == "" {
			p.CurrentStyle = rec.Style
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs, nil
}

// scalarProperties keeps the scalar entries of a decoded property map under
// their camelCase names. Lists and objects (colors, positions) are dropped.
func scalarProperties(raw map[string]json.RawMessage) map[string]core.Value {
	if len(raw) == 0 {
		return nil
	}
	props := make(map[string]core.Value, len(raw))
	for k, msg := range raw {
		var v core.Value
		if err := json.Unmarshal(msg, &v); err != nil {
			continue
		}
		props[core.CanonicalProperty(k)] = v
	}
	return props
}
