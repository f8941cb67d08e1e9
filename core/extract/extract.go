// Package extract implements the Reader interface for every supported
// input format. MultiReader picks a format reader by file extension, then
// normalizes each paragraph's text and derives its properties.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/normalize"
)

// ErrUnsupportedFormat is returned for inputs no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// MultiReader dispatches to a format reader by extension.
type MultiReader struct {
	readers    map[string]core.Reader
	normalizer core.Normalizer
	logger     *zap.Logger
}

// Option configures a MultiReader.
type Option func(*MultiReader)

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n core.Normalizer) Option {
	return func(m *MultiReader) { m.normalizer = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *MultiReader) { m.logger = l }
}

// WithReader registers r for an extension such as ".md".
func WithReader(ext string, r core.Reader) Option {
	return func(m *MultiReader) { m.readers[strings.ToLower(ext)] = r }
}

// New creates a MultiReader for .docx, .html, .htm, .txt and .json.
func New(opts ...Option) *MultiReader {
	html := NewHTMLReader()
	m := &MultiReader{
		readers: map[string]core.Reader{
			".docx": NewDocxReader(),
			".html": html,
			".htm":  html,
			".txt":  NewTextReader(),
			".json": NewJSONReader(),
		},
		normalizer: normalize.New(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Supports reports whether name has a registered extension.
func (m *MultiReader) Supports(name string) bool {
	_, ok := m.readers[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the registered extensions, sorted.
func (m *MultiReader) Extensions() []string {
	exts := make([]string, 0, len(m.readers))
	for ext := range m.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Read parses data with the reader registered for name's extension.
// Paragraphs whose text normalizes to nothing are kept so the filter can
// account for them.
func (m *MultiReader) Read(ctx context.Context, name string, data []byte) ([]core.Paragraph, error) {
	ext := strings.ToLower(filepath.Ext(name))
	r, ok := m.readers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	raw, err := r.Read(ctx, filepath.Base(name), data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	out := make([]core.Paragraph, 0, len(raw))
	for _, p := range raw {
		p.Text = m.normalizer.Normalize(p.Text)
		out = append(out, Enrich(p))
	}
	m.logger.Debug("document read",
		zap.String("name", name),
		zap.String("format", ext),
		zap.Int("paragraphs", len(out)),
	)
	return out, nil
}
