// Package output handles file naming and writing for parapipe outputs.
// A single input is written flat as <base>_formatted<ext>; in --all mode the
// input tree is mirrored under the output directory.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Suffix is appended to every output base name so outputs never overwrite
// their inputs.
const Suffix = "_formatted"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer places rendered documents under a fixed directory.
type Writer struct {
	dir string
}

// New creates a Writer for dir, creating it when missing. An empty dir
// means the working directory.
func New(dir string) (*Writer, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the directory outputs are written to.
func (w *Writer) Dir() string { return w.dir }

// WriteOnly writes the output of a single input.
// Example: reports/handbook.docx → <out>/handbook_formatted.md,
// https://example.com/docs/intro → <out>/example_com_docs_intro_formatted.md
func (w *Writer) WriteOnly(input string, data []byte, ext string) (string, error) {
	return w.put(FlatName(input)+Suffix+ext, data)
}

// WriteAll writes output for --all mode, keeping input's position under
// root. Example: root/policies/travel.docx → <out>/policies/travel_formatted.docx
func (w *Writer) WriteAll(root, input string, data []byte, ext string) (string, error) {
	rel, err := filepath.Rel(root, input)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under %s", input, root)
	}
	return w.put(strings.TrimSuffix(rel, filepath.Ext(rel))+Suffix+ext, data)
}

// put writes data to rel inside the output directory.
func (w *Writer) put(rel string, data []byte) (string, error) {
	target := filepath.Join(w.dir, rel)
	if parent := filepath.Dir(target); parent != w.dir {
		if err := os.MkdirAll(parent, dirPerm); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", parent, err)
		}
	}
	if err := os.WriteFile(target, data, filePerm); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	return target, nil
}

// FlatName returns the output base name for an input path or URL, without
// extension.
func FlatName(input string) string {
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return urlName(u)
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// urlName flattens host and path into one name.
// Example: https://example.com/docs/intro.html → example_com_docs_intro
func urlName(u *url.URL) string {
	name := u.Host
	if p := strings.Trim(u.Path, "/"); p != "" {
		name += "/" + strings.TrimSuffix(p, filepath.Ext(p))
	}
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, name)
}
