// Package extract — DOCX reader.
// Reads word/document.xml from the ZIP container and emits one paragraph per
// <w:p>, carrying the paragraph style and the formatting of its first text
// run. word/styles.xml, when present, maps style ids to display names.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/parapipe/core"
)

const (
	docxDocumentPart = "word/document.xml"
	docxStylesPart   = "word/styles.xml"
)

// DocxReader reads WordprocessingML documents.
type DocxReader struct{}

// NewDocxReader creates a DocxReader.
func NewDocxReader() *DocxReader {
	return &DocxReader{}
}

// runFormat is the formatting of one <w:r>.
type runFormat struct {
	bold, italic, underline bool
	fontSize                float64 // points; 0 when unset
	fontName                string
}

// Read parses a .docx archive.
func (r *DocxReader) Read(ctx context.Context, name string, data []byte) ([]core.Paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile, stylesFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case docxDocumentPart:
			docFile = f
		case docxStylesPart:
			stylesFile = f
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%s not found in archive", docxDocumentPart)
	}

	styleNames := map[string]string{}
	if stylesFile != nil {
		if styleNames, err = readStyleNames(stylesFile); err != nil {
			return nil, fmt.Errorf("reading styles: %w", err)
		}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return decodeDocument(ctx, rc, name, styleNames)
}

func decodeDocument(ctx context.Context, rd io.Reader, name string, styleNames map[string]string) ([]core.Paragraph, error) {
	decoder := xml.NewDecoder(rd)

	var (
		paragraphs []core.Paragraph
		text       strings.Builder
		inPara     bool
		inRun      bool
		inRunProps bool
		inText     bool
		styleID    string
		alignment  string
		run        runFormat
		first      *runFormat
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				text.Reset()
				styleID, alignment, first = "", "", nil
			case "pStyle":
				if inPara {
					styleID = attr(t, "val")
				}
			case "jc":
				if inPara && !inRun {
					alignment = docxAlignment(attr(t, "val"))
				}
			case "r":
				inRun = true
				run = runFormat{}
			case "rPr":
				inRunProps = inRun
			case "b":
				if inRunProps {
					run.bold = onOff(t)
				}
			case "i":
				if inRunProps {
					run.italic = onOff(t)
				}
			case "u":
				if inRunProps {
					v := attr(t, "val")
					run.underline = v != "none" && v != "0" && v != "false"
				}
			case "sz":
				if inRunProps {
					if half, err := strconv.ParseFloat(attr(t, "val"), 64); err == nil {
						run.fontSize = half / 2
					}
				}
			case "rFonts":
				if inRunProps {
					run.fontName = attr(t, "ascii")
				}
			case "t":
				inText = inPara
			case "tab", "br", "cr":
				if inPara && inRun {
					text.WriteByte(' ')
				}
			}

		case xml.CharData:
			if inText {
				text.Write(t)
				if first == nil && strings.TrimSpace(string(t)) != "" {
					f := run
					first = &f
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inRunProps = false
			case "r":
				inRun = false
			case "p":
				if !inPara {
					continue
				}
				inPara = false
				body := strings.TrimSpace(text.String())
				if body == "" {
					continue
				}
				p := core.Paragraph{
					ID:           fmt.Sprintf("%s#%d", name, len(paragraphs)+1),
					Text:         body,
					CurrentStyle: docxStyleLabel(styleID, styleNames),
					Properties:   map[string]core.Value{},
				}
				if alignment != "" {
					p.Properties[PropAlignment] = core.String(alignment)
				}
				if first != nil {
					p.Properties[PropIsBold] = core.Bool(first.bold)
					p.Properties[PropIsItalic] = core.Bool(first.italic)
					p.Properties[PropIsUnderline] = core.Bool(first.underline)
					if first.fontSize > 0 {
						p.Properties[PropFontSize] = core.Number(first.fontSize)
					}
					if first.fontName != "" {
						p.Properties[PropFontName] = core.String(first.fontName)
					}
				}
				paragraphs = append(paragraphs, p)
			}
		}
	}
	return paragraphs, nil
}

// readStyleNames maps w:styleId to the style's display name.
func readStyleNames(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	names := map[string]string{}
	decoder := xml.NewDecoder(rc)
	var current string
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "style":
				current = attr(t, "styleId")
			case "name":
				if current != "" {
					names[current] = attr(t, "val")
				}
			}
		case xml.EndElement:
			if t.Name.Local == "style" {
				current = ""
			}
		}
	}
}

// docxStyleLabel maps a paragraph style to a Label.
// e.g. "Heading1" → Heading 1, "ListParagraph" → List Paragraph.
func docxStyleLabel(styleID string, names map[string]string) core.Label {
	if styleID == "" {
		return ""
	}
	name := styleID
	if n, ok := names[styleID]; ok && n != "" {
		name = n
	}
	compact := strings.ToLower(strings.ReplaceAll(name, " ", ""))

	switch compact {
	case "title":
		return core.LabelTitle
	case "listparagraph":
		return core.LabelListParagraph
	case "bodytext":
		return core.LabelBodyText
	case "normal":
		return core.LabelNormal
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(compact, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return core.HeadingLabel(int(rest[0] - '0'))
			}
		}
	}
	return core.Label(name)
}

func docxAlignment(val string) string {
	switch val {
	case "center":
		return "center"
	case "right", "end":
		return "right"
	case "both", "distribute":
		return "justify"
	default:
		return "left"
	}
}

// onOff reads a WordprocessingML toggle such as <w:b/> or <w:b w:val="0"/>.
func onOff(t xml.StartElement) bool {
	switch attr(t, "val") {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
