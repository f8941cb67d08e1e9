// Package render — PDF renderer.
// Lays out kept paragraphs with gofpdf: headings at variable font sizes,
// list paragraphs as bullets and everything else as body text.
package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/parapipe/core"
)

// PDFRenderer renders a labeled document as a PDF.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts the kept paragraphs into PDF bytes.
func (r *PDFRenderer) Render(doc core.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	// Core fonts are cp1252; translate so accents and bullets survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.SourcePath != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+doc.SourcePath), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}

	for _, p := range doc.Kept() {
		text := tr(p.Paragraph.Text)
		switch {
		case p.Label == core.LabelTitle:
			renderHeading(pdf, text, 0)
		case p.Label.HeadingLevel() > 0:
			renderHeading(pdf, text, p.Label.HeadingLevel())
		case p.Label.IsList():
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetX(pdf.GetX() + 4)
			pdf.MultiCell(0, 5, tr("• ")+text, "", "L", false)
			pdf.Ln(1)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, text, "", "L", false)
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns ".pdf".
func (r *PDFRenderer) Extension() string { return ".pdf" }

// headingSizes are point sizes indexed by heading level; Title uses level 0.
var headingSizes = [...]float64{20, 18, 15, 13, 12, 11, 10}

// renderHeading writes text in bold at the size for level.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size := headingSizes[len(headingSizes)-1]
	if level >= 0 && level < len(headingSizes) {
		size = headingSizes[level]
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, text, "", "L", false)
	pdf.Ln(2)
}
