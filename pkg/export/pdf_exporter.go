package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfUsableWidth = 277.0

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the dataset title, summary lines and
// table. Header cells repeat on every page.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	colWidth := pdfUsableWidth / float64(len(data.Headers))

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if len(data.Summary) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, line := range data.Summary {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	header()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, 6, tr(cell), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
