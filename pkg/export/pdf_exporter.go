package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFontFamily = "timetable"

// PDFExporter renders datasets into a landscape table.
// Core PDF fonts only cover Latin-1; set FontPath to a TTF to render Hangul labels.
type PDFExporter struct {
	FontPath string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{FontPath: fontPath}
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file suffix of rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a PDF document with the dataset title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if e.FontPath != "" {
		pdf.AddUTF8Font(unicodeFontFamily, "", e.FontPath)
		pdf.AddUTF8Font(unicodeFontFamily, "B", e.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load pdf font: %w", err)
		}
		family = unicodeFontFamily
		translate = func(s string) string { return s }
	}
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, translate(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	firstCol := 20.0
	colWidth := (width - left - right - firstCol) / float64(max(len(data.Headers)-1, 1))
	widthOf := func(i int) float64 {
		if i == 0 {
			return firstCol
		}
		return colWidth
	}

	pdf.SetFont(family, "B", 10)
	pdf.SetFillColor(230, 236, 245)
	for i, header := range data.Headers {
		pdf.CellFormat(widthOf(i), 9, translate(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 10)
	for _, row := range data.Rows {
		for i := range data.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widthOf(i), 12, translate(value), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
