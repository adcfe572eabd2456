package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin  = 10.0
	lineHeight  = 4.5
	headerSize  = 8.0
	bodySize    = 7.0
	firstColMin = 22.0
)

var toneFill = map[Tone][3]int{
	ToneInfo:    {219, 234, 254},
	ToneWarning: {254, 243, 199},
	ToneDanger:  {254, 202, 202},
}

// PDFExporter renders datasets into a tabular PDF. Wide tables switch to
// landscape automatically.
type PDFExporter struct {
	landscapeAbove int
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{landscapeAbove: 5}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) > e.landscapeAbove {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMargin, 15, pageMargin)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, _ := pdf.GetPageSize()
	widths := columnWidths(len(data.Headers), pageWidth-2*pageMargin)

	drawHeader := func() {
		pdf.SetFont("Arial", "B", headerSize)
		pdf.SetFillColor(229, 231, 235)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	drawHeader()

	pdf.SetFont("Arial", "", bodySize)
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for rowIdx, row := range data.Rows {
		height := rowHeight(pdf, data.Headers, widths, row, tr)
		if pdf.GetY()+height > pageHeight-bottom {
			pdf.AddPage()
			drawHeader()
			pdf.SetFont("Arial", "", bodySize)
		}
		x, y := pdf.GetXY()
		for i, header := range data.Headers {
			fill := false
			if rgb, ok := toneFill[data.Tone(rowIdx, header)]; ok {
				pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
				fill = true
			}
			style := "D"
			if fill {
				style = "FD"
			}
			pdf.Rect(x, y, widths[i], height, style)
			pdf.SetXY(x, y)
			pdf.MultiCell(widths[i], lineHeight, tr(row[header]), "", "L", false)
			x += widths[i]
		}
		pdf.SetXY(pageMargin, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths gives the first column a fixed share and splits the rest evenly.
func columnWidths(columns int, usable float64) []float64 {
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = usable
		return widths
	}
	first := usable / float64(columns)
	if first < firstColMin {
		first = firstColMin
	}
	rest := (usable - first) / float64(columns-1)
	widths[0] = first
	for i := 1; i < columns; i++ {
		widths[i] = rest
	}
	return widths
}

func rowHeight(pdf *gofpdf.Fpdf, headers []string, widths []float64, row map[string]string, tr func(string) string) float64 {
	lines := 1
	for i, header := range headers {
		// MultiCell pads each side by the cell margin.
		n := len(pdf.SplitLines([]byte(tr(row[header])), widths[i]-2))
		if n > lines {
			lines = n
		}
	}
	return float64(lines)*lineHeight + 1
}
