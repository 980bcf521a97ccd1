package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF lays the table out as an A4 recap sheet with the school header
// and numbered page footers.
func RenderPDF(table Table, title string) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Halaman %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 8, "Rumah Tahfidz", "", 1, "C", false, 0, "")
	if title != "" {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, title, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Dibuat "+time.Now().UTC().Format("2 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	width := 186.0 / float64(len(table.Columns))
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(225, 235, 225)
	for _, column := range table.Columns {
		pdf.CellFormat(width, 7, column, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	pdf.SetFillColor(245, 247, 245)
	fill := false
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		for _, cell := range row {
			pdf.CellFormat(width, 6, cell, "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
