package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/eintrusts/MahacapV2/internal/domain"

	"github.com/go-pdf/fpdf"
)

// GHGReport renders the inventory of rec as a one-page PDF table.
func GHGReport(city string, rec domain.CityRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetTitle(city+" - GHG Inventory", true)
	pdf.SetCreator("MahaCAP", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr(city+" - GHG Inventory"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	const sectorW, valueW, rowH = 90.0, 50.0, 8.0
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 243, 255)
	pdf.CellFormat(sectorW, rowH, GHGHeader[0], "1", 0, "C", true, 0, "")
	pdf.CellFormat(valueW, rowH, GHGHeader[1], "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	rows := rec.GHGRows()
	if len(rows) == 0 {
		pdf.CellFormat(sectorW+valueW, rowH, NoGHGData, "1", 1, "C", false, 0, "")
	}
	var total float64
	for _, r := range rows {
		pdf.CellFormat(sectorW, rowH, string(r.Sector), "1", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, rowH, formatTCO2e(r.TCO2e), "1", 1, "R", false, 0, "")
		total += r.TCO2e
	}
	if len(rows) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(sectorW, rowH, "Total", "1", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, rowH, formatTCO2e(total), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTCO2e(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
