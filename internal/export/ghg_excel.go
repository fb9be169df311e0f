// Package export renders a city's GHG inventory as downloadable files.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/eintrusts/MahacapV2/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	GHGSheetName = "GHG Inventory"
	NoGHGData    = "No GHG data available"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	PDFContentType  = "application/pdf"
)

// GHGHeader is the fixed column set of the inventory table.
var GHGHeader = []string{"Sector", "tCO2e"}

// Filename builds the download name, e.g. "Navi_Mumbai_ghg_inventory.xlsx".
func Filename(city, ext string) string {
	name := strings.Join(strings.Fields(city), "_")
	return fmt.Sprintf("%s_ghg_inventory.%s", name, strings.TrimPrefix(ext, "."))
}

// GHGWorkbook renders the inventory of rec as an xlsx workbook.
func GHGWorkbook(city string, rec domain.CityRecord) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly below

	index, err := f.NewSheet(GHGSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   city + " - GHG Inventory",
		Creator: "MahaCAP",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range GHGHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(GHGSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(GHGSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(GHGSheetName, "A", "A", 24); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(GHGSheetName, "B", "B", 16); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	rows := rec.GHGRows()
	if len(rows) == 0 {
		if err := f.SetCellValue(GHGSheetName, "A2", NoGHGData); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write empty row: %w", err)
		}
		if err := f.MergeCell(GHGSheetName, "A2", "B2"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to merge empty row: %w", err)
		}
	}

	var total float64
	for i, r := range rows {
		row := i + 2 // row 1 is the header
		if err := setCellValue(f, GHGSheetName, 1, row, string(r.Sector)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set cell value at row %d: %w", row, err)
		}
		if err := setCellValue(f, GHGSheetName, 2, row, r.TCO2e); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set cell value at row %d: %w", row, err)
		}
		total += r.TCO2e
	}
	if len(rows) > 0 {
		row := len(rows) + 2
		if err := setCellValue(f, GHGSheetName, 1, row, "Total"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set total row: %w", err)
		}
		if err := setCellValue(f, GHGSheetName, 2, row, total); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set total row: %w", err)
		}
	}

	if err := f.SetPanes(GHGSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
