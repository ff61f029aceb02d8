package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/receivables/internal/receivables"
)

// ReportSheet is the worksheet name of the report workbook.
const ReportSheet = "Receivables"

const (
	minColumnWidth = 12
	maxColumnWidth = 40
)

// WriteReportXLSX renders report rows to a single-sheet workbook with a bold
// header row.
func WriteReportXLSX(w io.Writer, rows []receivables.ReportRow, columns []receivables.Column) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(ReportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]any, len(columns))
	for r, row := range rows {
		for i, col := range columns {
			record[i] = col.Value(row)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReportSheet, cell, &record); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if len(columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ReportSheet, "A1", last, bold); err != nil {
			return err
		}
	}

	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ReportSheet, name, name, columnWidth(col.Header)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func columnWidth(header string) float64 {
	width := len(header) + 2
	if width < minColumnWidth {
		width = minColumnWidth
	}
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return float64(width)
}
