// Package export renders receivables data into downloadable formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/odyssey-erp/receivables/internal/receivables"
)

// DetailHeader is the header row of the top-client detail CSV.
var DetailHeader = []string{"Client", "Document", "Date", "Due", "Amount", "Balance", "Origin"}

// WriteDetailCSV serialises top-client invoice details. Commas inside free
// text are replaced by spaces so that naive consumers can split on commas.
func WriteDetailCSV(w io.Writer, rows []receivables.DetailRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(DetailHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			stripCommas(row.Client),
			row.Document,
			row.Date,
			row.Due,
			formatFloat(row.Amount),
			formatFloat(row.Balance),
			stripCommas(row.Origin),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReportCSV emits report rows using the given column schema.
func WriteReportCSV(w io.Writer, rows []receivables.ReportRow, columns []receivables.Column) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = cellString(col.Value(row))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return formatFloat(val)
	default:
		return ""
	}
}

func stripCommas(v string) string {
	return strings.ReplaceAll(v, ",", " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
