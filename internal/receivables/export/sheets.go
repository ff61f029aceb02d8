package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/odyssey-erp/receivables/internal/receivables"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SheetsWriter appends report rows to a Google spreadsheet.
type SheetsWriter struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

// LoadGoogleCredentials reads service account credentials from
// GOOGLE_APPLICATION_CREDENTIALS (a file) or GOOGLE_CREDENTIALS (inline JSON).
func LoadGoogleCredentials() ([]byte, error) {
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}
	if inline := os.Getenv("GOOGLE_CREDENTIALS"); inline != "" {
		return []byte(inline), nil
	}
	return nil, errors.New("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set")
}

// NewSheetsWriter authenticates with a service account and targets the
// spreadsheet identified by sheetURL.
func NewSheetsWriter(ctx context.Context, sheetURL string, credentials []byte, logger *slog.Logger) (*SheetsWriter, error) {
	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}
	cfg, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsWriterWithService(svc, id, logger), nil
}

// NewSheetsWriterWithService wraps an existing Sheets API client.
func NewSheetsWriterWithService(svc *sheets.Service, spreadsheetID string, logger *slog.Logger) *SheetsWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsWriter{service: svc, spreadsheetID: spreadsheetID, logger: logger.With(slog.String("component", "sheets"))}
}

// SpreadsheetID extracts the document id from a spreadsheet URL.
func SpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL %q", url)
	}
	return matches[1], nil
}

// AppendReport appends rows below the existing content of sheetName, creating
// the sheet and its header row when needed.
func (s *SheetsWriter) AppendReport(ctx context.Context, sheetName string, rows []receivables.ReportRow, columns []receivables.Column) (int, error) {
	if len(columns) == 0 {
		return 0, errors.New("sheets: no columns")
	}
	lastColumn, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return 0, err
	}
	if err := s.ensureSheetWithHeaders(ctx, sheetName, lastColumn, columns); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		record := make([]interface{}, len(columns))
		for i, col := range columns {
			record[i] = col.Value(row)
		}
		values = append(values, record)
	}

	_, err = s.service.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, lastColumn),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append values: %w", err)
	}
	s.logger.Info("rows appended", slog.String("sheet", sheetName), slog.Int("rows", len(values)))
	return len(values), nil
}

func (s *SheetsWriter) ensureSheetWithHeaders(ctx context.Context, sheetName, lastColumn string, columns []receivables.Column) error {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			exists = true
			break
		}
	}
	if !exists {
		s.logger.Info("creating sheet", slog.String("sheet", sheetName))
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}}},
		}
		if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, lastColumn)
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get headers: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, headerRange, &sheets.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	return nil
}
