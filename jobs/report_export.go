package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/receivables/internal/jobs"
	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
)

// ReportSource produces denormalised report rows.
type ReportSource interface {
	GetReportLines(ctx context.Context, filter receivables.ReportFilter) ([]receivables.ReportRow, error)
	IncludesPaymentState() bool
}

// SheetAppender appends report rows to a spreadsheet tab.
type SheetAppender interface {
	AppendReport(ctx context.Context, sheetName string, rows []receivables.ReportRow, columns []receivables.Column) (int, error)
}

// ReportExportConfig wires the export job.
type ReportExportConfig struct {
	Source    ReportSource
	Sheets    SheetAppender
	SheetName string
	Dir       string
	Store     *ExportStore
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// ReportExportJob writes the receivables report to disk or a Google Sheet.
type ReportExportJob struct {
	source    ReportSource
	sheets    SheetAppender
	sheetName string
	dir       string
	store     *ExportStore
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
	clock     func() time.Time
	newID     func() string
}

// NewReportExportJob initialises the export handler.
func NewReportExportJob(cfg ReportExportConfig) *ReportExportJob {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = export.ReportSheet
	}
	return &ReportExportJob{
		source:    cfg.Source,
		sheets:    cfg.Sheets,
		sheetName: sheetName,
		dir:       cfg.Dir,
		store:     cfg.Store,
		logger:    logger.With(slog.String("job", TaskReportExport)),
		metrics:   cfg.Metrics,
		clock:     func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

// Handle executes one export.
func (j *ReportExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.source == nil {
		return errors.New("report export: handler not configured")
	}
	var payload ReportExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("report export: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	filter, err := payload.filter()
	if err != nil {
		return fmt.Errorf("report export: %v: %w", err, asynq.SkipRetry)
	}

	_, err = j.Run(ctx, payload, filter)
	return err
}

// Run performs the export and records it in the store.
func (j *ReportExportJob) Run(ctx context.Context, payload ReportExportPayload, filter receivables.ReportFilter) (ExportRun, error) {
	tracker := j.metrics.Track(TaskReportExport)
	run := ExportRun{
		ID:        j.newID(),
		Format:    payload.Format,
		Start:     payload.Start,
		End:       payload.End,
		Customer:  payload.Customer,
		StartedAt: j.clock(),
	}
	logger := j.logger.With(slog.String("run_id", run.ID), slog.String("format", run.Format))
	logger.Info("starting report export")

	err := j.export(ctx, &run, filter)
	run.FinishedAt = j.clock()
	if err != nil {
		run.Error = err.Error()
		logger.Error("report export failed", slog.Any("error", err))
	} else {
		j.metrics.AddExportedRows(run.Format, run.Rows)
		logger.Info("report export finished", slog.Int("rows", run.Rows), slog.String("location", run.Location))
	}
	if recErr := j.store.Record(ctx, run); recErr != nil {
		logger.Warn("record export run", slog.Any("error", recErr))
	}
	return run, tracker.End(err)
}

func (j *ReportExportJob) export(ctx context.Context, run *ExportRun, filter receivables.ReportFilter) error {
	rows, err := j.source.GetReportLines(ctx, filter)
	if err != nil {
		return err
	}
	run.Rows = len(rows)
	columns := receivables.Columns(j.source.IncludesPaymentState())

	switch run.Format {
	case FormatSheets:
		if j.sheets == nil {
			return fmt.Errorf("report export: google sheet not configured: %w", asynq.SkipRetry)
		}
		if _, err := j.sheets.AppendReport(ctx, j.sheetName, rows, columns); err != nil {
			return err
		}
		run.Location = "sheet:" + j.sheetName
		return nil
	case FormatCSV:
		return j.writeFile(run, func(w io.Writer) error { return export.WriteReportCSV(w, rows, columns) })
	default:
		return j.writeFile(run, func(w io.Writer) error { return export.WriteReportXLSX(w, rows, columns) })
	}
}

// writeFile writes through a temporary file so readers never observe a
// partial export.
func (j *ReportExportJob) writeFile(run *ExportRun, write func(io.Writer) error) error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("report export: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(j.dir, ".export-*")
	if err != nil {
		return fmt.Errorf("report export: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("report export: write %s: %w", run.Format, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report export: close temp file: %w", err)
	}
	target := filepath.Join(j.dir, run.ID+"."+run.Format)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("report export: rename: %w", err)
	}
	run.Location = target
	return nil
}

func (p *ReportExportPayload) filter() (receivables.ReportFilter, error) {
	if err := p.normalise(); err != nil {
		return receivables.ReportFilter{}, err
	}
	start, err := payloadDate("start", p.Start)
	if err != nil {
		return receivables.ReportFilter{}, err
	}
	end, err := payloadDate("end", p.End)
	if err != nil {
		return receivables.ReportFilter{}, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return receivables.ReportFilter{}, errors.New("end precedes start")
	}
	return receivables.ReportFilter{Start: start, End: end, Customer: p.Customer, Accounts: p.Accounts}, nil
}

func payloadDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(odoo.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q", name, value)
	}
	return t, nil
}
