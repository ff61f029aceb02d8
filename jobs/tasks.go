package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportExport renders the receivables report to a file or sheet.
	TaskReportExport = "receivables:report_export"
	// TaskERPPing checks that the ERP accepts the configured credentials.
	TaskERPPing = "erp:ping"
)

// Export formats accepted by TaskReportExport.
const (
	FormatXLSX   = "xlsx"
	FormatCSV    = "csv"
	FormatSheets = "sheets"
)

// ReportExportPayload describes a report export run. Dates use YYYY-MM-DD and
// may be empty.
type ReportExportPayload struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Customer string `json:"customer,omitempty"`
	Accounts string `json:"accounts,omitempty"`
	Format   string `json:"format,omitempty"`
}

func (p *ReportExportPayload) normalise() error {
	p.Format = strings.ToLower(strings.TrimSpace(p.Format))
	switch p.Format {
	case "":
		p.Format = FormatXLSX
	case FormatXLSX, FormatCSV, FormatSheets:
	default:
		return fmt.Errorf("unsupported export format %q", p.Format)
	}
	return nil
}

// NewReportExportTask constructs a report export task.
func NewReportExportTask(payload ReportExportPayload) (*asynq.Task, error) {
	if err := payload.normalise(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportExport, data), nil
}

// NewERPPingTask constructs an ERP ping task.
func NewERPPingTask() *asynq.Task {
	return asynq.NewTask(TaskERPPing, nil)
}
