package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/jobs"
)

type stubService struct {
	pingErr error
	dash    receivables.Dashboard
	rows    []receivables.ReportRow
	filter  receivables.ReportFilter
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) Dashboard(ctx context.Context, filter receivables.InvoiceFilter) (receivables.Dashboard, error) {
	return s.dash, nil
}

func (s *stubService) GetReportLines(ctx context.Context, filter receivables.ReportFilter) ([]receivables.ReportRow, error) {
	s.filter = filter
	return s.rows, nil
}

func (s *stubService) IncludesPaymentState() bool { return false }

type stubQueue struct {
	enqueued []*asynq.Task
	info     *asynq.QueueInfo
}

func (s *stubQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.enqueued = append(s.enqueued, task)
	return &asynq.TaskInfo{ID: "t-1", Queue: jobs.QueueDefault, Type: task.Type()}, nil
}

func (s *stubQueue) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, nil
}

func (s *stubQueue) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func (s *stubQueue) Close() error { return nil }

func execute(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(deps)
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func serviceDeps(svc ReportService) Deps {
	return Deps{Service: func() (ReportService, error) { return svc, nil }}
}

func TestPingCommand(t *testing.T) {
	out, err := execute(t, serviceDeps(&stubService{}), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ERP connection OK\n", out)

	_, err = execute(t, serviceDeps(&stubService{pingErr: odoo.ErrAuthentication}), "ping")
	assert.ErrorIs(t, err, odoo.ErrAuthentication)
}

func TestKPIsCommand(t *testing.T) {
	svc := &stubService{dash: receivables.Dashboard{
		KpiSet: receivables.KpiSet{TotalInvoices: 2, OverdueAmount: 100, CurrentAmount: 50, AvgOverdueDays: 152},
		AsOf:   "2024-06-01",
		Top10:  receivables.RankingResult{Labels: []string{"Acme"}, Values: []float64{100}},
	}}

	out, err := execute(t, serviceDeps(svc), "kpis")
	require.NoError(t, err)
	assert.Contains(t, out, "Overdue")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "1. Acme")

	out, err = execute(t, serviceDeps(svc), "kpis", "--json")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, float64(152), body["avg_overdue_days"])

	_, err = execute(t, serviceDeps(svc), "kpis", "--start", "2024-05-01", "--end", "2024-04-01")
	assert.Error(t, err)
}

func TestReportCommandWritesCSV(t *testing.T) {
	svc := &stubService{rows: []receivables.ReportRow{{Date: "2024-03-01", MoveName: "INV/001"}}}
	path := filepath.Join(t.TempDir(), "out.csv")

	out, err := execute(t, serviceDeps(svc), "report", "--out", path, "--accounts", "1212", "--start", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 rows")
	assert.Equal(t, "1212", svc.filter.Accounts)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,"))
}

func TestReportCommandRejectsUnknownExtension(t *testing.T) {
	_, err := execute(t, serviceDeps(&stubService{}), "report", "--out", "report.pdf")
	assert.Error(t, err)

	_, err = execute(t, serviceDeps(&stubService{}), "report")
	assert.Error(t, err)
}

func TestJobsTriggerAndInspect(t *testing.T) {
	queue := &stubQueue{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3}}
	deps := Deps{Jobs: func() (*JobsCLI, error) { return &JobsCLI{client: queue, inspector: queue}, nil }}

	out, err := execute(t, deps, "jobs", "trigger", jobs.TaskReportExport, "--format", "csv", "-q", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued "+jobs.TaskReportExport)
	require.Len(t, queue.enqueued, 1)
	assert.JSONEq(t, `{"customer":"acme","format":"csv"}`, string(queue.enqueued[0].Payload()))

	_, err = execute(t, deps, "jobs", "trigger", jobs.TaskERPPing)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskERPPing, queue.enqueued[1].Type())

	_, err = execute(t, deps, "jobs", "trigger", "mail:send")
	assert.Error(t, err)

	out, err = execute(t, deps, "jobs", "inspect")
	require.NoError(t, err)
	var stats QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Pending)
}

func TestJobsCLINotConfigured(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskERPPing, jobs.ReportExportPayload{})
	assert.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)

	deps := Deps{Jobs: func() (*JobsCLI, error) { return nil, errors.New("redis down") }}
	_, err = execute(t, deps, "jobs", "inspect")
	assert.EqualError(t, err, "redis down")
}
