package receivableshttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
)

type stubService struct {
	dashboard  receivables.Dashboard
	ranking    receivables.RankingResult
	details    []receivables.DetailRow
	rows       []receivables.ReportRow
	err        error
	pingErr    error
	lastFilter receivables.InvoiceFilter
	lastReport receivables.ReportFilter
	lastN      int
}

func (s *stubService) Dashboard(ctx context.Context, filter receivables.InvoiceFilter) (receivables.Dashboard, error) {
	s.lastFilter = filter
	return s.dashboard, s.err
}

func (s *stubService) RankClients(ctx context.Context, filter receivables.InvoiceFilter, n int) (receivables.RankingResult, error) {
	s.lastFilter = filter
	s.lastN = n
	return s.ranking, s.err
}

func (s *stubService) ClientDetails(ctx context.Context, filter receivables.InvoiceFilter, n int) ([]receivables.DetailRow, error) {
	s.lastFilter = filter
	s.lastN = n
	return s.details, s.err
}

func (s *stubService) GetReportLines(ctx context.Context, filter receivables.ReportFilter) ([]receivables.ReportRow, error) {
	s.lastReport = filter
	return s.rows, s.err
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) IncludesPaymentState() bool { return false }

type stubPDF struct {
	data []byte
	err  error
	last export.DashboardPayload
}

func (s *stubPDF) RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error) {
	s.last = payload
	if s.data == nil {
		s.data = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("PDF"), 400)...)
	}
	return s.data, s.err
}

func newTestHandler(service *stubService, pdf PDFService) *Handler {
	handler := NewHandler(nil, service, pdf, Config{})
	handler.WithNow(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })
	return handler
}

func sampleService() *stubService {
	return &stubService{
		dashboard: receivables.Dashboard{
			KpiSet: receivables.KpiSet{TotalInvoices: 2, OverdueAmount: 100, CurrentAmount: 50, AvgOverdueDays: 152},
			AsOf:   "2024-06-01",
		},
		ranking: receivables.RankingResult{Labels: []string{"Acme", "Beta"}, Values: []float64{300, 100}},
		details: []receivables.DetailRow{{Client: "Acme", Document: "F001-1", Date: "2024-01-01", Due: "2024-02-01", Amount: 118, Balance: 100}},
		rows:    []receivables.ReportRow{{Date: "2024-03-01", MoveName: "INV/001", Partner: "Acme"}},
	}
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if !problem.Error {
		t.Fatalf("expected error flag in problem body: %s", rr.Body.String())
	}
	return problem
}

func TestKPIsSuccess(t *testing.T) {
	service := sampleService()
	rr := serve(newTestHandler(service, nil), "/api/kpis?start=2024-01-01&end=2024-03-31&q=acme")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["total_invoices"] != float64(2) || body["avg_overdue_days"] != float64(152) {
		t.Fatalf("unexpected kpis: %v", body)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !service.lastFilter.Start.Equal(want) || service.lastFilter.Customer != "acme" {
		t.Fatalf("unexpected filter %+v", service.lastFilter)
	}
}

func TestTopClients(t *testing.T) {
	service := sampleService()
	rr := serve(newTestHandler(service, nil), "/api/reports/top15")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body topResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Clients) != 2 || body.Clients[0] != "Acme" || body.Amounts[0] != 300 {
		t.Fatalf("unexpected ranking %+v", body)
	}
	if service.lastN != topClients {
		t.Fatalf("expected n=%d, got %d", topClients, service.lastN)
	}
}

func TestInvalidDateReturnsBadRequest(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/kpis?start=2024-13-01")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	problem := decodeProblem(t, rr)
	if !strings.Contains(problem.Detail, "start") {
		t.Fatalf("expected field name in detail, got %q", problem.Detail)
	}
}

func TestReversedRangeReturnsBadRequest(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/reports/data?start=2024-05-01&end=2024-04-01")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"configuration", &odoo.ConfigurationError{Missing: []string{"url"}}, http.StatusServiceUnavailable},
		{"authentication", fmt.Errorf("login: %w", odoo.ErrAuthentication), http.StatusBadGateway},
		{"upstream", fmt.Errorf("read: %w", odoo.ErrUpstream), http.StatusBadGateway},
		{"schema", fmt.Errorf("lines: %w", odoo.ErrSchemaIncompatible), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := sampleService()
			service.err = tc.err
			rr := serve(newTestHandler(service, nil), "/api/kpis")
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("unexpected content type %s", ct)
			}
			decodeProblem(t, rr)
		})
	}
}

func TestAuthenticationFailureTitle(t *testing.T) {
	service := sampleService()
	service.pingErr = fmt.Errorf("login: %w", odoo.ErrAuthentication)
	rr := serve(newTestHandler(service, nil), "/api/erp/ping")
	problem := decodeProblem(t, rr)
	if problem.Title != "Upstream Authentication Failed" {
		t.Fatalf("unexpected title %q", problem.Title)
	}
}

func TestPing(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/erp/ping")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestDetailsCSV(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/reports/top15/details.csv")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "top15-details.csv") {
		t.Fatalf("unexpected disposition %s", cd)
	}
	if !strings.Contains(rr.Body.String(), "Acme,F001-1") {
		t.Fatalf("expected detail row in csv: %s", rr.Body.String())
	}
}

func TestReportData(t *testing.T) {
	service := sampleService()
	rr := serve(newTestHandler(service, nil), "/api/reports/data?accounts=1201,1301")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if service.lastReport.Accounts != "1201,1301" {
		t.Fatalf("accounts not forwarded: %+v", service.lastReport)
	}
	if !strings.Contains(rr.Body.String(), `"move_name":"INV/001"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestReportXLSX(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/reports/export.xlsx")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "receivables-20240601.xlsx") {
		t.Fatalf("unexpected disposition %s", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip container")
	}
}

func TestDashboardPDF(t *testing.T) {
	pdf := &stubPDF{}
	rr := serve(newTestHandler(sampleService(), pdf), "/api/reports/dashboard.pdf?start=2024-01-01&end=2024-03-31")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if pdf.last.Range != "2024-01-01 to 2024-03-31" {
		t.Fatalf("unexpected range %q", pdf.last.Range)
	}
}

func TestDashboardPDFWithoutExporter(t *testing.T) {
	rr := serve(newTestHandler(sampleService(), nil), "/api/reports/dashboard.pdf")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestExportRateLimit(t *testing.T) {
	handler := NewHandler(nil, sampleService(), nil, Config{ExportRateLimit: 1})
	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/top15/details.csv", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}
