package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receivables/internal/receivables"
)

var _ receivables.Observer = (*PipelineMetrics)(nil)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `receivables_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `receivables_http_request_duration_seconds_bucket{route="/test"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestPipelineMetricsCountEvents(t *testing.T) {
	metrics := NewMetrics()
	pipeline := metrics.Pipeline()

	pipeline.FallbackTriggered("account.move.line", "account_type", "user_type_id", errors.New("invalid field"))
	pipeline.LookupIssued("partner", 3)
	pipeline.LookupIssued("partner", 2)
	pipeline.RowsProduced("report", 12)
	pipeline.RowsProduced("report", 0)
	pipeline.MalformedValue("account.move", 7, "invoice_date_due")

	body := scrape(t, metrics)
	for _, want := range []string{
		`receivables_schema_fallbacks_total{from="account_type",model="account.move.line",to="user_type_id"} 1`,
		`receivables_relation_lookups_total{relation="partner"} 2`,
		`receivables_relation_lookup_ids_sum{relation="partner"} 5`,
		`receivables_rows_total{kind="report"} 12`,
		`receivables_malformed_values_total{field="invoice_date_due",model="account.move"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
	metrics.Pipeline().RowsProduced("report", 1)
}
