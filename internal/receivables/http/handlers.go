package receivableshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
)

const (
	topClients        = 15
	defaultTimeout    = 60 * time.Second
	defaultExportRate = 10
)

// ReceivablesService is the pipeline contract used by the handler.
type ReceivablesService interface {
	Dashboard(ctx context.Context, filter receivables.InvoiceFilter) (receivables.Dashboard, error)
	RankClients(ctx context.Context, filter receivables.InvoiceFilter, n int) (receivables.RankingResult, error)
	ClientDetails(ctx context.Context, filter receivables.InvoiceFilter, n int) ([]receivables.DetailRow, error)
	GetReportLines(ctx context.Context, filter receivables.ReportFilter) ([]receivables.ReportRow, error)
	Ping(ctx context.Context) error
	IncludesPaymentState() bool
}

// PDFService renders dashboard content to PDF bytes.
type PDFService interface {
	RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error)
}

// Config tunes the handler. Zero values select defaults.
type Config struct {
	RequestTimeout  time.Duration
	ExportRateLimit int
}

// Handler serves the receivables JSON and export endpoints.
type Handler struct {
	logger     *slog.Logger
	service    ReceivablesService
	pdf        PDFService
	validate   *validator.Validate
	bufPool    sync.Pool
	now        func() time.Time
	timeout    time.Duration
	exportRate int
}

// NewHandler constructs the receivables HTTP handler. pdf may be nil, in
// which case the PDF endpoint reports the exporter as unavailable.
func NewHandler(logger *slog.Logger, service ReceivablesService, pdf PDFService, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:     logger,
		service:    service,
		pdf:        pdf,
		validate:   validator.New(),
		now:        time.Now,
		timeout:    cfg.RequestTimeout,
		exportRate: cfg.ExportRateLimit,
	}
	if h.timeout <= 0 {
		h.timeout = defaultTimeout
	}
	if h.exportRate <= 0 {
		h.exportRate = defaultExportRate
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, q.invoiceFilter())
	if err != nil {
		h.handleError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

type topResponse struct {
	Clients []string  `json:"clients"`
	Amounts []float64 `json:"amounts"`
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ranking, err := h.service.RankClients(ctx, q.invoiceFilter(), topClients)
	if err != nil {
		h.handleError(w, "rank clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, topResponse{Clients: ranking.Labels, Amounts: ranking.Values})
}

func (h *Handler) handleTopDetails(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rows, err := h.service.ClientDetails(ctx, q.invoiceFilter(), topClients)
	if err != nil {
		h.handleError(w, "load client details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) handleTopDetailsCSV(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rows, err := h.service.ClientDetails(ctx, q.invoiceFilter(), topClients)
	if err != nil {
		h.handleError(w, "load client details", err)
		return
	}

	buf := h.buffer()
	defer h.release(buf)
	if err := export.WriteDetailCSV(buf, rows); err != nil {
		h.handleError(w, "write details csv", err)
		return
	}
	if err := httpx.Attachment(w, "text/csv; charset=utf-8", "top15-details.csv", buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleReportData(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rows, err := h.service.GetReportLines(ctx, q.reportFilter())
	if err != nil {
		h.handleError(w, "load report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rows, err := h.service.GetReportLines(ctx, q.reportFilter())
	if err != nil {
		h.handleError(w, "load report", err)
		return
	}

	buf := h.buffer()
	defer h.release(buf)
	if err := export.WriteReportXLSX(buf, rows, receivables.Columns(h.service.IncludesPaymentState())); err != nil {
		h.handleError(w, "write xlsx", err)
		return
	}
	filename := fmt.Sprintf("receivables-%s.xlsx", h.now().Format("20060102"))
	if err := httpx.Attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, buf.Bytes()); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handleDashboardPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleError(w, "pdf exporter", fmt.Errorf("pdf exporter not configured: %w", httpx.ErrUnavailable))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, q.invoiceFilter())
	if err != nil {
		h.handleError(w, "load dashboard", err)
		return
	}
	pdfBytes, err := h.pdf.RenderDashboard(ctx, export.DashboardPayload{Range: q.rangeLabel(), Dashboard: dash})
	if err != nil {
		h.handleError(w, "render pdf", err)
		return
	}
	filename := fmt.Sprintf("receivables-%s.pdf", h.now().Format("20060102"))
	if err := httpx.Attachment(w, "application/pdf", filename, pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.service.Ping(ctx); err != nil {
		h.handleError(w, "erp ping", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "detail": "ERP connection OK"})
}

type filterQuery struct {
	Start    string `validate:"omitempty,datetime=2006-01-02"`
	End      string `validate:"omitempty,datetime=2006-01-02"`
	Customer string `validate:"max=128"`
	Accounts string `validate:"max=256"`

	start time.Time
	end   time.Time
}

func (h *Handler) parseQuery(r *http.Request) (filterQuery, error) {
	values := r.URL.Query()
	q := filterQuery{
		Start:    strings.TrimSpace(values.Get("start")),
		End:      strings.TrimSpace(values.Get("end")),
		Customer: strings.TrimSpace(values.Get("q")),
		Accounts: strings.TrimSpace(values.Get("accounts")),
	}
	if err := h.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return filterQuery{}, validationError{field: strings.ToLower(verrs[0].Field())}
		}
		return filterQuery{}, err
	}
	q.start, _ = odoo.ParseDate(q.Start)
	q.end, _ = odoo.ParseDate(q.End)
	if !q.start.IsZero() && !q.end.IsZero() && q.end.Before(q.start) {
		return filterQuery{}, validationError{field: "end"}
	}
	return q, nil
}

func (q filterQuery) invoiceFilter() receivables.InvoiceFilter {
	return receivables.InvoiceFilter{Start: q.start, End: q.end, Customer: q.Customer}
}

func (q filterQuery) reportFilter() receivables.ReportFilter {
	return receivables.ReportFilter{Start: q.start, End: q.end, Customer: q.Customer, Accounts: q.Accounts}
}

func (q filterQuery) rangeLabel() string {
	switch {
	case q.Start != "" && q.End != "":
		return q.Start + " to " + q.End
	case q.Start != "":
		return "from " + q.Start
	case q.End != "":
		return "until " + q.End
	}
	return ""
}

func (h *Handler) buffer() *bytes.Buffer {
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (h *Handler) release(buf *bytes.Buffer) {
	buf.Reset()
	h.bufPool.Put(buf)
}

// handleError writes a problem response. Nothing else has been written at
// this point, so the client never sees partial data.
func (h *Handler) handleError(w http.ResponseWriter, op string, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, vErr.Error()))
		return
	}
	h.logError(op, err)

	var cfgErr *odoo.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnavailable, cfgErr.Error()))
	case errors.Is(err, odoo.ErrAuthentication):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnauthorized, err.Error()))
	case errors.Is(err, odoo.ErrUpstream), errors.Is(err, odoo.ErrSchemaIncompatible), errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrBadGateway, err.Error()))
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
