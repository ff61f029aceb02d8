// Package receivables computes receivable KPIs and detail reports from live
// ERP data.
package receivables

import (
	"context"
	"fmt"
	"time"
)

// Backend is an ERP session able to run queries.
type Backend interface {
	RPC
	EnsureConnected(ctx context.Context) (int64, error)
}

// Options tunes a Service. Zero values select defaults.
type Options struct {
	Rules               AccountRules
	Observer            Observer
	Limit               int
	IncludePaymentState bool
	Now                 func() time.Time
}

// Service runs the receivables pipeline against a Backend. Every call queries
// the ERP; nothing is retained between calls.
type Service struct {
	backend             Backend
	rules               AccountRules
	observer            Observer
	limit               int
	includePaymentState bool
	now                 func() time.Time
}

// NewService wires a Backend with pipeline options.
func NewService(backend Backend, opts Options) *Service {
	s := &Service{
		backend:             backend,
		rules:               opts.Rules,
		observer:            opts.Observer,
		limit:               opts.Limit,
		includePaymentState: opts.IncludePaymentState,
		now:                 opts.Now,
	}
	if len(s.rules.Include) == 0 && len(s.rules.Exclude) == 0 {
		s.rules = DefaultAccountRules()
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IncludesPaymentState reports whether report rows carry the payment state column.
func (s *Service) IncludesPaymentState() bool { return s.includePaymentState }

// Today returns the current calendar date.
func (s *Service) Today() time.Time {
	return civilDate(s.now())
}

// Ping verifies connectivity and credentials.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.backend.EnsureConnected(ctx)
	return err
}

// GetUnpaidInvoices fetches posted customer invoices that are not fully paid.
func (s *Service) GetUnpaidInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	if _, err := s.backend.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	records, _, err := fetchWithFallback(ctx, s.backend, s.observer, ModelMove, invoiceAttempts(InvoiceDomain(filter)), s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	invoices := decodeInvoices(records, s.observer)
	s.observer.RowsProduced("invoices", len(invoices))
	return invoices, nil
}

// GetReportLines fetches open receivable ledger lines and denormalizes them
// with partner, account and move attributes.
func (s *Service) GetReportLines(ctx context.Context, filter ReportFilter) ([]ReportRow, error) {
	if _, err := s.backend.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	lines, _, err := fetchWithFallback(ctx, s.backend, s.observer, ModelLine, lineAttempts(s.rules.LineDomain(filter)), s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger lines: %w", err)
	}
	rel, err := resolveRelations(ctx, s.backend, s.observer, lines)
	if err != nil {
		return nil, fmt.Errorf("resolve relations: %w", err)
	}
	rows := make([]ReportRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, denormalize(line, rel, s.includePaymentState))
	}
	s.observer.RowsProduced("report", len(rows))
	return rows, nil
}

// Dashboard bundles every aggregate shown on the receivables dashboard.
type Dashboard struct {
	KpiSet
	AsOf              string            `json:"as_of"`
	Top10             RankingResult     `json:"top10"`
	Condition         RankingResult     `json:"condition"`
	DocumentTypes     RankingResult     `json:"document_types"`
	DelinquencySeries []TimeSeriesPoint `json:"delinquency_series"`
	Aging             []AgingBucket     `json:"aging"`
}

// BuildDashboard computes the dashboard aggregates over invoices.
func BuildDashboard(invoices []Invoice, today time.Time) Dashboard {
	today = civilDate(today)
	return Dashboard{
		KpiSet:            ComputeKPIs(invoices, today),
		AsOf:              today.Format("2006-01-02"),
		Top10:             TopOverdueClients(invoices, today, 10),
		Condition:         ConditionSplit(invoices, today),
		DocumentTypes:     DocumentTypes(invoices),
		DelinquencySeries: DelinquencySeries(invoices),
		Aging:             Aging(invoices, today),
	}
}

// Dashboard fetches unpaid invoices and aggregates them as of today.
func (s *Service) Dashboard(ctx context.Context, filter InvoiceFilter) (Dashboard, error) {
	invoices, err := s.GetUnpaidInvoices(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(invoices, s.Today()), nil
}

// RankClients returns the n clients with the largest open balance.
func (s *Service) RankClients(ctx context.Context, filter InvoiceFilter, n int) (RankingResult, error) {
	invoices, err := s.GetUnpaidInvoices(ctx, filter)
	if err != nil {
		return RankingResult{}, err
	}
	return TopClients(invoices, n), nil
}

// ClientDetails returns the invoices of the n top clients.
func (s *Service) ClientDetails(ctx context.Context, filter InvoiceFilter, n int) ([]DetailRow, error) {
	invoices, err := s.GetUnpaidInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	return TopClientDetails(invoices, n), nil
}
