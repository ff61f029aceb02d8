package receivables

import (
	"strings"
	"time"

	"github.com/odyssey-erp/receivables/internal/odoo"
)

// Models queried by the pipeline.
const (
	ModelMove    = "account.move"
	ModelLine    = "account.move.line"
	ModelPartner = "res.partner"
	ModelAccount = "account.account"
)

// InvoiceFilter narrows the unpaid invoice fetch. Zero dates are unbounded.
type InvoiceFilter struct {
	Start    time.Time
	End      time.Time
	Customer string
}

// ReportFilter narrows the ledger line fetch. Accounts is an optional comma
// separated list of account code prefixes.
type ReportFilter struct {
	Start    time.Time
	End      time.Time
	Customer string
	Accounts string
}

// AccountRules selects receivable accounts by code prefix.
type AccountRules struct {
	Include []string
	Exclude []string
}

// DefaultAccountRules matches the usual receivable chart: 12x and 13x accounts
// except cash (10x) and the 123/133 sub-ledgers.
func DefaultAccountRules() AccountRules {
	return AccountRules{
		Include: []string{"12", "13"},
		Exclude: []string{"10", "133", "123"},
	}
}

// ParsePrefixes splits a comma separated list, dropping blanks.
func ParsePrefixes(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InvoiceDomain builds the filter for posted customer invoices that are not
// fully paid.
func InvoiceDomain(f InvoiceFilter) odoo.Domain {
	d := odoo.Domain{
		odoo.Cond("move_type", "=", "out_invoice"),
		odoo.Cond("state", "=", "posted"),
		odoo.Cond("payment_state", "in", []string{"not_paid", "partial"}),
	}
	return d.With(bounds("invoice_date", f.Start, f.End, f.Customer)...)
}

// LineDomain builds the base filter for open receivable ledger lines. The
// account type restriction is added per fetch attempt.
func (r AccountRules) LineDomain(f ReportFilter) odoo.Domain {
	d := odoo.Domain{
		odoo.Cond("reconciled", "=", false),
		odoo.Cond("move_id.state", "=", "posted"),
	}
	d = d.With(bounds("date", f.Start, f.End, f.Customer)...)

	include := ParsePrefixes(f.Accounts)
	if len(include) == 0 {
		include = r.Include
	}
	if len(include) > 0 {
		terms := make([]odoo.Term, 0, len(include))
		for _, prefix := range include {
			terms = append(terms, codeLike(prefix))
		}
		d = odoo.And(d, odoo.Or(terms...))
	}
	for _, prefix := range r.Exclude {
		d = odoo.And(d, odoo.Not(codeLike(prefix)))
	}
	return d
}

func codeLike(prefix string) odoo.Condition {
	return odoo.Cond("account_id.code", "=like", prefix+"%")
}

func bounds(dateField string, start, end time.Time, customer string) []odoo.Term {
	var terms []odoo.Term
	if !start.IsZero() {
		terms = append(terms, odoo.Cond(dateField, ">=", start.Format(odoo.DateLayout)))
	}
	if !end.IsZero() {
		terms = append(terms, odoo.Cond(dateField, "<=", end.Format(odoo.DateLayout)))
	}
	if c := strings.TrimSpace(customer); c != "" {
		terms = append(terms, odoo.Cond("partner_id", "ilike", c))
	}
	return terms
}
