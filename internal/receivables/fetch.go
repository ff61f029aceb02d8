package receivables

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/receivables/internal/odoo"
)

// RPC is the subset of the ERP client used by the pipeline.
type RPC interface {
	SearchRead(ctx context.Context, model string, domain odoo.Domain, fields []string, limit int) ([]odoo.Record, error)
	Read(ctx context.Context, model string, ids []int64, fields []string) ([]odoo.Record, error)
}

// Attempt is one query shape for a fetch site, tried in declared order.
type Attempt struct {
	Name   string
	Domain odoo.Domain
	Fields []string
}

var errNoAttempts = errors.New("receivables: no fetch attempts declared")

// fetchWithFallback runs search_read with each attempt until one is accepted.
// Only schema rejections advance to the next attempt.
func fetchWithFallback(ctx context.Context, rpc RPC, obs Observer, model string, attempts []Attempt, limit int) ([]odoo.Record, Attempt, error) {
	return runAttempts(obs, model, attempts, func(a Attempt) ([]odoo.Record, error) {
		return rpc.SearchRead(ctx, model, a.Domain, a.Fields, limit)
	})
}

// readWithFallback runs read for ids with each attempt's field list.
func readWithFallback(ctx context.Context, rpc RPC, obs Observer, model string, ids []int64, attempts []Attempt) ([]odoo.Record, Attempt, error) {
	return runAttempts(obs, model, attempts, func(a Attempt) ([]odoo.Record, error) {
		return rpc.Read(ctx, model, ids, a.Fields)
	})
}

func runAttempts(obs Observer, model string, attempts []Attempt, run func(Attempt) ([]odoo.Record, error)) ([]odoo.Record, Attempt, error) {
	if len(attempts) == 0 {
		return nil, Attempt{}, errNoAttempts
	}
	var lastErr error
	for i, attempt := range attempts {
		records, err := run(attempt)
		if err == nil {
			return records, attempt, nil
		}
		if !odoo.IsSchemaIncompatible(err) {
			return nil, attempt, err
		}
		lastErr = err
		if i+1 < len(attempts) {
			obs.FallbackTriggered(model, attempt.Name, attempts[i+1].Name, err)
		}
	}
	return nil, attempts[len(attempts)-1], fmt.Errorf("%s: all %d attempts rejected: %w", model, len(attempts), lastErr)
}

// fieldAttempts declares read attempts that only differ by field list.
func fieldAttempts(names []string, fields ...[]string) []Attempt {
	out := make([]Attempt, len(fields))
	for i, f := range fields {
		out[i] = Attempt{Name: names[i], Fields: f}
	}
	return out
}

var lineFields = []string{
	"date", "move_name", "ref", "name", "date_maturity",
	"amount_currency", "amount_residual_currency",
	"partner_id", "account_id", "move_id",
}

// lineAttempts restricts the base domain to receivable accounts, first by the
// modern account_type selection, then by the legacy user type, then by code
// prefixes alone.
func lineAttempts(base odoo.Domain) []Attempt {
	return []Attempt{
		{Name: "account_type", Domain: base.With(odoo.Cond("account_id.account_type", "=", "asset_receivable")), Fields: lineFields},
		{Name: "user_type_id", Domain: base.With(odoo.Cond("account_id.user_type_id.type", "=", "receivable")), Fields: lineFields},
		{Name: "codes_only", Domain: base, Fields: lineFields},
	}
}

var invoiceBaseFields = []string{
	"name", "partner_id", "invoice_date", "invoice_date_due",
	"amount_total", "amount_residual", "currency_id", "invoice_origin",
	"move_type", "payment_state",
}

func invoiceAttempts(domain odoo.Domain) []Attempt {
	latam := append(append([]string{}, invoiceBaseFields...), "l10n_latam_document_type_id")
	return []Attempt{
		{Name: "latam", Domain: domain, Fields: latam},
		{Name: "base", Domain: domain, Fields: invoiceBaseFields},
	}
}

var (
	partnerAttempts = fieldAttempts(
		[]string{"full", "no_country_code", "no_district"},
		[]string{"vat", "state_id", "l10n_pe_district", "country_id", "country_code", "contact_address", "cod_client_sap"},
		[]string{"vat", "state_id", "l10n_pe_district", "country_id", "contact_address"},
		[]string{"vat", "state_id", "country_id", "contact_address"},
	)
	accountAttempts = fieldAttempts(
		[]string{"base"},
		[]string{"code", "name"},
	)
	moveAttempts = fieldAttempts(
		[]string{"sales", "document_type", "base"},
		[]string{"invoice_origin", "invoice_user_id", "sales_channel_id", "sales_type_id", "l10n_latam_document_type_id", "payment_state"},
		[]string{"invoice_origin", "invoice_user_id", "l10n_latam_document_type_id", "payment_state"},
		[]string{"invoice_origin", "invoice_user_id"},
	)
)
