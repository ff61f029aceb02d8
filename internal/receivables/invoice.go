package receivables

import (
	"time"

	"github.com/odyssey-erp/receivables/internal/odoo"
)

// Invoice is a posted customer invoice with an open balance.
type Invoice struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Partner        odoo.Reference `json:"partner_id"`
	InvoiceDate    string         `json:"invoice_date"`
	DueDate        string         `json:"invoice_date_due"`
	AmountTotal    float64        `json:"amount_total"`
	AmountResidual float64        `json:"amount_residual"`
	Currency       odoo.Reference `json:"currency_id"`
	Origin         string         `json:"invoice_origin"`
	DocumentType   odoo.Reference `json:"l10n_latam_document_type_id"`
	MoveType       string         `json:"move_type"`
	PaymentState   string         `json:"payment_state"`
}

// Due returns the parsed due date. Malformed or missing dates report false.
func (i Invoice) Due() (time.Time, bool) {
	return odoo.ParseDate(i.DueDate)
}

// Issued returns the parsed invoice date.
func (i Invoice) Issued() (time.Time, bool) {
	return odoo.ParseDate(i.InvoiceDate)
}

// PartnerName is the grouping key used by rankings.
func (i Invoice) PartnerName() string {
	return i.Partner.DisplayName(UnnamedPartner)
}

// UnnamedPartner labels invoices whose partner carries no usable name.
const UnnamedPartner = "(unnamed)"

func decodeInvoices(records []odoo.Record, obs Observer) []Invoice {
	out := make([]Invoice, 0, len(records))
	for _, rec := range records {
		inv := Invoice{
			ID:           rec.ID(),
			Name:         rec.String("name"),
			InvoiceDate:  rec.String("invoice_date"),
			DueDate:      rec.String("invoice_date_due"),
			Origin:       rec.String("invoice_origin"),
			MoveType:     rec.String("move_type"),
			PaymentState: rec.String("payment_state"),
		}
		var ok bool
		if inv.Partner, ok = rec.RefOK("partner_id"); !ok {
			obs.MalformedValue(ModelMove, inv.ID, "partner_id")
		}
		if inv.Currency, ok = rec.RefOK("currency_id"); !ok {
			obs.MalformedValue(ModelMove, inv.ID, "currency_id")
		}
		if inv.DocumentType, ok = rec.RefOK("l10n_latam_document_type_id"); !ok {
			obs.MalformedValue(ModelMove, inv.ID, "l10n_latam_document_type_id")
		}
		if inv.AmountTotal, ok = rec.FloatOK("amount_total"); !ok {
			obs.MalformedValue(ModelMove, inv.ID, "amount_total")
		}
		if inv.AmountResidual, ok = rec.FloatOK("amount_residual"); !ok {
			obs.MalformedValue(ModelMove, inv.ID, "amount_residual")
		}
		checkDate(obs, ModelMove, inv.ID, "invoice_date", inv.InvoiceDate)
		checkDate(obs, ModelMove, inv.ID, "invoice_date_due", inv.DueDate)
		out = append(out, inv)
	}
	return out
}

func checkDate(obs Observer, model string, id int64, field, value string) {
	if value == "" {
		return
	}
	if _, ok := odoo.ParseDate(value); !ok {
		obs.MalformedValue(model, id, field)
	}
}

// civilDate truncates t to midnight UTC of its own calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)).Hours() / 24)
}
