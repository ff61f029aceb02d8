package receivables

import (
	"github.com/odyssey-erp/receivables/internal/odoo"
)

// ReportRow is one denormalized receivable ledger line. The JSON keys are
// consumed by existing spreadsheets and dashboards and must not change.
type ReportRow struct {
	Date                   string  `json:"date"`
	DocumentType           string  `json:"I10nn_latam_document_type_id"`
	MoveName               string  `json:"move_name"`
	Origin                 string  `json:"invoice_origin"`
	AccountCode            string  `json:"account_id/code"`
	AccountName            string  `json:"account_id/name"`
	PartnerSAPCode         string  `json:"patner_id/cod_client_sap"`
	PartnerVAT             string  `json:"patner_id/vat"`
	Partner                string  `json:"patner_id"`
	AmountCurrency         float64 `json:"amount_currency"`
	AmountResidualCurrency float64 `json:"amount_residual_currency"`
	DateMaturity           string  `json:"date_maturity"`
	Ref                    string  `json:"ref"`
	Name                   string  `json:"name"`
	Salesperson            string  `json:"move_id/invoice_user_id"`
	PartnerState           string  `json:"patner_id/state_id"`
	PartnerDistrict        string  `json:"patner_id/l10n_pe_district"`
	PartnerAddress         string  `json:"patner_id/contact_adress"`
	DestinationAddress     string  `json:"destiny_adress"`
	CountryCode            string  `json:"patner_id/country_code"`
	Country                string  `json:"patner_id/country_id"`
	SalesChannel           string  `json:"move_id/sales_channel_id"`
	SalesType              string  `json:"move_id/sales_type_id"`
	PaymentState           *string `json:"move_id/payment_state,omitempty"`
}

// Column describes one exported column of a ReportRow.
type Column struct {
	Key    string
	Header string
	Value  func(ReportRow) any
}

var baseColumns = []Column{
	{"date", "Date", func(r ReportRow) any { return r.Date }},
	{"I10nn_latam_document_type_id", "Document Type", func(r ReportRow) any { return r.DocumentType }},
	{"move_name", "Move", func(r ReportRow) any { return r.MoveName }},
	{"invoice_origin", "Origin", func(r ReportRow) any { return r.Origin }},
	{"account_id/code", "Account Code", func(r ReportRow) any { return r.AccountCode }},
	{"account_id/name", "Account Name", func(r ReportRow) any { return r.AccountName }},
	{"patner_id/cod_client_sap", "Client SAP Code", func(r ReportRow) any { return r.PartnerSAPCode }},
	{"patner_id/vat", "Tax ID", func(r ReportRow) any { return r.PartnerVAT }},
	{"patner_id", "Client", func(r ReportRow) any { return r.Partner }},
	{"amount_currency", "Amount (Currency)", func(r ReportRow) any { return r.AmountCurrency }},
	{"amount_residual_currency", "Residual (Currency)", func(r ReportRow) any { return r.AmountResidualCurrency }},
	{"date_maturity", "Due Date", func(r ReportRow) any { return r.DateMaturity }},
	{"ref", "Reference", func(r ReportRow) any { return r.Ref }},
	{"name", "Label", func(r ReportRow) any { return r.Name }},
	{"move_id/invoice_user_id", "Salesperson", func(r ReportRow) any { return r.Salesperson }},
	{"patner_id/state_id", "Province", func(r ReportRow) any { return r.PartnerState }},
	{"patner_id/l10n_pe_district", "District", func(r ReportRow) any { return r.PartnerDistrict }},
	{"patner_id/contact_adress", "Address", func(r ReportRow) any { return r.PartnerAddress }},
	{"destiny_adress", "Destination Address", func(r ReportRow) any { return r.DestinationAddress }},
	{"patner_id/country_code", "Country Code", func(r ReportRow) any { return r.CountryCode }},
	{"patner_id/country_id", "Country", func(r ReportRow) any { return r.Country }},
	{"move_id/sales_channel_id", "Sales Channel", func(r ReportRow) any { return r.SalesChannel }},
	{"move_id/sales_type_id", "Sales Type", func(r ReportRow) any { return r.SalesType }},
}

var paymentStateColumn = Column{"move_id/payment_state", "Payment State", func(r ReportRow) any {
	if r.PaymentState == nil {
		return ""
	}
	return *r.PaymentState
}}

// Columns returns the export schema in output order.
func Columns(includePaymentState bool) []Column {
	out := make([]Column, 0, len(baseColumns)+1)
	out = append(out, baseColumns...)
	if includePaymentState {
		out = append(out, paymentStateColumn)
	}
	return out
}

// denormalize joins a ledger line with its resolved relations.
func denormalize(line odoo.Record, rel Relations, includePaymentState bool) ReportRow {
	partner := lookup(rel.Partners, line.Ref("partner_id"))
	account := lookup(rel.Accounts, line.Ref("account_id"))
	move := lookup(rel.Moves, line.Ref("move_id"))

	accountName := account.String("name")
	if accountName == "" {
		accountName = line.Ref("account_id").Label()
	}

	row := ReportRow{
		Date:                   line.String("date"),
		DocumentType:           move.Ref("l10n_latam_document_type_id").Label(),
		MoveName:               line.String("move_name"),
		Origin:                 move.String("invoice_origin"),
		AccountCode:            account.String("code"),
		AccountName:            accountName,
		PartnerSAPCode:         partner.String("cod_client_sap"),
		PartnerVAT:             partner.String("vat"),
		Partner:                line.Ref("partner_id").Label(),
		AmountCurrency:         line.Float("amount_currency"),
		AmountResidualCurrency: line.Float("amount_residual_currency"),
		DateMaturity:           line.String("date_maturity"),
		Ref:                    line.String("ref"),
		Name:                   line.String("name"),
		Salesperson:            move.Ref("invoice_user_id").Label(),
		PartnerState:           partner.Ref("state_id").Label(),
		PartnerDistrict:        partner.Ref("l10n_pe_district").Label(),
		PartnerAddress:         partner.String("contact_address"),
		CountryCode:            partner.String("country_code"),
		Country:                partner.Ref("country_id").Label(),
		SalesChannel:           move.Ref("sales_channel_id").Label(),
		SalesType:              move.Ref("sales_type_id").Label(),
	}
	if includePaymentState {
		state := move.String("payment_state")
		row.PaymentState = &state
	}
	return row
}
