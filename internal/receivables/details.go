package receivables

import (
	"sort"
)

// DetailRow is one invoice belonging to a top-ranked client.
type DetailRow struct {
	Client   string  `json:"client"`
	Document string  `json:"document"`
	Date     string  `json:"date"`
	Due      string  `json:"due"`
	Amount   float64 `json:"amount"`
	Balance  float64 `json:"balance"`
	Origin   string  `json:"origin"`
}

// TopClientDetails lists the invoices of the n top clients, largest balance
// first.
func TopClientDetails(invoices []Invoice, n int) []DetailRow {
	top := TopClients(invoices, n)
	keep := make(map[string]struct{}, top.Len())
	for _, label := range top.Labels {
		keep[label] = struct{}{}
	}
	rows := make([]DetailRow, 0, len(invoices))
	for _, inv := range invoices {
		name := inv.PartnerName()
		if _, ok := keep[name]; !ok {
			continue
		}
		rows = append(rows, DetailRow{
			Client:   name,
			Document: inv.Name,
			Date:     inv.InvoiceDate,
			Due:      inv.DueDate,
			Amount:   inv.AmountTotal,
			Balance:  inv.AmountResidual,
			Origin:   inv.Origin,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Balance > rows[j].Balance })
	return rows
}
