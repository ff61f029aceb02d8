package receivables

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TimeSeriesPoint is the delinquency ratio of one invoice month.
type TimeSeriesPoint struct {
	Month string  `json:"month"`
	Ratio float64 `json:"ratio"`
}

var hundred = decimal.NewFromInt(100)

// DelinquencySeries groups positive residuals by invoice month and reports,
// per month, the percentage already due by the last day of that month.
// Invoices without a parseable invoice date are left out.
func DelinquencySeries(invoices []Invoice) []TimeSeriesPoint {
	totals := map[string]decimal.Decimal{}
	overdue := map[string]decimal.Decimal{}
	for _, inv := range invoices {
		if inv.AmountResidual <= 0 {
			continue
		}
		issued, ok := inv.Issued()
		if !ok {
			continue
		}
		month := issued.Format("2006-01")
		residual := decimal.NewFromFloat(inv.AmountResidual)
		totals[month] = totals[month].Add(residual)
		if due, ok := inv.Due(); ok && !due.After(monthEnd(issued)) {
			overdue[month] = overdue[month].Add(residual)
		}
	}

	months := make([]string, 0, len(totals))
	for month := range totals {
		months = append(months, month)
	}
	sort.Strings(months)

	out := make([]TimeSeriesPoint, 0, len(months))
	for _, month := range months {
		ratio := decimal.Zero
		if total := totals[month]; total.IsPositive() {
			ratio = overdue[month].Div(total).Mul(hundred)
		}
		out = append(out, TimeSeriesPoint{Month: month, Ratio: round2(ratio)})
	}
	return out
}

// monthEnd returns the last calendar day of t's month.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
