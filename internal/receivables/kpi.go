package receivables

import (
	"time"

	"github.com/shopspring/decimal"
)

// KpiSet summarises the open receivable portfolio.
type KpiSet struct {
	TotalInvoices  int     `json:"total_invoices"`
	OverdueAmount  float64 `json:"overdue_amount"`
	CurrentAmount  float64 `json:"current_amount"`
	AvgOverdueDays float64 `json:"avg_overdue_days"`
}

// ComputeKPIs splits positive residuals into overdue and current relative to
// today's calendar date. An invoice is overdue when its due date is strictly
// before today; missing or malformed due dates count as current.
func ComputeKPIs(invoices []Invoice, today time.Time) KpiSet {
	today = civilDate(today)
	overdue := decimal.Zero
	current := decimal.Zero
	var daysSum, daysCount int

	for _, inv := range invoices {
		if inv.AmountResidual <= 0 {
			continue
		}
		residual := decimal.NewFromFloat(inv.AmountResidual)
		due, ok := inv.Due()
		if ok && due.Before(today) {
			overdue = overdue.Add(residual)
			if days := daysBetween(due, today); days > 0 {
				daysSum += days
				daysCount++
			}
			continue
		}
		current = current.Add(residual)
	}

	avg := decimal.Zero
	if daysCount > 0 {
		avg = decimal.NewFromInt(int64(daysSum)).Div(decimal.NewFromInt(int64(daysCount)))
	}
	return KpiSet{
		TotalInvoices:  len(invoices),
		OverdueAmount:  round2(overdue),
		CurrentAmount:  round2(current),
		AvgOverdueDays: round2(avg),
	}
}

// isOverdue applies the same due date rule as ComputeKPIs.
func isOverdue(inv Invoice, today time.Time) bool {
	due, ok := inv.Due()
	return ok && due.Before(civilDate(today))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
