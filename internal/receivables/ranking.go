package receivables

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Condition labels for the current/overdue split.
const (
	ConditionCurrent = "current"
	ConditionOverdue = "overdue"
)

// UnknownDocumentType labels invoices with neither a document type nor a move type.
const UnknownDocumentType = "unknown"

// RankingResult is a labelled series. Labels and Values have equal length.
type RankingResult struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of entries.
func (r RankingResult) Len() int { return len(r.Labels) }

// TopClients groups positive residuals by partner display name and returns
// the n largest totals in descending order. Ties keep first-seen order.
func TopClients(invoices []Invoice, n int) RankingResult {
	g := newGrouper()
	for _, inv := range invoices {
		if inv.AmountResidual <= 0 {
			continue
		}
		g.add(inv.PartnerName(), inv.AmountResidual)
	}
	return g.ranked(n)
}

// TopOverdueClients ranks only invoices overdue as of today.
func TopOverdueClients(invoices []Invoice, today time.Time, n int) RankingResult {
	overdue := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if isOverdue(inv, today) {
			overdue = append(overdue, inv)
		}
	}
	return TopClients(overdue, n)
}

// ConditionSplit returns the current and overdue totals, in that order.
func ConditionSplit(invoices []Invoice, today time.Time) RankingResult {
	kpi := ComputeKPIs(invoices, today)
	return RankingResult{
		Labels: []string{ConditionCurrent, ConditionOverdue},
		Values: []float64{kpi.CurrentAmount, kpi.OverdueAmount},
	}
}

// DocumentTypes sums positive residuals per document type label, falling
// back to the move type. Entries keep first-seen order.
func DocumentTypes(invoices []Invoice) RankingResult {
	g := newGrouper()
	for _, inv := range invoices {
		if inv.AmountResidual <= 0 {
			continue
		}
		label := inv.DocumentType.Label()
		if label == "" {
			label = inv.MoveType
		}
		if label == "" {
			label = UnknownDocumentType
		}
		g.add(label, inv.AmountResidual)
	}
	return g.ordered()
}

type grouper struct {
	keys []string
	sums map[string]decimal.Decimal
}

func newGrouper() *grouper {
	return &grouper{sums: map[string]decimal.Decimal{}}
}

func (g *grouper) add(key string, amount float64) {
	sum, ok := g.sums[key]
	if !ok {
		g.keys = append(g.keys, key)
	}
	g.sums[key] = sum.Add(decimal.NewFromFloat(amount))
}

func (g *grouper) ordered() RankingResult {
	out := RankingResult{Labels: make([]string, 0, len(g.keys)), Values: make([]float64, 0, len(g.keys))}
	for _, key := range g.keys {
		out.Labels = append(out.Labels, key)
		out.Values = append(out.Values, round2(g.sums[key]))
	}
	return out
}

func (g *grouper) ranked(n int) RankingResult {
	keys := append([]string(nil), g.keys...)
	sort.SliceStable(keys, func(i, j int) bool {
		return g.sums[keys[i]].GreaterThan(g.sums[keys[j]])
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	out := RankingResult{Labels: make([]string, 0, len(keys)), Values: make([]float64, 0, len(keys))}
	for _, key := range keys {
		out.Labels = append(out.Labels, key)
		out.Values = append(out.Values, round2(g.sums[key]))
	}
	return out
}
