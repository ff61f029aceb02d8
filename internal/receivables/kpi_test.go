package receivables

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receivables/internal/odoo"
)

var june1 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func inv(partner string, residual float64, due string) Invoice {
	return Invoice{Partner: odoo.Pair(1, partner), AmountResidual: residual, DueDate: due}
}

func TestComputeKPIsSplitsOverdueAndCurrent(t *testing.T) {
	invoices := []Invoice{
		inv("A", 100, "2024-01-01"),
		inv("B", 50, "2099-01-01"),
	}
	kpi := ComputeKPIs(invoices, june1)
	assert.Equal(t, KpiSet{TotalInvoices: 2, OverdueAmount: 100, CurrentAmount: 50, AvgOverdueDays: 152}, kpi)
}

func TestComputeKPIsIgnoresNonPositiveAndBadDates(t *testing.T) {
	invoices := []Invoice{
		inv("A", 0, "2024-01-01"),
		inv("A", -20, "2024-01-01"),
		inv("B", 10.005, "garbage"),
		inv("C", 5, ""),
		inv("D", 7, "2024-06-01"),
		inv("E", 3, "2024-05-31"),
		inv("F", 4, "2024-01-01junk"),
	}
	kpi := ComputeKPIs(invoices, june1.Add(23*time.Hour))
	assert.Equal(t, 7, kpi.TotalInvoices)
	assert.Equal(t, 3.0, kpi.OverdueAmount)
	assert.Equal(t, 26.01, kpi.CurrentAmount)
	assert.Equal(t, 1.0, kpi.AvgOverdueDays)
}

func TestComputeKPIsEmpty(t *testing.T) {
	assert.Equal(t, KpiSet{}, ComputeKPIs(nil, june1))
}

func TestComputeKPIsAmountsSumToPositiveResiduals(t *testing.T) {
	invoices := []Invoice{
		inv("A", 10.10, "2024-01-01"),
		inv("B", 20.20, "2024-07-01"),
		inv("C", -5, "2024-01-01"),
		inv("D", 30.30, "bad"),
		inv("E", 0.01, "2023-01-01"),
	}
	kpi := ComputeKPIs(invoices, june1)
	assert.InDelta(t, 60.61, kpi.OverdueAmount+kpi.CurrentAmount, 0.0001)
}

func TestTopClientsRanksDescending(t *testing.T) {
	invoices := []Invoice{
		inv("A", 10, ""),
		inv("A", 20, ""),
		inv("B", 100, ""),
		inv("A", 5, ""),
	}
	assert.Equal(t, RankingResult{Labels: []string{"B"}, Values: []float64{100}}, TopClients(invoices, 1))
	assert.Equal(t, RankingResult{Labels: []string{"B", "A"}, Values: []float64{100, 35}}, TopClients(invoices, 2))
}

func TestTopClientsBounds(t *testing.T) {
	var invoices []Invoice
	for i := 0; i < 40; i++ {
		name := string(rune('a' + i%26))
		invoices = append(invoices, inv(name, float64((i*37)%53)+0.5, ""))
	}
	invoices = append(invoices, Invoice{Partner: odoo.Bare("Walk-in"), AmountResidual: 3})

	for _, n := range []int{15, 10} {
		result := TopClients(invoices, n)
		require.LessOrEqual(t, result.Len(), n)
		require.Len(t, result.Values, result.Len())
		for i := 1; i < len(result.Values); i++ {
			assert.GreaterOrEqual(t, result.Values[i-1], result.Values[i])
		}
	}

	all := TopClients(invoices, 100)
	assert.Contains(t, all.Labels, "Walk-in")
}

func TestTopClientsTiesKeepFirstSeen(t *testing.T) {
	invoices := []Invoice{inv("Z", 5, ""), inv("Y", 5, ""), inv("X", 9, "")}
	assert.Equal(t, []string{"X", "Z", "Y"}, TopClients(invoices, 3).Labels)
}

func TestDelinquencySeriesRatio(t *testing.T) {
	invoices := []Invoice{
		{InvoiceDate: "2024-03-10", DueDate: "2024-03-31", AmountResidual: 50},
		{InvoiceDate: "2024-03-15", DueDate: "2024-04-15", AmountResidual: 150},
		{InvoiceDate: "2024-01-02", DueDate: "", AmountResidual: 10},
		{InvoiceDate: "2024-02-02", DueDate: "2024-02-10", AmountResidual: 40},
		{InvoiceDate: "", DueDate: "2024-02-10", AmountResidual: 40},
		{InvoiceDate: "2024-02-02", DueDate: "2024-02-10", AmountResidual: -40},
		{InvoiceDate: "2024-03-01xx", DueDate: "2024-03-02", AmountResidual: 100},
	}
	series := DelinquencySeries(invoices)
	assert.Equal(t, []TimeSeriesPoint{
		{Month: "2024-01", Ratio: 0},
		{Month: "2024-02", Ratio: 100},
		{Month: "2024-03", Ratio: 25},
	}, series)
	for _, p := range series {
		assert.GreaterOrEqual(t, p.Ratio, 0.0)
		assert.LessOrEqual(t, p.Ratio, 100.0)
	}
}

func TestAgingBuckets(t *testing.T) {
	invoices := []Invoice{
		inv("A", 1, "2024-06-01"),
		inv("A", 2, "2024-05-31"),
		inv("A", 4, "2024-05-01"),
		inv("A", 8, "2024-04-01"),
		inv("A", 16, "2024-03-03"),
		inv("A", 32, "2024-03-02"),
		inv("A", 64, "nope"),
		inv("A", -1, "2020-01-01"),
	}
	assert.Equal(t, []AgingBucket{
		{Bucket: BucketCurrent, Amount: 65},
		{Bucket: Bucket1to30, Amount: 2},
		{Bucket: Bucket31to60, Amount: 4},
		{Bucket: Bucket61to90, Amount: 24},
		{Bucket: Bucket90Plus, Amount: 32},
	}, Aging(invoices, june1))
}

func TestDocumentTypesFallbacks(t *testing.T) {
	invoices := []Invoice{
		{DocumentType: odoo.Pair(1, "Boleta"), MoveType: "out_invoice", AmountResidual: 1.111},
		{MoveType: "out_invoice", AmountResidual: 2},
		{AmountResidual: 3},
		{DocumentType: odoo.Pair(1, "Boleta"), AmountResidual: 1.111},
		{DocumentType: odoo.Pair(2, "Factura"), AmountResidual: 0},
	}
	assert.Equal(t, RankingResult{
		Labels: []string{"Boleta", "out_invoice", UnknownDocumentType},
		Values: []float64{2.22, 2, 3},
	}, DocumentTypes(invoices))
}
