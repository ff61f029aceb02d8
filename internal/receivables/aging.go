package receivables

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aging bucket labels in display order.
const (
	BucketCurrent = "current"
	Bucket1to30   = "1-30"
	Bucket31to60  = "31-60"
	Bucket61to90  = "61-90"
	Bucket90Plus  = "90+"
)

var bucketOrder = []string{BucketCurrent, Bucket1to30, Bucket31to60, Bucket61to90, Bucket90Plus}

// AgingBucket summarises an amount inside a days-overdue bucket.
type AgingBucket struct {
	Bucket string  `json:"bucket"`
	Amount float64 `json:"amount"`
}

// Aging distributes positive residuals over days-overdue buckets. Every bucket
// is present in the result, empty ones with a zero amount.
func Aging(invoices []Invoice, today time.Time) []AgingBucket {
	today = civilDate(today)
	sums := make(map[string]decimal.Decimal, len(bucketOrder))
	for _, inv := range invoices {
		if inv.AmountResidual <= 0 {
			continue
		}
		days := 0
		if due, ok := inv.Due(); ok {
			days = daysBetween(due, today)
		}
		bucket := bucketFor(days)
		sums[bucket] = sums[bucket].Add(decimal.NewFromFloat(inv.AmountResidual))
	}
	out := make([]AgingBucket, 0, len(bucketOrder))
	for _, name := range bucketOrder {
		out = append(out, AgingBucket{Bucket: name, Amount: round2(sums[name])})
	}
	return out
}

func bucketFor(days int) string {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1to30
	case days <= 60:
		return Bucket31to60
	case days <= 90:
		return Bucket61to90
	default:
		return Bucket90Plus
	}
}
