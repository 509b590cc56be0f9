package fees

import (
	"math"
	"strings"
)

// Buckets accumulates raw marketplace fee charges into the four fee columns
// stored per order item. The same vocabulary appears as FeeType in financial
// events and as amount-description in settlement flat files.
type Buckets struct {
	Fulfillment float64
	Referral    float64
	Storage     float64
	Refund      float64
}

// Add classifies one fee charge by type name. Charge amounts arrive negative
// from the marketplace; fees are stored as positive magnitudes.
func (b *Buckets) Add(feeType string, amount float64) {
	amt := math.Abs(amount)
	t := strings.ToLower(feeType)

	switch {
	case strings.Contains(t, "refund"):
		b.Refund += amt
	case strings.Contains(t, "commission"), strings.Contains(t, "referral"):
		b.Referral += amt
	case strings.Contains(t, "storage"):
		b.Storage += amt
	default:
		// FBA per-unit, weight-based and miscellaneous charges
		b.Fulfillment += amt
	}
}

// Total is the sum across all buckets.
func (b Buckets) Total() float64 {
	return b.Fulfillment + b.Referral + b.Storage + b.Refund
}
