package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketsClassification(t *testing.T) {
	var b Buckets

	// Charges arrive negative from the marketplace
	b.Add("FBAPerUnitFulfillmentFee", -3.22)
	b.Add("Commission", -4.50)
	b.Add("RefundCommission", -0.80)
	b.Add("StorageFee", -0.12)
	b.Add("VariableClosingFee", -1.00)

	assert.InDelta(t, 4.22, b.Fulfillment, 1e-9)
	assert.InDelta(t, 4.50, b.Referral, 1e-9)
	assert.InDelta(t, 0.80, b.Refund, 1e-9)
	assert.InDelta(t, 0.12, b.Storage, 1e-9)
	assert.InDelta(t, 9.64, b.Total(), 1e-9)
}

func TestBucketsSettlementDescriptions(t *testing.T) {
	// Settlement flat files use amount-description values in the same
	// vocabulary
	var b Buckets
	b.Add("FBA weight based fee", -2.10)
	b.Add("Referral Fee", -3.00)

	assert.InDelta(t, 2.10, b.Fulfillment, 1e-9)
	assert.InDelta(t, 3.00, b.Referral, 1e-9)
}

func TestBucketsRefundBeatsCommission(t *testing.T) {
	// "RefundCommission" mentions both; refund wins
	var b Buckets
	b.Add("RefundCommission", -1.00)

	assert.InDelta(t, 1.00, b.Refund, 1e-9)
	assert.Zero(t, b.Referral)
}
