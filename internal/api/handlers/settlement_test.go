package handlers

import (
	"strings"
	"testing"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/spapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settlementFile(rows ...string) []byte {
	header := strings.Join([]string{
		"settlement-id", "transaction-type", "order-id", "amount-type",
		"amount-description", "amount", "order-item-code", "sku", "quantity-purchased",
	}, "\t")
	return []byte(header + "\n" + strings.Join(rows, "\n") + "\n")
}

func row(cols ...string) string {
	return strings.Join(cols, "\t")
}

func TestParseSettlementFeesGroupsByItem(t *testing.T) {
	content := settlementFile(
		row("S1", "Order", "111-1", "ItemFees", "Commission", "-4.50", "10001", "SKU-A", "2"),
		row("S1", "Order", "111-1", "ItemFees", "FBAPerUnitFulfillmentFee", "-3.22", "10001", "SKU-A", "2"),
		row("S1", "Order", "111-2", "ItemFees", "Commission", "-1.10", "10002", "SKU-B", "1"),
	)

	itemFees, skipped, err := parseSettlementFees(content)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, itemFees, 2)

	b := itemFees[settlementItemKey{orderID: "111-1", orderItemID: "10001"}]
	require.NotNil(t, b)
	assert.InDelta(t, 4.50, b.Referral, 1e-9)
	assert.InDelta(t, 3.22, b.Fulfillment, 1e-9)

	b = itemFees[settlementItemKey{orderID: "111-2", orderItemID: "10002"}]
	require.NotNil(t, b)
	assert.InDelta(t, 1.10, b.Referral, 1e-9)
}

func TestParseSettlementFeesSkipsNonItemRows(t *testing.T) {
	content := settlementFile(
		// Order-level principal, no fee
		row("S1", "Order", "111-1", "ItemPrice", "Principal", "59.98", "10001", "SKU-A", "2"),
		// Account-level transfer has no order at all
		row("S1", "Transfer", "", "other-transaction", "Transfer", "-120.00", "", "", ""),
		// Fee row without an item code cannot be attributed
		row("S1", "Order", "111-1", "ItemFees", "Commission", "-4.50", "", "SKU-A", "2"),
		// Unparseable amount
		row("S1", "Order", "111-1", "ItemFees", "Commission", "n/a", "10001", "SKU-A", "2"),
		// The one good row
		row("S1", "Order", "111-1", "ItemFees", "Commission", "-4.50", "10001", "SKU-A", "2"),
	)

	itemFees, skipped, err := parseSettlementFees(content)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, itemFees, 1)
}

func TestParseSettlementFeesHeaderValidation(t *testing.T) {
	_, _, err := parseSettlementFees([]byte("just-one-line"))
	assert.Error(t, err)

	_, _, err = parseSettlementFees([]byte("settlement-id\tcurrency\nS1\tUSD\n"))
	assert.Error(t, err)
}

func TestParseSettlementFeesCRLF(t *testing.T) {
	content := []byte("order-id\tamount-type\tamount-description\tamount\torder-item-code\r\n" +
		"111-1\tItemFees\tCommission\t-2.00\t10001\r\n")

	itemFees, skipped, err := parseSettlementFees(content)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, itemFees, 1)
	assert.InDelta(t, 2.00, itemFees[settlementItemKey{orderID: "111-1", orderItemID: "10001"}].Referral, 1e-9)
}

func TestBucketFeesByItemMergesShipmentAndRefund(t *testing.T) {
	events := &spapi.FinancialEvents{
		ShipmentEventList: []spapi.ShipmentEvent{{
			AmazonOrderID: "111-1",
			ShipmentItemList: []spapi.ShipmentItem{{
				OrderItemID: "10001",
				ItemFeeList: []spapi.FeeComponent{
					{FeeType: "Commission", FeeAmount: spapi.Money{Amount: -4.50}},
					{FeeType: "FBAPerUnitFulfillmentFee", FeeAmount: spapi.Money{Amount: -3.22}},
				},
			}},
		}},
		RefundEventList: []spapi.ShipmentEvent{{
			AmazonOrderID: "111-1",
			ShipmentItemList: []spapi.ShipmentItem{{
				OrderItemID: "10001",
				ItemFeeAdjustmentList: []spapi.FeeComponent{
					{FeeType: "RefundCommission", FeeAmount: spapi.Money{Amount: -0.80}},
				},
			}},
		}},
	}

	itemFees := bucketFeesByItem(events)
	require.Len(t, itemFees, 1)

	b := itemFees["10001"]
	require.NotNil(t, b)
	assert.InDelta(t, 4.50, b.Referral, 1e-9)
	assert.InDelta(t, 3.22, b.Fulfillment, 1e-9)
	assert.InDelta(t, 0.80, b.Refund, 1e-9)
	assert.InDelta(t, 8.52, b.Total(), 1e-9)
}

func TestBucketFeesByItemNilEvents(t *testing.T) {
	assert.Empty(t, bucketFeesByItem(nil))
}
