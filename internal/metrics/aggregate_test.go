package metrics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/fees"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"

	"github.com/stretchr/testify/assert"
)

func testOrders() []store.Order {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	return []store.Order{
		{AmazonOrderID: "111-0000001-0000001", PurchaseDate: base, OrderStatus: "Shipped", OrderTotal: 59.98},
		{AmazonOrderID: "111-0000002-0000002", PurchaseDate: base.Add(time.Hour), OrderStatus: "Pending", OrderTotal: 19.99},
		{AmazonOrderID: "111-0000003-0000003", PurchaseDate: base.Add(2 * time.Hour), OrderStatus: "Canceled", OrderTotal: 10.00},
	}
}

func testItems() []store.OrderItem {
	return []store.OrderItem{
		{
			AmazonOrderID: "111-0000001-0000001", OrderItemID: "10001",
			ASIN: "B000AAAA01", SellerSKU: "SKU-A", QuantityOrdered: 2, ItemPrice: 59.98,
			ReferralFee: 6.00, FulfillmentFee: 3.00, FeeSource: fees.SourceAPI,
		},
		{
			AmazonOrderID: "111-0000002-0000002", OrderItemID: "10002",
			ASIN: "B000BBBB02", SellerSKU: "SKU-B", QuantityOrdered: 1, ItemPrice: 19.99,
			FeeSource: fees.SourceNone,
		},
		{
			AmazonOrderID: "111-0000003-0000003", OrderItemID: "10003",
			ASIN: "B000AAAA01", SellerSKU: "SKU-A", QuantityOrdered: 1, ItemPrice: 10.00,
			FeeSource: fees.SourceNone,
		},
	}
}

func TestAggregateTotals(t *testing.T) {
	averages := fees.NewAverageTable()
	averages.Add("B000BBBB02", "SKU-B", 2.00)

	summary, details := Aggregate(testOrders(), testItems(), averages)

	assert.Equal(t, 3, summary.Orders)
	assert.Equal(t, 4, summary.Units)
	assert.InDelta(t, 89.97, summary.Sales, 1e-9)
	// 9.00 real + 2.00 historical + 1.50 estimated (15% of 10.00)
	assert.InDelta(t, 12.50, summary.AmazonFees, 1e-9)
	assert.Equal(t, 1, summary.FeeSource.Real)
	assert.Equal(t, 1, summary.FeeSource.Historical)
	assert.Equal(t, 1, summary.FeeSource.Estimated)
	assert.Len(t, details, 3)
}

func TestAggregateOrderIndependent(t *testing.T) {
	orders := testOrders()
	items := testItems()
	averages := fees.NewAverageTable()
	averages.Add("B000BBBB02", "SKU-B", 2.00)

	expected, _ := Aggregate(orders, items, averages)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		r.Shuffle(len(items), func(a, b int) { items[a], items[b] = items[b], items[a] })
		r.Shuffle(len(orders), func(a, b int) { orders[a], orders[b] = orders[b], orders[a] })

		got, _ := Aggregate(orders, items, averages)
		assert.Equal(t, expected.Orders, got.Orders)
		assert.Equal(t, expected.Units, got.Units)
		assert.InDelta(t, expected.Sales, got.Sales, 1e-9)
		assert.InDelta(t, expected.AmazonFees, got.AmazonFees, 1e-9)
	}
}

func TestAggregateIgnoresItemsOutsideOrderSet(t *testing.T) {
	orders := testOrders()[:1]
	items := testItems()

	summary, details := Aggregate(orders, items, nil)

	assert.Equal(t, 1, summary.Orders)
	assert.Equal(t, 2, summary.Units)
	assert.InDelta(t, 59.98, summary.Sales, 1e-9)
	assert.Len(t, details, 1)
}

func TestAggregateExcludingCanceledShrinksTotals(t *testing.T) {
	all := testOrders()
	items := testItems()

	kept := make([]store.Order, 0, len(all))
	for _, o := range all {
		if !o.Canceled() {
			kept = append(kept, o)
		}
	}

	full, _ := Aggregate(all, items, nil)
	filtered, _ := Aggregate(kept, items, nil)

	assert.Less(t, filtered.Orders, full.Orders)
	assert.LessOrEqual(t, filtered.Units, full.Units)
	assert.LessOrEqual(t, filtered.Sales, full.Sales)
	assert.LessOrEqual(t, filtered.AmazonFees, full.AmazonFees)
}

func TestAggregateByASINGrouping(t *testing.T) {
	averages := fees.NewAverageTable()
	averages.Add("B000BBBB02", "SKU-B", 2.00)

	groups := AggregateByASIN(testOrders(), testItems(), averages)

	assert.Len(t, groups, 2)
	// Sorted by sales descending
	assert.Equal(t, "B000AAAA01", groups[0].ASIN)
	assert.Equal(t, 2, groups[0].Orders)
	assert.Equal(t, 3, groups[0].Units)
	assert.InDelta(t, 69.98, groups[0].Sales, 1e-9)
	assert.InDelta(t, 10.50, groups[0].AmazonFees, 1e-9)

	assert.Equal(t, "B000BBBB02", groups[1].ASIN)
	assert.Equal(t, 1, groups[1].Orders)
	assert.InDelta(t, 2.00, groups[1].AmazonFees, 1e-9)
}

func TestAggregateByASINCountsDistinctOrders(t *testing.T) {
	orders := []store.Order{
		{AmazonOrderID: "111-1", PurchaseDate: time.Now(), OrderStatus: "Shipped"},
	}
	// Two line items of the same ASIN in one order count as one order
	items := []store.OrderItem{
		{AmazonOrderID: "111-1", OrderItemID: "1", ASIN: "B000CCCC03", QuantityOrdered: 1, ItemPrice: 5.00, FeeSource: fees.SourceNone},
		{AmazonOrderID: "111-1", OrderItemID: "2", ASIN: "B000CCCC03", QuantityOrdered: 2, ItemPrice: 10.00, FeeSource: fees.SourceNone},
	}

	groups := AggregateByASIN(orders, items, nil)
	assert.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Orders)
	assert.Equal(t, 3, groups[0].Units)
}

func TestBuildAverageTableLastRowWins(t *testing.T) {
	products := []store.ProductFee{
		{ASIN: "B000DUP", SellerSKU: "SKU-OLD", AvgFeePerUnit: 1.00},
		{ASIN: "B000DUP", SellerSKU: "SKU-NEW", AvgFeePerUnit: 2.50},
	}

	table := BuildAverageTable(products)
	avg, ok := table.Lookup("B000DUP", "")
	assert.True(t, ok)
	assert.Equal(t, 2.50, avg)
}
