// Package metrics reduces a period's orders and line items into the dashboard
// totals. Stateless: fetch, reduce, return.
package metrics

import (
	"sort"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/fees"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
)

// SourceBreakdown counts how many line items resolved through each fee
// provenance, so callers can report how trustworthy a fee total is.
type SourceBreakdown struct {
	Real       int `json:"real"`
	Historical int `json:"historical"`
	Estimated  int `json:"estimated"`
}

func (b *SourceBreakdown) add(p fees.Provenance) {
	switch p {
	case fees.Real:
		b.Real++
	case fees.Historical:
		b.Historical++
	default:
		b.Estimated++
	}
}

// Summary is the reduction over one period for one tenant.
type Summary struct {
	Orders     int             `json:"orders"`
	Units      int             `json:"units"`
	Sales      float64         `json:"sales"`
	AmazonFees float64         `json:"amazonFees"`
	FeeSource  SourceBreakdown `json:"feeSource"`
}

// ASINSummary is the same reduction keyed by ASIN.
type ASINSummary struct {
	ASIN       string          `json:"asin"`
	SellerSKU  string          `json:"sellerSku"`
	Orders     int             `json:"orders"`
	Units      int             `json:"units"`
	Sales      float64         `json:"sales"`
	AmazonFees float64         `json:"amazonFees"`
	FeeSource  SourceBreakdown `json:"feeSource"`
}

// ItemDetail is the per-item breakdown exposed in _debug responses while fee
// totals are validated against external references.
type ItemDetail struct {
	AmazonOrderID string  `json:"amazonOrderId"`
	OrderItemID   string  `json:"orderItemId"`
	ASIN          string  `json:"asin"`
	Quantity      int     `json:"quantity"`
	ItemPrice     float64 `json:"itemPrice"`
	ResolvedFee   float64 `json:"resolvedFee"`
	FeeProvenance string  `json:"feeProvenance"`
	StoredSource  string  `json:"storedSource"`
}

func resolveItem(item store.OrderItem, averages *fees.AverageTable) fees.Resolution {
	return fees.Resolve(fees.Item{
		ASIN:            item.ASIN,
		SellerSKU:       item.SellerSKU,
		QuantityOrdered: item.QuantityOrdered,
		ItemPrice:       item.ItemPrice,
		StoredFee:       item.TotalFees(),
		FeeSource:       item.FeeSource,
	}, averages)
}

// Aggregate reduces orders and their line items to the period totals. Items
// whose order is not in the order set are ignored, which guards against
// double counting from duplicate joins. Summation order does not matter.
func Aggregate(orders []store.Order, items []store.OrderItem, averages *fees.AverageTable) (Summary, []ItemDetail) {
	inPeriod := make(map[string]bool, len(orders))
	for _, o := range orders {
		inPeriod[o.AmazonOrderID] = true
	}

	summary := Summary{Orders: len(orders)}
	details := make([]ItemDetail, 0, len(items))

	for _, item := range items {
		if !inPeriod[item.AmazonOrderID] {
			continue
		}

		resolution := resolveItem(item, averages)

		summary.Units += item.QuantityOrdered
		summary.Sales += item.ItemPrice
		summary.AmazonFees += resolution.Amount
		summary.FeeSource.add(resolution.Source)

		details = append(details, ItemDetail{
			AmazonOrderID: item.AmazonOrderID,
			OrderItemID:   item.OrderItemID,
			ASIN:          item.ASIN,
			Quantity:      item.QuantityOrdered,
			ItemPrice:     item.ItemPrice,
			ResolvedFee:   resolution.Amount,
			FeeProvenance: resolution.Source.String(),
			StoredSource:  item.FeeSource,
		})
	}

	return summary, details
}

// AggregateByASIN runs the same reduction grouped by ASIN. Order counts per
// ASIN count distinct orders containing that ASIN. Results are sorted by
// sales descending for display.
func AggregateByASIN(orders []store.Order, items []store.OrderItem, averages *fees.AverageTable) []ASINSummary {
	inPeriod := make(map[string]bool, len(orders))
	for _, o := range orders {
		inPeriod[o.AmazonOrderID] = true
	}

	groups := make(map[string]*ASINSummary)
	seenOrders := make(map[string]map[string]bool)

	for _, item := range items {
		if !inPeriod[item.AmazonOrderID] {
			continue
		}

		group, ok := groups[item.ASIN]
		if !ok {
			group = &ASINSummary{ASIN: item.ASIN, SellerSKU: item.SellerSKU}
			groups[item.ASIN] = group
			seenOrders[item.ASIN] = make(map[string]bool)
		}

		if !seenOrders[item.ASIN][item.AmazonOrderID] {
			seenOrders[item.ASIN][item.AmazonOrderID] = true
			group.Orders++
		}

		resolution := resolveItem(item, averages)

		group.Units += item.QuantityOrdered
		group.Sales += item.ItemPrice
		group.AmazonFees += resolution.Amount
		group.FeeSource.add(resolution.Source)
	}

	result := make([]ASINSummary, 0, len(groups))
	for _, group := range groups {
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Sales != result[j].Sales {
			return result[i].Sales > result[j].Sales
		}
		return result[i].ASIN < result[j].ASIN
	})
	return result
}

// BuildAverageTable folds product rows into the fee lookup, preserving
// creation order so duplicate ASIN rows resolve to the newest entry.
func BuildAverageTable(products []store.ProductFee) *fees.AverageTable {
	table := fees.NewAverageTable()
	for _, p := range products {
		table.Add(p.ASIN, p.SellerSKU, p.AvgFeePerUnit)
	}
	return table
}
