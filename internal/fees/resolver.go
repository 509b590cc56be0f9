// Package fees resolves the Amazon fee amount for an order item from the best
// available source: real synced fees, historical per-unit averages, or a flat
// estimate.
package fees

// Fee source tags persisted on order items.
const (
	SourceNone       = "none"
	SourceAPI        = "api"
	SourceSettlement = "settlement_report"
)

// DefaultFeeRate is the flat fallback applied when an item has no synced fee
// and no historical average: 15% of item price.
const DefaultFeeRate = 0.15

// Provenance labels where a resolved fee amount came from.
type Provenance int

const (
	// Estimated means the flat DefaultFeeRate fallback was applied.
	Estimated Provenance = iota
	// Historical means a product-level average fee per unit was used.
	Historical
	// Real means the stored fee was synced from the API or a settlement report.
	Real
)

func (p Provenance) String() string {
	switch p {
	case Real:
		return "real"
	case Historical:
		return "historical"
	default:
		return "estimated"
	}
}

// Item is the minimal order-item view the resolver needs.
type Item struct {
	ASIN            string
	SellerSKU       string
	QuantityOrdered int
	ItemPrice       float64
	StoredFee       float64
	FeeSource       string
}

// Resolution is a fee amount plus its provenance.
type Resolution struct {
	Amount float64
	Source Provenance
}

// IsRealSource reports whether a fee_source tag marks trustworthy fee fields.
// Items tagged "none" must never be counted as real fees.
func IsRealSource(feeSource string) bool {
	return feeSource == SourceAPI || feeSource == SourceSettlement
}

// AverageTable holds historical per-unit fee averages keyed by ASIN with a
// seller-SKU fallback. Entries added later overwrite earlier ones, matching
// how duplicate product rows have always been handled.
type AverageTable struct {
	byASIN map[string]float64
	bySKU  map[string]float64
}

func NewAverageTable() *AverageTable {
	return &AverageTable{
		byASIN: make(map[string]float64),
		bySKU:  make(map[string]float64),
	}
}

// Add registers a product's average fee per unit under its ASIN and SKU.
func (t *AverageTable) Add(asin, sku string, avgFeePerUnit float64) {
	if asin != "" {
		t.byASIN[asin] = avgFeePerUnit
	}
	if sku != "" {
		t.bySKU[sku] = avgFeePerUnit
	}
}

// Lookup returns the average for an ASIN, falling back to SKU.
func (t *AverageTable) Lookup(asin, sku string) (float64, bool) {
	if avg, ok := t.byASIN[asin]; ok {
		return avg, true
	}
	if avg, ok := t.bySKU[sku]; ok {
		return avg, true
	}
	return 0, false
}

// Resolve returns the fee amount for an item and where it came from.
//
// Pure function, no retries:
//  1. A real fee source (api / settlement_report) with a stored fee > 0 is
//     used verbatim.
//  2. Otherwise a historical average fee per unit (ASIN first, SKU fallback)
//     multiplied by quantity, when the average is > 0.
//  3. Otherwise the flat 15% of item price.
func Resolve(item Item, averages *AverageTable) Resolution {
	if IsRealSource(item.FeeSource) && item.StoredFee > 0 {
		return Resolution{Amount: item.StoredFee, Source: Real}
	}

	if averages != nil {
		if avg, ok := averages.Lookup(item.ASIN, item.SellerSKU); ok && avg > 0 {
			return Resolution{
				Amount: avg * float64(item.QuantityOrdered),
				Source: Historical,
			}
		}
	}

	return Resolution{Amount: item.ItemPrice * DefaultFeeRate, Source: Estimated}
}
