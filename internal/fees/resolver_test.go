package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRealFeeUsedVerbatim(t *testing.T) {
	averages := NewAverageTable()
	averages.Add("B000TEST01", "SKU-1", 9.99)

	item := Item{
		ASIN:            "B000TEST01",
		SellerSKU:       "SKU-1",
		QuantityOrdered: 2,
		ItemPrice:       50.00,
		StoredFee:       7.42,
		FeeSource:       SourceAPI,
	}

	res := Resolve(item, averages)
	assert.Equal(t, Real, res.Source)
	assert.Equal(t, 7.42, res.Amount)

	item.FeeSource = SourceSettlement
	res = Resolve(item, averages)
	assert.Equal(t, Real, res.Source)
	assert.Equal(t, 7.42, res.Amount)
}

func TestResolveZeroRealFeeFallsThrough(t *testing.T) {
	// A real source with a zero fee means the fee never actually synced;
	// it must not be trusted as "really zero".
	item := Item{
		ASIN:            "B000TEST02",
		QuantityOrdered: 2,
		ItemPrice:       10.00,
		StoredFee:       0,
		FeeSource:       SourceAPI,
	}

	averages := NewAverageTable()
	averages.Add("B000TEST02", "", 1.50)

	res := Resolve(item, averages)
	assert.Equal(t, Historical, res.Source)
	assert.InDelta(t, 3.00, res.Amount, 1e-9)
}

func TestResolveHistoricalAverageTimesQuantity(t *testing.T) {
	averages := NewAverageTable()
	averages.Add("B000TEST03", "SKU-3", 1.50)

	item := Item{
		ASIN:            "B000TEST03",
		SellerSKU:       "SKU-3",
		QuantityOrdered: 2,
		ItemPrice:       40.00,
		FeeSource:       SourceNone,
	}

	res := Resolve(item, averages)
	assert.Equal(t, Historical, res.Source)
	assert.InDelta(t, 3.00, res.Amount, 1e-9)
}

func TestResolveSKUFallbackWhenASINUnknown(t *testing.T) {
	averages := NewAverageTable()
	averages.Add("", "SKU-4", 2.25)

	item := Item{
		ASIN:            "B000UNKNOWN",
		SellerSKU:       "SKU-4",
		QuantityOrdered: 3,
		ItemPrice:       30.00,
		FeeSource:       SourceNone,
	}

	res := Resolve(item, averages)
	assert.Equal(t, Historical, res.Source)
	assert.InDelta(t, 6.75, res.Amount, 1e-9)
}

func TestResolveFlatEstimateFallback(t *testing.T) {
	item := Item{
		ASIN:            "B000TEST05",
		QuantityOrdered: 1,
		ItemPrice:       19.99,
		FeeSource:       SourceNone,
	}

	res := Resolve(item, NewAverageTable())
	assert.Equal(t, Estimated, res.Source)
	assert.InDelta(t, 19.99*0.15, res.Amount, 1e-9)

	// nil table behaves the same as an empty one
	res = Resolve(item, nil)
	assert.Equal(t, Estimated, res.Source)
	assert.InDelta(t, 19.99*0.15, res.Amount, 1e-9)
}

func TestResolveZeroAverageIsNotHistorical(t *testing.T) {
	averages := NewAverageTable()
	averages.Add("B000TEST06", "", 0)

	item := Item{
		ASIN:            "B000TEST06",
		QuantityOrdered: 1,
		ItemPrice:       10.00,
		FeeSource:       SourceNone,
	}

	res := Resolve(item, averages)
	assert.Equal(t, Estimated, res.Source)
	assert.InDelta(t, 1.50, res.Amount, 1e-9)
}

func TestAverageTableLaterEntryWins(t *testing.T) {
	averages := NewAverageTable()
	averages.Add("B000DUP", "SKU-A", 1.00)
	averages.Add("B000DUP", "SKU-B", 2.00)

	avg, ok := averages.Lookup("B000DUP", "")
	assert.True(t, ok)
	assert.Equal(t, 2.00, avg)
}

func TestIsRealSource(t *testing.T) {
	assert.True(t, IsRealSource(SourceAPI))
	assert.True(t, IsRealSource(SourceSettlement))
	assert.False(t, IsRealSource(SourceNone))
	assert.False(t, IsRealSource(""))
	assert.False(t, IsRealSource("manual"))
}

func TestProvenanceString(t *testing.T) {
	assert.Equal(t, "real", Real.String())
	assert.Equal(t, "historical", Historical.String())
	assert.Equal(t, "estimated", Estimated.String())
}
