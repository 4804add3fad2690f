package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name  string
		base  int64
		offer float64
		want  int64
	}{
		{"no offer", 49900, 0, 49900},
		{"ten percent", 100000, 10, 90000},
		{"half rounds discount up", 999, 50, 499},
		{"fractional offer", 20000, 12.5, 17500},
		{"full discount", 59900, 100, 0},
		{"negative offer treated as none", 1000, -5, 1000},
		{"offer above hundred clamped", 1000, 150, 0},
		{"nan offer treated as none", 1000, math.NaN(), 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectivePrice(tt.base, tt.offer))
		})
	}
}

func TestEffectivePrice_NeverExceedsBase(t *testing.T) {
	offers := []float64{0, 0.5, 1, 7.25, 10, 33.33, 49.99, 50, 66.67, 99, 99.99, 100}
	for base := int64(0); base <= 5000; base += 37 {
		for _, offer := range offers {
			got := EffectivePrice(base, offer)
			assert.LessOrEqual(t, got, base, "base=%d offer=%v", base, offer)
			assert.GreaterOrEqual(t, got, int64(0), "base=%d offer=%v", base, offer)
			if offer == 0 {
				assert.Equal(t, base, got)
			}
		}
	}
}

func TestCartTotals_AreAdditive(t *testing.T) {
	items := []Item{
		{BasePrice: 129900, Offer: 15, Quantity: 2},
		{BasePrice: 999, Offer: 33.33, Quantity: 7},
		{BasePrice: 45000, Offer: 0, Quantity: 1},
		{BasePrice: 1, Offer: 50, Quantity: 3},
	}

	var wantTotal, wantSavings int64
	for _, item := range items {
		wantTotal += LineTotal(item)
		wantSavings += Savings(item)
	}

	assert.Equal(t, wantTotal, CartTotal(items))
	assert.Equal(t, wantSavings, CartSavings(items))

	summary := Summarize(items)
	assert.Equal(t, wantTotal, summary.Total)
	assert.Equal(t, wantSavings, summary.Savings)
	assert.Equal(t, summary.Gross, summary.Total+summary.Savings)
}

func TestSavings_MatchesOfferWhenExact(t *testing.T) {
	item := Item{BasePrice: 20000, Offer: 25, Quantity: 3}

	// 200.00 x 3 x 25% = 150.00
	assert.Equal(t, int64(15000), Savings(item))
	assert.Equal(t, int64(45000), LineTotal(item))
}

func TestCartTotal_Empty(t *testing.T) {
	assert.Zero(t, CartTotal(nil))
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "123.45", FormatRupees(12345))
	assert.Equal(t, "1.00", FormatRupees(100))
	assert.Equal(t, "0.05", FormatRupees(5))
	assert.Equal(t, "0.00", FormatRupees(0))
}
