// internal/domain/pricing/pricing.go
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// All amounts are in paise (1/100 INR).

var hundred = decimal.NewFromInt(100)

// Item is the minimal shape needed to price a line
type Item struct {
	BasePrice int64   `json:"base_price"`
	Offer     float64 `json:"offer"` // percentage, 0-100
	Quantity  int     `json:"quantity"`
}

// Summary aggregates priced lines
type Summary struct {
	Gross   int64 `json:"gross"`
	Total   int64 `json:"total"`
	Savings int64 `json:"savings"`
}

// NormalizeOffer clamps an offer percentage into [0, 100]. NaN counts as no offer.
func NormalizeOffer(offer float64) float64 {
	switch {
	case math.IsNaN(offer), offer <= 0:
		return 0
	case offer >= 100:
		return 100
	default:
		return offer
	}
}

// EffectivePrice returns basePrice minus the offer discount, rounded to the nearest paisa
func EffectivePrice(basePrice int64, offer float64) int64 {
	pct := NormalizeOffer(offer)
	if pct == 0 {
		return basePrice
	}

	base := decimal.NewFromInt(basePrice)
	discount := base.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(0)
	return base.Sub(discount).IntPart()
}

// LineTotal prices a line at the effective unit price
func LineTotal(item Item) int64 {
	return EffectivePrice(item.BasePrice, item.Offer) * int64(item.Quantity)
}

// GrossTotal prices a line without any offer
func GrossTotal(item Item) int64 {
	return item.BasePrice * int64(item.Quantity)
}

// Savings is what the offer takes off a line
func Savings(item Item) int64 {
	return GrossTotal(item) - LineTotal(item)
}

// CartTotal sums LineTotal over items
func CartTotal(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += LineTotal(item)
	}
	return total
}

// CartSavings sums Savings over items
func CartSavings(items []Item) int64 {
	var savings int64
	for _, item := range items {
		savings += Savings(item)
	}
	return savings
}

// Summarize computes gross, total and savings in one pass
func Summarize(items []Item) Summary {
	var s Summary
	for _, item := range items {
		line := LineTotal(item)
		gross := GrossTotal(item)
		s.Gross += gross
		s.Total += line
		s.Savings += gross - line
	}
	return s
}

// FormatRupees renders paise as a fixed two-decimal rupee amount, e.g. 12345 -> "123.45"
func FormatRupees(paise int64) string {
	return decimal.New(paise, -2).StringFixed(2)
}
