package domain

import (
	"github.com/shopspring/decimal"

	"github.com/qs-lzh/miccheck/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Quote is the price of a set of spots. Amounts[i] is what spots[i] is
// charged, and the amounts always add up to Total.
type Quote struct {
	Baseline decimal.Decimal
	Total    decimal.Decimal
	Amounts  []decimal.Decimal
}

// PriceSpots prices spots with an optional coupon. The coupon must already
// have passed its eligibility check.
//
// A fixed coupon replaces the baseline with value per spot, a percent coupon
// takes value percent off the baseline. The total is rounded to cents and
// never goes below zero. It is split across spots by whole cents, with the
// leftover cents going one each to the first spots.
func PriceSpots(spots []model.Spot, coupon *model.Coupon) Quote {
	baseline := decimal.Zero
	for _, spot := range spots {
		baseline = baseline.Add(spot.Price)
	}
	n := int64(len(spots))

	total := baseline
	if coupon != nil {
		switch coupon.DiscountType {
		case model.DiscountFixed:
			total = coupon.DiscountValue.Mul(decimal.NewFromInt(n))
		case model.DiscountPercent:
			total = baseline.Mul(hundred.Sub(coupon.DiscountValue)).Div(hundred)
		}
	}
	total = total.Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Baseline: baseline,
		Total:    total,
		Amounts:  splitCents(total, n),
	}
}

func splitCents(total decimal.Decimal, n int64) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	cents := total.Shift(2).IntPart()
	share, rest := cents/n, cents%n
	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		c := share
		if int64(i) < rest {
			c++
		}
		amounts[i] = decimal.New(c, -2)
	}
	return amounts
}
