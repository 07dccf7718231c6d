package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	// CessionPlaces keeps sub-cent precision so downstream quantity multiplication stays exact.
	CessionPlaces int32 = 4
	PublicPlaces  int32 = 2
	MarkupPlaces  int32 = 2
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// percentFactor turns 22 into 1.22.
func percentFactor(pct decimal.Decimal) decimal.Decimal {
	return one.Add(pct.Div(hundred))
}

// ComputeCessionPrice returns baseCost * (1 + markup/100) rounded to four places.
func ComputeCessionPrice(baseCost, cessionMarkupPct decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative("base cost", baseCost); err != nil {
		return decimal.Zero, err
	}
	if err := requireNonNegative("cession markup", cessionMarkupPct); err != nil {
		return decimal.Zero, err
	}
	return baseCost.Mul(percentFactor(cessionMarkupPct)).Round(CessionPlaces), nil
}

// ComputePublicPrice returns the VAT-inclusive public price rounded to two places.
//
// The markup is applied twice: once inside the cession price and again on top of the
// VAT-inclusive cession price. Pending business review; callers that need a single
// application should use cession * (1 + vat/100) directly.
func ComputePublicPrice(baseCost, cessionMarkupPct, vatPct decimal.Decimal) (decimal.Decimal, error) {
	cession, err := ComputeCessionPrice(baseCost, cessionMarkupPct)
	if err != nil {
		return decimal.Zero, err
	}
	if err := requireNonNegative("vat rate", vatPct); err != nil {
		return decimal.Zero, err
	}
	return cession.
		Mul(percentFactor(vatPct)).
		Mul(percentFactor(cessionMarkupPct)).
		Round(PublicPlaces), nil
}

// MarkupFromCessionPrice recovers the markup percentage implied by an edited cession price.
func MarkupFromCessionPrice(baseCost, cessionPrice decimal.Decimal) (decimal.Decimal, error) {
	if err := requireNonNegative("cession price", cessionPrice); err != nil {
		return decimal.Zero, err
	}
	if !baseCost.IsPositive() {
		return decimal.Zero, invalidInput("base cost must be positive to derive a markup, got %s", baseCost.String())
	}
	return cessionPrice.Div(baseCost).Sub(one).Mul(hundred).Round(MarkupPlaces), nil
}

// MinimumPublicPrice is the lowest public price consistent with the cession price
// and VAT. It is left unrounded so a public price a fraction of a cent short is caught.
func MinimumPublicPrice(cessionPrice, vatPct decimal.Decimal) decimal.Decimal {
	return cessionPrice.Mul(percentFactor(vatPct))
}
