package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/pkg/enums"
)

// Violation describes one tier that breaks a consistency rule. Violations are
// warnings: persisting a tier set that has them needs explicit confirmation.
type Violation struct {
	Tier      int                 `json:"tier"`
	Kind      enums.ViolationKind `json:"kind"`
	Price     decimal.Decimal     `json:"price"`
	Minimum   decimal.Decimal     `json:"minimum"`
	Shortfall decimal.Decimal     `json:"shortfall"`
	Message   string              `json:"message"`
}

// Validate checks every supplied tier independently against the base cost and VAT.
// Input errors (negative cost or VAT, bad or duplicate tier numbers) are returned as
// an error; rule breaches are returned as violations ordered by tier.
func Validate(tiers []PriceTier, baseCost, vatPct decimal.Decimal) ([]Violation, error) {
	if err := requireNonNegative("base cost", baseCost); err != nil {
		return nil, err
	}
	if err := requireNonNegative("vat rate", vatPct); err != nil {
		return nil, err
	}

	ordered := make([]PriceTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	seen := make(map[int]struct{}, len(ordered))
	var violations []Violation
	for _, tier := range ordered {
		if err := checkTier(tier); err != nil {
			return nil, err
		}
		if _, dup := seen[tier.Number]; dup {
			return nil, invalidInput("tier %d appears more than once", tier.Number)
		}
		seen[tier.Number] = struct{}{}

		if tier.CessionPrice.LessThan(baseCost) {
			shortfall := baseCost.Sub(tier.CessionPrice)
			violations = append(violations, Violation{
				Tier:      tier.Number,
				Kind:      enums.ViolationCessionBelowCost,
				Price:     tier.CessionPrice,
				Minimum:   baseCost,
				Shortfall: shortfall,
				Message: fmt.Sprintf("tier %d: cession price %s is below base cost %s (short by %s)",
					tier.Number, tier.CessionPrice.StringFixed(CessionPlaces), baseCost.StringFixed(CessionPlaces), shortfall.StringFixed(CessionPlaces)),
			})
		}

		minimum := MinimumPublicPrice(tier.CessionPrice, vatPct)
		if tier.PublicPrice.LessThan(minimum) {
			shortfall := minimum.Sub(tier.PublicPrice)
			violations = append(violations, Violation{
				Tier:      tier.Number,
				Kind:      enums.ViolationPublicBelowCessionVAT,
				Price:     tier.PublicPrice,
				Minimum:   minimum,
				Shortfall: shortfall,
				Message: fmt.Sprintf("tier %d: public price %s is below cession price plus VAT %s (short by %s)",
					tier.Number, tier.PublicPrice.StringFixed(PublicPlaces), minimum.String(), shortfall.String()),
			})
		}
	}
	return violations, nil
}
