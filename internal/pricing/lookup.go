package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/pkg/enums"
)

// PriceLookup is the backend collaborator the resolver consults.
type PriceLookup interface {
	// CalculatedPrices returns the customer-specific prices for an article.
	CalculatedPrices(ctx context.Context, articleID, customerID uuid.UUID) (LookupResult, error)
	// AvailableTiers returns the article's tier ladder.
	AvailableTiers(ctx context.Context, articleID uuid.UUID) (*TierTable, error)
}

// CalculatedPrices carries a backend-computed price pair and the tiers it came from.
type CalculatedPrices struct {
	CessionPrice    decimal.Decimal `json:"cession_price"`
	PublicPrice     decimal.Decimal `json:"public_price"`
	CessionTierUsed *int            `json:"cession_tier_used,omitempty"`
	PublicTierUsed  *int            `json:"public_tier_used,omitempty"`
}

// Usable reports whether at least one of the prices is set.
func (p CalculatedPrices) Usable() bool {
	return p.CessionPrice.IsPositive() || p.PublicPrice.IsPositive()
}

// TierOption is one entry offered by the tier chooser.
type TierOption struct {
	Tier         int             `json:"tier"`
	CessionPrice decimal.Decimal `json:"cession_price"`
	PublicPrice  decimal.Decimal `json:"public_price"`
}

// LookupResult is Found(prices) | ChoiceRequired(options) | NotFound.
type LookupResult struct {
	Outcome enums.LookupOutcome `json:"outcome"`
	Prices  CalculatedPrices    `json:"prices"`
	Options []TierOption        `json:"options,omitempty"`
}

func Found(prices CalculatedPrices) LookupResult {
	return LookupResult{Outcome: enums.LookupOutcomeFound, Prices: prices}
}

func ChoiceRequired(options []TierOption) LookupResult {
	return LookupResult{Outcome: enums.LookupOutcomeChoiceRequired, Options: options}
}

func NotFound() LookupResult {
	return LookupResult{Outcome: enums.LookupOutcomeNotFound}
}

func tierRef(n int) *int {
	return &n
}
