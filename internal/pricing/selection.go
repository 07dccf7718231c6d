package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/pkg/enums"
)

// PriceSelection is the price chosen for one line of a list being composed.
// Only the two prices are meant to be persisted; the tier numbers are for display.
type PriceSelection struct {
	ArticleID       uuid.UUID         `json:"article_id"`
	CustomerID      *uuid.UUID        `json:"customer_id,omitempty"`
	CessionPrice    decimal.Decimal   `json:"cession_price"`
	PublicPrice     decimal.Decimal   `json:"public_price"`
	CessionTierUsed *int              `json:"cession_tier_used,omitempty"`
	PublicTierUsed  *int              `json:"public_tier_used,omitempty"`
	IsCustomPrice   bool              `json:"is_custom_price"`
	Source          enums.PriceSource `json:"source"`
}

// ApplyManualOverride replaces any tier-derived prices with operator-entered ones.
func ApplyManualOverride(selection PriceSelection, cessionPrice, publicPrice decimal.Decimal) (PriceSelection, error) {
	if err := requireNonNegative("cession price", cessionPrice); err != nil {
		return selection, err
	}
	if err := requireNonNegative("public price", publicPrice); err != nil {
		return selection, err
	}
	selection.CessionPrice = cessionPrice
	selection.PublicPrice = publicPrice
	selection.CessionTierUsed = nil
	selection.PublicTierUsed = nil
	selection.IsCustomPrice = true
	selection.Source = enums.PriceSourceManual
	return selection, nil
}

func unpriced(articleID uuid.UUID, customerID *uuid.UUID) PriceSelection {
	return PriceSelection{
		ArticleID:    articleID,
		CustomerID:   customerID,
		CessionPrice: decimal.Zero,
		PublicPrice:  decimal.Zero,
		Source:       enums.PriceSourceUnpriced,
	}
}
