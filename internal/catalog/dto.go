package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/db/models"
)

// ItemDTO is the pricing-relevant view of a catalog item.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	VatCode     string          `json:"vat_code"`
	VatPct      decimal.Decimal `json:"vat_pct"`
}

// SaveResult reports what was persisted and any violations the operator confirmed.
type SaveResult struct {
	ArticleID  uuid.UUID           `json:"article_id"`
	Tiers      []pricing.PriceTier `json:"tiers"`
	Violations []pricing.Violation `json:"violations"`
}

func itemFromModel(m *models.CatalogItem) ItemDTO {
	dto := ItemDTO{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		BaseCost:    m.BaseCost,
		VatCode:     m.VatCode,
	}
	if m.VatRate != nil {
		dto.VatPct = m.VatRate.Percentage
	}
	return dto
}

func tierFromModel(m models.PriceTier) pricing.PriceTier {
	return pricing.PriceTier{
		Number:           m.TierNumber,
		CessionMarkupPct: m.CessionMarkupPct,
		CessionPrice:     m.CessionPrice,
		PublicMarkupPct:  m.PublicMarkupPct,
		PublicPrice:      m.PublicPrice,
		ValidFrom:        m.ValidFrom,
		ValidTo:          m.ValidTo,
	}
}

func tierToModel(itemID uuid.UUID, t pricing.PriceTier) models.PriceTier {
	return models.PriceTier{
		ID:               uuid.New(),
		ItemID:           itemID,
		TierNumber:       t.Number,
		CessionMarkupPct: t.CessionMarkupPct,
		CessionPrice:     t.CessionPrice,
		PublicMarkupPct:  t.PublicMarkupPct,
		PublicPrice:      t.PublicPrice,
		ValidFrom:        t.ValidFrom,
		ValidTo:          t.ValidTo,
	}
}
