package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is a sellable article with its purchase cost.
type CatalogItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string          `gorm:"column:code;not null"`
	Description string          `gorm:"column:description;not null"`
	BaseCost    decimal.Decimal `gorm:"column:base_cost;type:numeric(14,4);not null"`
	VatCode     string          `gorm:"column:vat_code;not null"`
	VatRate     *VatRate        `gorm:"foreignKey:VatCode;references:Code"`
	Tiers       []PriceTier     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
