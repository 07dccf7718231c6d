package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTier is one row of an item's listino ladder.
type PriceTier struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID           uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	TierNumber       int             `gorm:"column:tier_number;not null"`
	CessionMarkupPct decimal.Decimal `gorm:"column:cession_markup_pct;type:numeric(7,2);not null"`
	CessionPrice     decimal.Decimal `gorm:"column:cession_price;type:numeric(14,4);not null"`
	PublicMarkupPct  decimal.Decimal `gorm:"column:public_markup_pct;type:numeric(7,2);not null"`
	PublicPrice      decimal.Decimal `gorm:"column:public_price;type:numeric(14,2);not null"`
	ValidFrom        time.Time       `gorm:"column:valid_from;not null"`
	ValidTo          *time.Time      `gorm:"column:valid_to"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
