package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VatRate is a named VAT percentage referenced by catalog items.
type VatRate struct {
	Code       string          `gorm:"column:code;primaryKey"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
