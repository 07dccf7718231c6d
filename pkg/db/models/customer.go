package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer carries the default listini applied when pricing for them.
type Customer struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	DefaultCessionTier *int      `gorm:"column:default_cession_tier"`
	DefaultPublicTier  *int      `gorm:"column:default_public_tier"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
