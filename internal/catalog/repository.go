package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listini-pricing/pkg/db/models"
)

// Repository reads and writes the catalog tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindItem loads the item together with its VAT rate.
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := r.db.WithContext(ctx).
		Preload("VatRate").
		First(&item, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListTiers returns every stored tier of an item ordered by tier number.
func (r *Repository) ListTiers(ctx context.Context, itemID uuid.UUID) ([]models.PriceTier, error) {
	var tiers []models.PriceTier
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("tier_number ASC").
		Find(&tiers).
		Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *Repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// ReplaceTiers swaps the item's whole ladder. Run it inside a transaction.
func (r *Repository) ReplaceTiers(ctx context.Context, itemID uuid.UUID, tiers []models.PriceTier) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("item_id = ?", itemID).Delete(&models.PriceTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	return tx.Create(&tiers).Error
}

// ArticlesWithTierBoundary lists items with a tier that became active in
// (from, to] or expired in [from, to).
func (r *Repository) ArticlesWithTierBoundary(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.PriceTier{}).
		Distinct("item_id").
		Where("(valid_from > ? AND valid_from <= ?) OR (valid_to >= ? AND valid_to < ?)", from, to, from, to).
		Pluck("item_id", &ids).
		Error; err != nil {
		return nil, err
	}
	return ids, nil
}
