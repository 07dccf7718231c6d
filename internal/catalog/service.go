package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	"github.com/angelmondragon/listini-pricing/pkg/db"
	"github.com/angelmondragon/listini-pricing/pkg/db/models"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Invalidator drops cached lookups for an article after its ladder changes.
type Invalidator interface {
	InvalidateArticle(ctx context.Context, articleID uuid.UUID) error
}

type ServiceParams struct {
	Repo        *Repository
	Tx          txRunner
	Invalidator Invalidator
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service is the backend half of the price lookups and the tier editor.
type Service struct {
	repo        *Repository
	tx          txRunner
	invalidator Invalidator
	logg        *logger.Logger
	now         func() time.Time
}

var _ pricing.PriceLookup = (*Service)(nil)

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	svc := &Service{
		repo:        params.Repo,
		tx:          params.Tx,
		invalidator: params.Invalidator,
		logg:        params.Logger,
		now:         params.Now,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// SetInvalidator wires the cache that sits in front of this service. The cache
// is built from the service, so it can only be attached afterwards.
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// Item returns the article's base cost and VAT.
func (s *Service) Item(ctx context.Context, articleID uuid.UUID) (ItemDTO, error) {
	item, err := s.repo.FindItem(ctx, articleID)
	if err != nil {
		return ItemDTO{}, notFoundOr(err, "catalog item not found", "load catalog item")
	}
	return itemFromModel(item), nil
}

// AvailableTiers returns the tiers whose validity window covers the current time.
func (s *Service) AvailableTiers(ctx context.Context, articleID uuid.UUID) (*pricing.TierTable, error) {
	if _, err := s.repo.FindItem(ctx, articleID); err != nil {
		return nil, notFoundOr(err, "catalog item not found", "load catalog item")
	}
	rows, err := s.repo.ListTiers(ctx, articleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price tiers")
	}
	now := s.now()
	active := make([]pricing.PriceTier, 0, len(rows))
	for _, row := range rows {
		tier := tierFromModel(row)
		if tier.ActiveAt(now) {
			active = append(active, tier)
		}
	}
	table, err := pricing.NewTierTable(articleID, active)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored tiers are inconsistent")
	}
	return table, nil
}

// CalculatedPrices applies the customer's default tiers. A customer with no
// defaults needs an explicit choice; a single default serves both prices.
func (s *Service) CalculatedPrices(ctx context.Context, articleID, customerID uuid.UUID) (pricing.LookupResult, error) {
	customer, err := s.repo.FindCustomer(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pricing.NotFound(), nil
	}
	if err != nil {
		return pricing.LookupResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	table, err := s.AvailableTiers(ctx, articleID)
	if err != nil {
		return pricing.LookupResult{}, err
	}

	cessionTier, publicTier := customer.DefaultCessionTier, customer.DefaultPublicTier
	if cessionTier == nil && publicTier == nil {
		return pricing.ChoiceRequired(table.Options()), nil
	}
	if cessionTier == nil {
		cessionTier = publicTier
	}
	if publicTier == nil {
		publicTier = cessionTier
	}

	cession, ok := table.Tier(*cessionTier)
	if !ok {
		return pricing.NotFound(), nil
	}
	public, ok := table.Tier(*publicTier)
	if !ok {
		return pricing.NotFound(), nil
	}
	cessionUsed, publicUsed := cession.Number, public.Number
	return pricing.Found(pricing.CalculatedPrices{
		CessionPrice:    cession.CessionPrice,
		PublicPrice:     public.PublicPrice,
		CessionTierUsed: &cessionUsed,
		PublicTierUsed:  &publicUsed,
	}), nil
}

// PreviewTier computes a tier's prices from markups without persisting anything.
func (s *Service) PreviewTier(ctx context.Context, articleID uuid.UUID, tierNumber int, cessionMarkupPct, publicMarkupPct decimal.Decimal) (pricing.PriceTier, error) {
	if !pricing.ValidTier(tierNumber) {
		return pricing.PriceTier{}, pkgerrors.Newf(pkgerrors.CodeValidation, "tier must be between %d and %d", pricing.MinTier, pricing.MaxTier)
	}
	item, err := s.Item(ctx, articleID)
	if err != nil {
		return pricing.PriceTier{}, err
	}
	cession, err := pricing.ComputeCessionPrice(item.BaseCost, cessionMarkupPct)
	if err != nil {
		return pricing.PriceTier{}, err
	}
	public, err := pricing.ComputePublicPrice(item.BaseCost, publicMarkupPct, item.VatPct)
	if err != nil {
		return pricing.PriceTier{}, err
	}
	return pricing.PriceTier{
		Number:           tierNumber,
		CessionMarkupPct: cessionMarkupPct,
		CessionPrice:     cession,
		PublicMarkupPct:  publicMarkupPct,
		PublicPrice:      public,
		ValidFrom:        s.now().UTC(),
	}, nil
}

// SaveTiers replaces the article's ladder. Violations block the save unless the
// operator confirms; the confirmed violations are returned with the result.
func (s *Service) SaveTiers(ctx context.Context, authz auth.Authorizer, articleID uuid.UUID, tiers []pricing.PriceTier, confirm bool) (SaveResult, error) {
	if !auth.CanEditPrices(authz) {
		return SaveResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "price editing not permitted")
	}
	if len(tiers) == 0 {
		return SaveResult{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one tier is required")
	}
	now := s.now().UTC()
	normalized := make([]pricing.PriceTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.CessionPrice.IsNegative() || tier.PublicPrice.IsNegative() ||
			tier.CessionMarkupPct.IsNegative() || tier.PublicMarkupPct.IsNegative() {
			return SaveResult{}, pkgerrors.Newf(pkgerrors.CodeValidation, "tier %d has negative values", tier.Number)
		}
		normalized = append(normalized, normalizeTier(tier, now))
	}
	tiers = normalized

	item, err := s.Item(ctx, articleID)
	if err != nil {
		return SaveResult{}, err
	}

	violations, err := pricing.Validate(tiers, item.BaseCost, item.VatPct)
	if err != nil {
		return SaveResult{}, err
	}
	if len(violations) > 0 && !confirm {
		return SaveResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "tier set breaks pricing rules; confirm to save anyway").
			WithDetails(map[string]any{"violations": violations})
	}

	rows := make([]models.PriceTier, 0, len(tiers))
	for _, tier := range tiers {
		rows = append(rows, tierToModel(articleID, tier))
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceTiers(ctx, articleID, rows)
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return SaveResult{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "tier ladder changed concurrently")
		}
		return SaveResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace price tiers")
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateArticle(ctx, articleID); err != nil {
			wctx := s.logg.WithFields(ctx, map[string]any{"article_id": articleID.String(), "error": err.Error()})
			s.logg.Warn(wctx, "catalog.cache_invalidation_failed")
		}
	}

	saved := make([]pricing.PriceTier, 0, len(rows))
	for _, row := range rows {
		saved = append(saved, tierFromModel(row))
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].Number < saved[j].Number })
	ctx = s.logg.WithFields(ctx, map[string]any{
		"article_id": articleID.String(),
		"tiers":      len(saved),
		"violations": len(violations),
	})
	s.logg.Info(ctx, "catalog.tiers_saved")

	return SaveResult{ArticleID: articleID, Tiers: saved, Violations: violations}, nil
}

// normalizeTier brings a tier to the precision of the price_tiers columns and
// fills a missing valid_from, so the rules run on exactly what gets stored.
func normalizeTier(tier pricing.PriceTier, now time.Time) pricing.PriceTier {
	tier.CessionPrice = tier.CessionPrice.Round(pricing.CessionPlaces)
	tier.PublicPrice = tier.PublicPrice.Round(pricing.PublicPlaces)
	tier.CessionMarkupPct = tier.CessionMarkupPct.Round(pricing.MarkupPlaces)
	tier.PublicMarkupPct = tier.PublicMarkupPct.Round(pricing.MarkupPlaces)
	if tier.ValidFrom.IsZero() {
		tier.ValidFrom = now
	}
	return tier
}

func notFoundOr(err error, notFoundMsg, otherMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, otherMsg)
}
