package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	"github.com/angelmondragon/listini-pricing/pkg/db"
	"github.com/angelmondragon/listini-pricing/pkg/db/models"
	"github.com/angelmondragon/listini-pricing/pkg/enums"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	statements := []string{`
CREATE TABLE vat_rates (
  code TEXT PRIMARY KEY,
  percentage TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE catalog_items (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  base_cost TEXT NOT NULL,
  vat_code TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE price_tiers (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  tier_number INTEGER NOT NULL,
  cession_markup_pct TEXT NOT NULL,
  cession_price TEXT NOT NULL,
  public_markup_pct TEXT NOT NULL,
  public_price TEXT NOT NULL,
  valid_from DATETIME NOT NULL,
  valid_to DATETIME,
  created_at DATETIME,
  UNIQUE (item_id, tier_number)
);`, `
CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  default_cession_tier INTEGER,
  default_public_tier INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type recordingInvalidator struct {
	articles []uuid.UUID
	err      error
}

func (r *recordingInvalidator) InvalidateArticle(ctx context.Context, articleID uuid.UUID) error {
	r.articles = append(r.articles, articleID)
	return r.err
}

type fixture struct {
	conn        *gorm.DB
	svc         *Service
	invalidator *recordingInvalidator
	itemID      uuid.UUID
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := setupCatalogTestDB(t)

	require.NoError(t, conn.Create(&models.VatRate{Code: "IVA22", Percentage: d("22")}).Error)
	item := models.CatalogItem{ID: uuid.New(), Code: "ART-001", Description: "Widget", BaseCost: d("50"), VatCode: "IVA22"}
	require.NoError(t, conn.Create(&item).Error)

	expired := testNow.Add(-24 * time.Hour)
	tiers := []models.PriceTier{
		{ID: uuid.New(), ItemID: item.ID, TierNumber: 1, CessionMarkupPct: d("0"), CessionPrice: d("50"), PublicMarkupPct: d("0"), PublicPrice: d("61"), ValidFrom: testNow.Add(-48 * time.Hour)},
		{ID: uuid.New(), ItemID: item.ID, TierNumber: 2, CessionMarkupPct: d("0"), CessionPrice: d("45"), PublicMarkupPct: d("0"), PublicPrice: d("55"), ValidFrom: testNow.Add(-48 * time.Hour)},
		{ID: uuid.New(), ItemID: item.ID, TierNumber: 3, CessionMarkupPct: d("0"), CessionPrice: d("40"), PublicMarkupPct: d("0"), PublicPrice: d("49"), ValidFrom: testNow.Add(-72 * time.Hour), ValidTo: &expired},
		{ID: uuid.New(), ItemID: item.ID, TierNumber: 4, CessionMarkupPct: d("0"), CessionPrice: d("38"), PublicMarkupPct: d("0"), PublicPrice: d("47"), ValidFrom: testNow.Add(24 * time.Hour)},
	}
	require.NoError(t, conn.Create(&tiers).Error)

	inv := &recordingInvalidator{}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Tx:          db.Wrap(conn),
		Invalidator: inv,
		Now:         func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, invalidator: inv, itemID: item.ID}
}

func (f fixture) customer(t *testing.T, cession, public *int) uuid.UUID {
	t.Helper()
	c := models.Customer{ID: uuid.New(), Name: "Rossi Srl", DefaultCessionTier: cession, DefaultPublicTier: public}
	require.NoError(t, f.conn.Create(&c).Error)
	return c.ID
}

func intPtr(v int) *int { return &v }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(nil)})
	require.Error(t, err)
}

func TestAvailableTiersOnlyReturnsActiveWindow(t *testing.T) {
	f := newFixture(t)

	table, err := f.svc.AvailableTiers(context.Background(), f.itemID)
	require.NoError(t, err)

	numbers := []int{}
	for _, tier := range table.Tiers() {
		numbers = append(numbers, tier.Number)
	}
	assert.Equal(t, []int{1, 2}, numbers)
	tier, ok := table.Tier(1)
	require.True(t, ok)
	assert.True(t, tier.PublicPrice.Equal(d("61")))
}

func TestAvailableTiersUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AvailableTiers(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCalculatedPricesOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unknown customer", func(t *testing.T) {
		res, err := f.svc.CalculatedPrices(ctx, f.itemID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, enums.LookupOutcomeNotFound, res.Outcome)
	})

	t.Run("no defaults requires a choice", func(t *testing.T) {
		res, err := f.svc.CalculatedPrices(ctx, f.itemID, f.customer(t, nil, nil))
		require.NoError(t, err)
		assert.Equal(t, enums.LookupOutcomeChoiceRequired, res.Outcome)
		require.Len(t, res.Options, 2)
		assert.Equal(t, 1, res.Options[0].Tier)
	})

	t.Run("both defaults", func(t *testing.T) {
		res, err := f.svc.CalculatedPrices(ctx, f.itemID, f.customer(t, intPtr(2), intPtr(1)))
		require.NoError(t, err)
		require.Equal(t, enums.LookupOutcomeFound, res.Outcome)
		assert.True(t, res.Prices.CessionPrice.Equal(d("45")))
		assert.True(t, res.Prices.PublicPrice.Equal(d("61")))
		assert.Equal(t, 2, *res.Prices.CessionTierUsed)
		assert.Equal(t, 1, *res.Prices.PublicTierUsed)
	})

	t.Run("single default serves both", func(t *testing.T) {
		res, err := f.svc.CalculatedPrices(ctx, f.itemID, f.customer(t, nil, intPtr(2)))
		require.NoError(t, err)
		require.Equal(t, enums.LookupOutcomeFound, res.Outcome)
		assert.True(t, res.Prices.CessionPrice.Equal(d("45")))
		assert.True(t, res.Prices.PublicPrice.Equal(d("55")))
	})

	t.Run("default tier not active", func(t *testing.T) {
		res, err := f.svc.CalculatedPrices(ctx, f.itemID, f.customer(t, intPtr(3), intPtr(3)))
		require.NoError(t, err)
		assert.Equal(t, enums.LookupOutcomeNotFound, res.Outcome)
	})
}

func TestPreviewTier(t *testing.T) {
	f := newFixture(t)

	tier, err := f.svc.PreviewTier(context.Background(), f.itemID, 2, d("10"), d("10"))
	require.NoError(t, err)
	assert.Equal(t, "55.0000", tier.CessionPrice.StringFixed(4))
	// 50 * 1.10 * 1.22 * 1.10
	assert.Equal(t, "73.81", tier.PublicPrice.StringFixed(2))

	_, err = f.svc.PreviewTier(context.Background(), f.itemID, 7, d("10"), d("10"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PreviewTier(context.Background(), f.itemID, 1, d("-1"), d("10"))
	assert.True(t, pricing.IsInvalidInput(err))
}

func TestSaveTiersRequiresCapability(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SaveTiers(context.Background(), auth.Deny, f.itemID, []pricing.PriceTier{{Number: 1}}, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.SaveTiers(context.Background(), nil, f.itemID, []pricing.PriceTier{{Number: 1}}, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Empty(t, f.invalidator.articles)
}

func TestSaveTiersSoftGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	belowCost := []pricing.PriceTier{
		{Number: 1, CessionPrice: d("40"), PublicPrice: d("100")},
		{Number: 2, CessionPrice: d("60"), PublicPrice: d("80")},
	}

	_, err := f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, belowCost, false)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	violations, ok := details["violations"].([]pricing.Violation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, 1, violations[0].Tier)

	stored, err := NewRepository(f.conn).ListTiers(ctx, f.itemID)
	require.NoError(t, err)
	assert.Len(t, stored, 4, "rejected save must not touch the ladder")

	result, err := f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, belowCost, true)
	require.NoError(t, err)
	assert.Len(t, result.Violations, 1)
	assert.Len(t, result.Tiers, 2)
	assert.Equal(t, []uuid.UUID{f.itemID}, f.invalidator.articles)

	stored, err = NewRepository(f.conn).ListTiers(ctx, f.itemID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].CessionPrice.Equal(d("40")))
	assert.False(t, stored[0].ValidFrom.IsZero())
}

func TestSaveTiersCleanSetNeedsNoConfirmation(t *testing.T) {
	f := newFixture(t)
	f.invalidator.err = errors.New("redis down")

	result, err := f.svc.SaveTiers(context.Background(), auth.AllowAll, f.itemID, []pricing.PriceTier{
		{Number: 1, CessionPrice: d("55"), PublicPrice: d("73.81")},
	}, false)
	require.NoError(t, err, "invalidation failures are logged, not returned")
	assert.Empty(t, result.Violations)

	table, err := f.svc.AvailableTiers(context.Background(), f.itemID)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestSaveTiersRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, nil, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, []pricing.PriceTier{{Number: 1, CessionPrice: d("-1")}}, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, []pricing.PriceTier{{Number: 1}, {Number: 1}}, true)
	assert.True(t, pricing.IsInvalidInput(err))

	_, err = f.svc.SaveTiers(ctx, auth.AllowAll, uuid.New(), []pricing.PriceTier{{Number: 1}}, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestSaveTiersDefaultsValidFromBeforeValidating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := testNow.Add(-24 * time.Hour)

	_, err := f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, []pricing.PriceTier{
		{Number: 1, CessionPrice: d("55"), PublicPrice: d("70"), ValidTo: &yesterday},
	}, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)

	stored, err := NewRepository(f.conn).ListTiers(ctx, f.itemID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	assert.Empty(t, f.invalidator.articles)
}

func TestSaveTiersValidatesStoredPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.SaveTiers(ctx, auth.AllowAll, f.itemID, []pricing.PriceTier{
		{Number: 1, CessionMarkupPct: d("12.345"), CessionPrice: d("50.00004"), PublicPrice: d("60.996")},
	}, false)
	require.NoError(t, err)
	assert.Empty(t, result.Violations)

	stored, err := NewRepository(f.conn).ListTiers(ctx, f.itemID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "50.0000", stored[0].CessionPrice.StringFixed(4))
	assert.True(t, stored[0].PublicPrice.Equal(d("61")), "got %s", stored[0].PublicPrice)
	assert.True(t, stored[0].CessionMarkupPct.Equal(d("12.35")), "got %s", stored[0].CessionMarkupPct)
}
