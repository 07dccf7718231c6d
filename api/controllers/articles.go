package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/api/middleware"
	"github.com/angelmondragon/listini-pricing/api/responses"
	"github.com/angelmondragon/listini-pricing/api/validators"
	"github.com/angelmondragon/listini-pricing/internal/catalog"
	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

// PriceResolver is the read side of article pricing.
type PriceResolver interface {
	Resolve(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID) (pricing.Resolution, error)
	SelectTiers(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID, cessionTier, publicTier int) (pricing.PriceSelection, error)
	Tiers(ctx context.Context, articleID uuid.UUID) (*pricing.TierTable, error)
}

// TierEditor is the write side of article pricing.
type TierEditor interface {
	Item(ctx context.Context, articleID uuid.UUID) (catalog.ItemDTO, error)
	PreviewTier(ctx context.Context, articleID uuid.UUID, tierNumber int, cessionMarkupPct, publicMarkupPct decimal.Decimal) (pricing.PriceTier, error)
	SaveTiers(ctx context.Context, authz auth.Authorizer, articleID uuid.UUID, tiers []pricing.PriceTier, confirm bool) (catalog.SaveResult, error)
}

type articleTiersResponse struct {
	Item  catalog.ItemDTO     `json:"item"`
	Tiers []pricing.PriceTier `json:"tiers"`
}

// ArticleTiers returns the article and the tiers currently in force.
func ArticleTiers(resolver PriceResolver, editor TierEditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleID, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := editor.Item(ctx, articleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		table, err := resolver.Tiers(ctx, articleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, articleTiersResponse{Item: item, Tiers: table.Tiers()})
	}
}

// ArticlePrice resolves the article's prices, optionally for ?customer_id=.
func ArticlePrice(resolver PriceResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleID, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		customerID, err := validators.ParseOptionalUUIDQuery(r, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resolution, err := resolver.Resolve(ctx, articleID, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

type selectionRequest struct {
	CustomerID  *uuid.UUID `json:"customer_id"`
	CessionTier int        `json:"cession_tier" validate:"min=1,max=6"`
	PublicTier  int        `json:"public_tier" validate:"min=1,max=6"`
}

// ArticleSelectTiers confirms a tier pair from the chooser.
func ArticleSelectTiers(resolver PriceResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !auth.CanEditPrices(middleware.AuthorizerFromContext(ctx)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "price editing not permitted"))
			return
		}
		articleID, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body selectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		selection, err := resolver.SelectTiers(ctx, articleID, body.CustomerID, body.CessionTier, body.PublicTier)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, selection)
	}
}

type previewRequest struct {
	CessionMarkupPct decimal.Decimal `json:"cession_markup_pct" validate:"gte=0"`
	PublicMarkupPct  decimal.Decimal `json:"public_markup_pct" validate:"gte=0"`
}

func ArticlePreviewTier(editor TierEditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleID, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tier, err := strconv.Atoi(chi.URLParam(r, "tier"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tier must be numeric"))
			return
		}
		var body previewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		preview, err := editor.PreviewTier(ctx, articleID, tier, body.CessionMarkupPct, body.PublicMarkupPct)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

type saveTiersRequest struct {
	Confirm bool                `json:"confirm"`
	Tiers   []pricing.PriceTier `json:"tiers" validate:"required,min=1,max=6"`
}

// ArticleSaveTiers replaces the ladder. Rule violations come back as 422 with
// the violations in details until the request is repeated with confirm=true.
func ArticleSaveTiers(editor TierEditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleID, err := validators.ParseUUIDParam(r, "articleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body saveTiersRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := editor.SaveTiers(ctx, middleware.AuthorizerFromContext(ctx), articleID, body.Tiers, body.Confirm)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Violations == nil {
			result.Violations = []pricing.Violation{}
		}
		responses.WriteSuccess(w, result)
	}
}
