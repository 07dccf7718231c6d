package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/api/responses"
	"github.com/angelmondragon/listini-pricing/api/validators"
	"github.com/angelmondragon/listini-pricing/internal/pricing"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

type markupRequest struct {
	BaseCost         decimal.Decimal  `json:"base_cost" validate:"gte=0"`
	CessionMarkupPct *decimal.Decimal `json:"cession_markup_pct"`
	CessionPrice     *decimal.Decimal `json:"cession_price"`
	VatPct           decimal.Decimal  `json:"vat_pct" validate:"gte=0"`
}

type markupResponse struct {
	CessionMarkupPct decimal.Decimal `json:"cession_markup_pct"`
	CessionPrice     decimal.Decimal `json:"cession_price"`
	PublicPrice      decimal.Decimal `json:"public_price"`
}

// PricingMarkup computes a tier's prices from a markup, or the markup implied
// by an edited cession price when cession_price is sent instead.
func PricingMarkup(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body markupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		markup, err := markupFor(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cession, err := pricing.ComputeCessionPrice(body.BaseCost, markup)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		public, err := pricing.ComputePublicPrice(body.BaseCost, markup, body.VatPct)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, markupResponse{
			CessionMarkupPct: markup,
			CessionPrice:     cession,
			PublicPrice:      public,
		})
	}
}

func markupFor(body markupRequest) (decimal.Decimal, error) {
	switch {
	case body.CessionMarkupPct != nil && body.CessionPrice != nil:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "send either cession_markup_pct or cession_price")
	case body.CessionMarkupPct != nil:
		return *body.CessionMarkupPct, nil
	case body.CessionPrice != nil:
		return pricing.MarkupFromCessionPrice(body.BaseCost, *body.CessionPrice)
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cession_markup_pct or cession_price is required")
	}
}

type validateRequest struct {
	BaseCost decimal.Decimal     `json:"base_cost" validate:"gte=0"`
	VatPct   decimal.Decimal     `json:"vat_pct" validate:"gte=0"`
	Tiers    []pricing.PriceTier `json:"tiers" validate:"required,min=1,max=6"`
}

// PricingValidate reports violations without persisting anything.
func PricingValidate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body validateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		violations, err := pricing.Validate(body.Tiers, body.BaseCost, body.VatPct)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if violations == nil {
			violations = []pricing.Violation{}
		}
		responses.WriteSuccess(w, map[string]any{
			"valid":      len(violations) == 0,
			"violations": violations,
		})
	}
}
