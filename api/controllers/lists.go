package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/api/middleware"
	"github.com/angelmondragon/listini-pricing/api/responses"
	"github.com/angelmondragon/listini-pricing/api/validators"
	"github.com/angelmondragon/listini-pricing/internal/composer"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/types"
)

// ListComposer is implemented by *composer.Composer.
type ListComposer interface {
	Create(customerID *uuid.UUID) composer.ListView
	Get(listID uuid.UUID) (composer.ListView, error)
	Discard(listID uuid.UUID) error
	AddLine(ctx context.Context, listID, articleID uuid.UUID, quantity decimal.Decimal) (composer.LineView, error)
	SetQuantity(listID, lineID uuid.UUID, quantity decimal.Decimal) (composer.LineView, error)
	SetCustomer(ctx context.Context, listID uuid.UUID, customerID *uuid.UUID) (composer.ListView, error)
	SelectTiers(ctx context.Context, authz auth.Authorizer, listID, lineID uuid.UUID, cessionTier, publicTier int) (composer.LineView, error)
	ApplyOverride(authz auth.Authorizer, listID, lineID uuid.UUID, cessionPrice, publicPrice decimal.Decimal) (composer.LineView, error)
	RemoveLine(listID, lineID uuid.UUID) error
}

type createListRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
}

func ListCreate(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body createListRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, svc.Create(body.CustomerID))
	}
}

func ListGet(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, err := validators.ParseUUIDParam(r, "listId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Get(listID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ListDiscard(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, err := validators.ParseUUIDParam(r, "listId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Discard(listID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type setCustomerRequest struct {
	CustomerID types.NullableUUID `json:"customer_id"`
}

// ListSetCustomer re-prices the list for another customer; null clears it.
func ListSetCustomer(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, err := validators.ParseUUIDParam(r, "listId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body setCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !body.CustomerID.Set {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required, use null to clear"))
			return
		}

		view, err := svc.SetCustomer(ctx, listID, body.CustomerID.Ptr())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type addLineRequest struct {
	ArticleID uuid.UUID       `json:"article_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

func ListAddLine(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, err := validators.ParseUUIDParam(r, "listId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body addLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		line, err := svc.AddLine(ctx, listID, body.ArticleID, body.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

type setQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

func ListSetQuantity(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, lineID, err := listAndLine(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		line, err := svc.SetQuantity(listID, lineID, body.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func ListRemoveLine(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, lineID, err := listAndLine(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.RemoveLine(listID, lineID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type lineTiersRequest struct {
	CessionTier int `json:"cession_tier" validate:"min=1,max=6"`
	PublicTier  int `json:"public_tier" validate:"min=1,max=6"`
}

func ListSelectTiers(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, lineID, err := listAndLine(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body lineTiersRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		line, err := svc.SelectTiers(ctx, middleware.AuthorizerFromContext(ctx), listID, lineID, body.CessionTier, body.PublicTier)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

type overrideRequest struct {
	CessionPrice decimal.Decimal `json:"cession_price" validate:"gte=0"`
	PublicPrice  decimal.Decimal `json:"public_price" validate:"gte=0"`
}

func ListApplyOverride(svc ListComposer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		listID, lineID, err := listAndLine(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body overrideRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		line, err := svc.ApplyOverride(middleware.AuthorizerFromContext(ctx), listID, lineID, body.CessionPrice, body.PublicPrice)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func listAndLine(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	listID, err := validators.ParseUUIDParam(r, "listId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	lineID, err := validators.ParseUUIDParam(r, "lineId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return listID, lineID, nil
}
