package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
)

type tierBody struct {
	Tier  int             `json:"tier" validate:"min=1,max=6"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tier":2,"price":"12.50"}`))
	var body tierBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Tier != 2 || !body.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"tier":1,"price":"1","extra":true}`,
		"tier range":     `{"tier":7,"price":"1"}`,
		"negative price": `{"tier":1,"price":"-0.01"}`,
		"malformed":      `{"tier":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body tierBody
			err := DecodeJSONBody(req, &body)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("articleID", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "articleID")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "missing"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseOptionalUUIDQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?customer_id=nope", nil)
	if _, err := ParseOptionalUUIDQuery(req, "customer_id"); err == nil {
		t.Fatalf("expected error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseOptionalUUIDQuery(req, "customer_id")
	if err != nil || got != nil {
		t.Fatalf("expected nil, got %v (%v)", got, err)
	}
}
