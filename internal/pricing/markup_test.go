package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeCessionPrice(t *testing.T) {
	t.Parallel()

	got, err := ComputeCessionPrice(dec("100"), dec("10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StringFixed(4) != "110.0000" {
		t.Fatalf("expected 110.0000, got %s", got.StringFixed(4))
	}

	got, err = ComputeCessionPrice(dec("12.3456"), dec("33.3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 12.3456 * 1.333 = 16.4566848
	if !got.Equal(dec("16.4567")) {
		t.Fatalf("expected rounding to four places, got %s", got)
	}
}

func TestComputePublicPriceCompoundsMarkup(t *testing.T) {
	t.Parallel()

	got, err := ComputePublicPrice(dec("100"), dec("10"), dec("22"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StringFixed(2) != "147.62" {
		t.Fatalf("expected 147.62, got %s", got.StringFixed(2))
	}

	zero, err := ComputePublicPrice(dec("0"), dec("50"), dec("22"))
	if err != nil || !zero.IsZero() {
		t.Fatalf("expected zero public price for zero cost, got %s (%v)", zero, err)
	}
}

func TestMarkupRejectsNegativeInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		run  func() error
	}{
		{"negative cost", func() error { _, err := ComputeCessionPrice(dec("-1"), dec("10")); return err }},
		{"negative markup", func() error { _, err := ComputeCessionPrice(dec("10"), dec("-5")); return err }},
		{"negative vat", func() error { _, err := ComputePublicPrice(dec("10"), dec("5"), dec("-22")); return err }},
		{"negative edited price", func() error { _, err := MarkupFromCessionPrice(dec("10"), dec("-1")); return err }},
		{"zero base for markup", func() error { _, err := MarkupFromCessionPrice(dec("0"), dec("10")); return err }},
	}
	for _, tc := range cases {
		if err := tc.run(); !IsInvalidInput(err) {
			t.Fatalf("%s: expected invalid input error, got %v", tc.name, err)
		}
	}
}

func TestMarkupFromCessionPriceInvertsCession(t *testing.T) {
	t.Parallel()

	markup, err := MarkupFromCessionPrice(dec("80"), dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !markup.Equal(dec("25")) {
		t.Fatalf("expected 25%% markup, got %s", markup)
	}

	cession, err := ComputeCessionPrice(dec("80"), markup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cession.Equal(dec("100")) {
		t.Fatalf("expected round trip to 100, got %s", cession)
	}
}

func TestMinimumPublicPrice(t *testing.T) {
	t.Parallel()

	if got := MinimumPublicPrice(dec("100"), dec("22")); !got.Equal(dec("122")) {
		t.Fatalf("expected 122, got %s", got)
	}
	if got := MinimumPublicPrice(dec("110.0045"), dec("22")); !got.Equal(dec("134.20549")) {
		t.Fatalf("expected 134.20549, got %s", got)
	}
}
