package composer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	"github.com/angelmondragon/listini-pricing/pkg/enums"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
)

type stubResolver struct {
	mu sync.Mutex
	// prices per customer; the nil customer uses uuid.Nil.
	prices  map[uuid.UUID]decimal.Decimal
	choice  map[uuid.UUID]bool
	blockOn map[uuid.UUID]chan struct{}
	entered chan uuid.UUID
	calls   int
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		prices:  map[uuid.UUID]decimal.Decimal{},
		choice:  map[uuid.UUID]bool{},
		blockOn: map[uuid.UUID]chan struct{}{},
		entered: make(chan uuid.UUID, 16),
	}
}

func customerKey(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func (s *stubResolver) Resolve(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID) (pricing.Resolution, error) {
	key := customerKey(customerID)
	s.mu.Lock()
	s.calls++
	block := s.blockOn[key]
	price, ok := s.prices[key]
	wantChoice := s.choice[key]
	s.mu.Unlock()

	if block != nil {
		s.entered <- key
		<-block
	}
	if wantChoice {
		return pricing.Resolution{Choice: &pricing.TierChoice{
			ArticleID:  articleID,
			CustomerID: customerID,
			Options: []pricing.TierOption{
				{Tier: 1, CessionPrice: dec("50"), PublicPrice: dec("61")},
				{Tier: 2, CessionPrice: dec("45"), PublicPrice: dec("55")},
			},
		}}, nil
	}
	if !ok {
		price = dec("50")
	}
	return pricing.Resolution{Selection: &pricing.PriceSelection{
		ArticleID:    articleID,
		CustomerID:   customerID,
		CessionPrice: price,
		PublicPrice:  price.Mul(dec("1.22")).Round(2),
		Source:       enums.PriceSourceCustomer,
	}}, nil
}

func (s *stubResolver) SelectTiers(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID, cessionTier, publicTier int) (pricing.PriceSelection, error) {
	c, p := cessionTier, publicTier
	return pricing.PriceSelection{
		ArticleID:       articleID,
		CustomerID:      customerID,
		CessionPrice:    dec("45"),
		PublicPrice:     dec("61"),
		CessionTierUsed: &c,
		PublicTierUsed:  &p,
		Source:          enums.PriceSourceTierChoice,
	}, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newTestComposer(t *testing.T, r Resolver, m *metrics.PricingMetrics) *Composer {
	t.Helper()
	c, err := New(Params{Resolver: r, Metrics: m})
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}
	return c
}

func TestAddLineResolvesAndTotals(t *testing.T) {
	r := newStubResolver()
	customer := uuid.New()
	r.prices[customer] = dec("12.3456")
	c := newTestComposer(t, r, nil)

	list := c.Create(&customer)
	line, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("3"))
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if line.Selection == nil || !line.Selection.CessionPrice.Equal(dec("12.3456")) {
		t.Fatalf("unexpected selection %+v", line.Selection)
	}
	if !line.LineTotal.Equal(dec("37.04")) {
		t.Fatalf("expected line total 37.04, got %s", line.LineTotal)
	}

	if _, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("1")); err != nil {
		t.Fatalf("add second line: %v", err)
	}
	view, err := c.Get(list.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(view.Lines))
	}
	if !view.Total.Equal(dec("49.39")) {
		t.Fatalf("expected total 49.39, got %s", view.Total)
	}
}

func TestAddLineRejectsBadInput(t *testing.T) {
	c := newTestComposer(t, newStubResolver(), nil)
	list := c.Create(nil)

	_, err := c.AddLine(context.Background(), list.ID, uuid.New(), decimal.Zero)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	_, err = c.AddLine(context.Background(), list.ID, uuid.Nil, dec("1"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil article, got %v", err)
	}
	_, err = c.AddLine(context.Background(), uuid.New(), uuid.New(), dec("1"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown list, got %v", err)
	}
}

func TestAddLineKeepsPendingChoice(t *testing.T) {
	r := newStubResolver()
	customer := uuid.New()
	r.choice[customer] = true
	c := newTestComposer(t, r, nil)

	list := c.Create(&customer)
	line, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("2"))
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if line.Selection != nil || line.Choice == nil || len(line.Choice.Options) != 2 {
		t.Fatalf("expected pending choice, got %+v", line)
	}
	if !line.LineTotal.IsZero() {
		t.Fatalf("pending line must not contribute to total, got %s", line.LineTotal)
	}

	selected, err := c.SelectTiers(context.Background(), auth.AllowAll, list.ID, line.ID, 2, 1)
	if err != nil {
		t.Fatalf("select tiers: %v", err)
	}
	if selected.Choice != nil || selected.Selection == nil {
		t.Fatalf("expected resolved line, got %+v", selected)
	}
	if *selected.Selection.CessionTierUsed != 2 || *selected.Selection.PublicTierUsed != 1 {
		t.Fatalf("unexpected tiers %+v", selected.Selection)
	}
	if !selected.LineTotal.Equal(dec("90")) {
		t.Fatalf("expected line total 90, got %s", selected.LineTotal)
	}
}

func TestEditingRequiresCapability(t *testing.T) {
	c := newTestComposer(t, newStubResolver(), nil)
	list := c.Create(nil)
	line, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("1"))
	if err != nil {
		t.Fatalf("add line: %v", err)
	}

	_, err = c.SelectTiers(context.Background(), auth.Deny, list.ID, line.ID, 1, 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden select, got %v", err)
	}
	_, err = c.ApplyOverride(nil, list.ID, line.ID, dec("1"), dec("2"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden override, got %v", err)
	}
}

func TestOverrideSurvivesCustomerChange(t *testing.T) {
	r := newStubResolver()
	first, second := uuid.New(), uuid.New()
	r.prices[first] = dec("50")
	r.prices[second] = dec("30")
	c := newTestComposer(t, r, nil)

	list := c.Create(&first)
	manual, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("1"))
	if err != nil {
		t.Fatalf("add manual line: %v", err)
	}
	auto, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("1"))
	if err != nil {
		t.Fatalf("add auto line: %v", err)
	}
	if _, err := c.ApplyOverride(auth.AllowAll, list.ID, manual.ID, dec("42.5"), dec("55")); err != nil {
		t.Fatalf("override: %v", err)
	}

	view, err := c.SetCustomer(context.Background(), list.ID, &second)
	if err != nil {
		t.Fatalf("set customer: %v", err)
	}
	byID := map[uuid.UUID]LineView{}
	for _, l := range view.Lines {
		byID[l.ID] = l
	}
	m := byID[manual.ID]
	if !m.Selection.IsCustomPrice || !m.Selection.CessionPrice.Equal(dec("42.5")) {
		t.Fatalf("manual line re-priced: %+v", m.Selection)
	}
	if m.Selection.CustomerID == nil || *m.Selection.CustomerID != second {
		t.Fatalf("manual line customer not updated: %+v", m.Selection)
	}
	a := byID[auto.ID]
	if !a.Selection.CessionPrice.Equal(dec("30")) {
		t.Fatalf("auto line not re-priced: %+v", a.Selection)
	}
	if !view.Total.Equal(dec("72.5")) {
		t.Fatalf("expected total 72.5, got %s", view.Total)
	}
}

func TestStaleResolutionDiscarded(t *testing.T) {
	r := newStubResolver()
	slow, fast := uuid.New(), uuid.New()
	r.prices[slow] = dec("99")
	r.prices[fast] = dec("20")
	release := make(chan struct{})
	r.blockOn[slow] = release

	reg := prometheus.NewRegistry()
	m := metrics.NewPricingMetrics(reg)
	c := newTestComposer(t, r, m)
	list := c.Create(&slow)

	type result struct {
		line LineView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("1"))
		done <- result{line, err}
	}()

	select {
	case <-r.entered:
	case <-time.After(time.Second):
		t.Fatal("resolver never entered")
	}

	view, err := c.SetCustomer(context.Background(), list.ID, &fast)
	if err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if len(view.Lines) != 1 || !view.Lines[0].Selection.CessionPrice.Equal(dec("20")) {
		t.Fatalf("expected fast price applied, got %+v", view.Lines)
	}

	close(release)
	res := <-done
	if res.err != nil {
		t.Fatalf("add line: %v", res.err)
	}
	if !res.line.Selection.CessionPrice.Equal(dec("20")) {
		t.Fatalf("stale price landed: %s", res.line.Selection.CessionPrice)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var stale float64
	for _, mf := range families {
		if mf.GetName() != "listini_stale_resolutions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			stale += metric.GetCounter().GetValue()
		}
	}
	if stale != 1 {
		t.Fatalf("expected 1 stale discard, got %v", stale)
	}
}

func TestRemoveLineAndDiscard(t *testing.T) {
	c := newTestComposer(t, newStubResolver(), nil)
	list := c.Create(nil)
	line, err := c.AddLine(context.Background(), list.ID, uuid.New(), dec("2"))
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := c.SetQuantity(list.ID, line.ID, dec("-1")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	updated, err := c.SetQuantity(list.ID, line.ID, dec("4"))
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if !updated.LineTotal.Equal(dec("200")) {
		t.Fatalf("expected 200, got %s", updated.LineTotal)
	}

	if err := c.RemoveLine(list.ID, line.ID); err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if err := c.RemoveLine(list.ID, line.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := c.Discard(list.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := c.Get(list.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected discarded list gone, got %v", err)
	}
}
