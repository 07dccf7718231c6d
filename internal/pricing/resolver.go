package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listini-pricing/pkg/enums"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
)

// DefaultLookupTimeout bounds each backend lookup when no timeout is configured.
const DefaultLookupTimeout = 3 * time.Second

// TierChoice is returned when the backend needs the operator to pick tiers explicitly.
type TierChoice struct {
	ArticleID  uuid.UUID    `json:"article_id"`
	CustomerID *uuid.UUID   `json:"customer_id,omitempty"`
	Options    []TierOption `json:"options"`
}

// Resolution holds either a selection or a pending tier choice, never both.
type Resolution struct {
	Selection *PriceSelection `json:"selection,omitempty"`
	Choice    *TierChoice     `json:"choice,omitempty"`
}

func (r Resolution) NeedsChoice() bool {
	return r.Choice != nil
}

type ResolverParams struct {
	Lookup        PriceLookup
	Logger        *logger.Logger
	Metrics       *metrics.PricingMetrics
	LookupTimeout time.Duration
}

// Resolver evaluates the price decision tree for one (article, customer) pair per call.
type Resolver struct {
	lookup  PriceLookup
	logg    *logger.Logger
	metrics *metrics.PricingMetrics
	timeout time.Duration
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Lookup == nil {
		return nil, fmt.Errorf("price lookup required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{
		lookup:  params.Lookup,
		logg:    logg,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

// Resolve picks the prices for an article, optionally for a customer.
//
// Lookup failures never surface: a failed customer lookup falls through to tier 1
// and a failed tier lookup yields a zero-priced selection.
func (r *Resolver) Resolve(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID) (Resolution, error) {
	if articleID == uuid.Nil {
		return Resolution{}, invalidInput("article id is required")
	}
	ctx = r.logg.WithField(ctx, "article_id", articleID.String())

	if customerID != nil && *customerID != uuid.Nil {
		ctx = r.logg.WithField(ctx, "customer_id", customerID.String())
		result, err := r.calculatedPrices(ctx, articleID, *customerID)
		switch {
		case err != nil:
			r.recordFallback(ctx, "calculated", err)
		case result.Outcome == enums.LookupOutcomeFound && result.Prices.Usable():
			return r.resolved(fromCalculated(articleID, customerID, result.Prices)), nil
		case result.Outcome == enums.LookupOutcomeChoiceRequired:
			if choice := r.choice(ctx, articleID, customerID, result.Options); choice != nil {
				r.metrics.IncResolution("choice_required")
				return Resolution{Choice: choice}, nil
			}
		}
	}

	table, err := r.availableTiers(ctx, articleID)
	if err != nil {
		r.recordFallback(ctx, "tiers", err)
		return r.resolved(unpriced(articleID, customerID)), nil
	}
	return r.resolved(fromTierOne(articleID, customerID, table)), nil
}

// SelectTiers builds the selection the operator confirmed in the tier chooser.
func (r *Resolver) SelectTiers(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID, cessionTier, publicTier int) (PriceSelection, error) {
	if articleID == uuid.Nil {
		return PriceSelection{}, invalidInput("article id is required")
	}
	if !ValidTier(cessionTier) || !ValidTier(publicTier) {
		return PriceSelection{}, invalidInput("tiers must be between %d and %d, got %d/%d", MinTier, MaxTier, cessionTier, publicTier)
	}
	table, err := r.availableTiers(ctx, articleID)
	if err != nil {
		return PriceSelection{}, tiersFailure(err)
	}
	cession, ok := table.Tier(cessionTier)
	if !ok {
		return PriceSelection{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "tier %d not configured for article", cessionTier)
	}
	public, ok := table.Tier(publicTier)
	if !ok {
		return PriceSelection{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "tier %d not configured for article", publicTier)
	}
	selection := PriceSelection{
		ArticleID:       articleID,
		CustomerID:      customerID,
		CessionPrice:    cession.CessionPrice,
		PublicPrice:     public.PublicPrice,
		CessionTierUsed: tierRef(cessionTier),
		PublicTierUsed:  tierRef(publicTier),
		Source:          enums.PriceSourceTierChoice,
	}
	r.metrics.IncResolution(string(selection.Source))
	return selection, nil
}

// Tiers exposes the article's ladder through the same bounded lookup.
func (r *Resolver) Tiers(ctx context.Context, articleID uuid.UUID) (*TierTable, error) {
	table, err := r.availableTiers(ctx, articleID)
	if err != nil {
		return nil, tiersFailure(err)
	}
	return table, nil
}

// tiersFailure keeps an unknown article a not-found; anything else is the backend failing.
func tiersFailure(err error) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tiers")
}

func (r *Resolver) choice(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID, options []TierOption) *TierChoice {
	if len(options) == 0 {
		table, err := r.availableTiers(ctx, articleID)
		if err != nil {
			r.recordFallback(ctx, "choice_options", err)
			return nil
		}
		options = table.Options()
	}
	if len(options) == 0 {
		return nil
	}
	return &TierChoice{ArticleID: articleID, CustomerID: customerID, Options: options}
}

func (r *Resolver) calculatedPrices(ctx context.Context, articleID, customerID uuid.UUID) (LookupResult, error) {
	start := time.Now()
	result, err := bounded(ctx, r.timeout, func(ctx context.Context) (LookupResult, error) {
		return r.lookup.CalculatedPrices(ctx, articleID, customerID)
	})
	r.metrics.ObserveLookup("calculated", time.Since(start))
	return result, err
}

func (r *Resolver) availableTiers(ctx context.Context, articleID uuid.UUID) (*TierTable, error) {
	start := time.Now()
	table, err := bounded(ctx, r.timeout, func(ctx context.Context) (*TierTable, error) {
		return r.lookup.AvailableTiers(ctx, articleID)
	})
	r.metrics.ObserveLookup("tiers", time.Since(start))
	return table, err
}

// bounded runs fn under a timeout and returns when the deadline passes even if fn
// ignores its context. The abandoned call finishes in the background.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(ctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (r *Resolver) recordFallback(ctx context.Context, step string, err error) {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	r.metrics.IncFallback(reason)
	ctx = r.logg.WithFields(ctx, map[string]any{
		"step":   step,
		"reason": reason,
		"error":  err.Error(),
	})
	r.logg.Warn(ctx, "pricing.lookup_fallback")
}

func (r *Resolver) resolved(selection PriceSelection) Resolution {
	r.metrics.IncResolution(string(selection.Source))
	return Resolution{Selection: &selection}
}

func fromCalculated(articleID uuid.UUID, customerID *uuid.UUID, prices CalculatedPrices) PriceSelection {
	return PriceSelection{
		ArticleID:       articleID,
		CustomerID:      customerID,
		CessionPrice:    prices.CessionPrice,
		PublicPrice:     prices.PublicPrice,
		CessionTierUsed: prices.CessionTierUsed,
		PublicTierUsed:  prices.PublicTierUsed,
		Source:          enums.PriceSourceCustomer,
	}
}

func fromTierOne(articleID uuid.UUID, customerID *uuid.UUID, table *TierTable) PriceSelection {
	tier, ok := table.Tier(MinTier)
	if !ok {
		return unpriced(articleID, customerID)
	}
	return PriceSelection{
		ArticleID:       articleID,
		CustomerID:      customerID,
		CessionPrice:    tier.CessionPrice,
		PublicPrice:     tier.PublicPrice,
		CessionTierUsed: tierRef(MinTier),
		PublicTierUsed:  tierRef(MinTier),
		Source:          enums.PriceSourceTierFallback,
	}
}
