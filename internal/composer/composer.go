package composer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	pkgerrors "github.com/angelmondragon/listini-pricing/pkg/errors"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
)

const defaultRepriceConcurrency = 8

// Resolver is the subset of *pricing.Resolver the composer drives.
type Resolver interface {
	Resolve(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID) (pricing.Resolution, error)
	SelectTiers(ctx context.Context, articleID uuid.UUID, customerID *uuid.UUID, cessionTier, publicTier int) (pricing.PriceSelection, error)
}

type Params struct {
	Resolver    Resolver
	Logger      *logger.Logger
	Metrics     *metrics.PricingMetrics
	Concurrency int
	Now         func() time.Time
}

// Composer holds the lists operators are currently composing. Lists live in
// memory only; the document that finally stores the prices is somebody else's.
type Composer struct {
	resolver    Resolver
	logg        *logger.Logger
	metrics     *metrics.PricingMetrics
	concurrency int
	now         func() time.Time

	mu    sync.Mutex
	lists map[uuid.UUID]*list
}

type list struct {
	id         uuid.UUID
	customerID *uuid.UUID
	lines      map[uuid.UUID]*line
	order      []uuid.UUID
	createdAt  time.Time
	updatedAt  time.Time
}

type line struct {
	id        uuid.UUID
	articleID uuid.UUID
	quantity  decimal.Decimal
	selection *pricing.PriceSelection
	choice    *pricing.TierChoice
	// generation advances whenever the inputs of the line's price change; a
	// resolution only lands if the generation it started from is still current.
	generation uint64
}

type pendingResolve struct {
	lineID     uuid.UUID
	articleID  uuid.UUID
	generation uint64
}

func New(params Params) (*Composer, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	c := &Composer{
		resolver:    params.Resolver,
		logg:        params.Logger,
		metrics:     params.Metrics,
		concurrency: params.Concurrency,
		now:         params.Now,
		lists:       make(map[uuid.UUID]*list),
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultRepriceConcurrency
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Composer) Create(customerID *uuid.UUID) ListView {
	now := c.now().UTC()
	l := &list{
		id:         uuid.New(),
		customerID: normalizeCustomer(customerID),
		lines:      make(map[uuid.UUID]*line),
		createdAt:  now,
		updatedAt:  now,
	}
	c.mu.Lock()
	c.lists[l.id] = l
	c.mu.Unlock()
	return l.view()
}

func (c *Composer) Get(listID uuid.UUID) (ListView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.listLocked(listID)
	if err != nil {
		return ListView{}, err
	}
	return l.view(), nil
}

// Discard abandons the list and every selection on it.
func (c *Composer) Discard(listID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.listLocked(listID); err != nil {
		return err
	}
	delete(c.lists, listID)
	return nil
}

// AddLine appends an article and resolves its price.
func (c *Composer) AddLine(ctx context.Context, listID, articleID uuid.UUID, quantity decimal.Decimal) (LineView, error) {
	if articleID == uuid.Nil {
		return LineView{}, pkgerrors.New(pkgerrors.CodeValidation, "article id is required")
	}
	if !quantity.IsPositive() {
		return LineView{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	c.mu.Lock()
	l, err := c.listLocked(listID)
	if err != nil {
		c.mu.Unlock()
		return LineView{}, err
	}
	ln := &line{id: uuid.New(), articleID: articleID, quantity: quantity, generation: 1}
	l.lines[ln.id] = ln
	l.order = append(l.order, ln.id)
	l.updatedAt = c.now().UTC()
	customerID := copyCustomer(l.customerID)
	c.mu.Unlock()

	if err := c.resolveLine(ctx, listID, pendingResolve{lineID: ln.id, articleID: articleID, generation: 1}, customerID); err != nil {
		return LineView{}, err
	}
	return c.lineView(listID, ln.id)
}

func (c *Composer) SetQuantity(listID, lineID uuid.UUID, quantity decimal.Decimal) (LineView, error) {
	if !quantity.IsPositive() {
		return LineView{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ln, err := c.lineLocked(listID, lineID)
	if err != nil {
		return LineView{}, err
	}
	ln.quantity = quantity
	l.updatedAt = c.now().UTC()
	return ln.view(), nil
}

// SetCustomer changes the list's customer and re-prices every line that does not
// carry a manual price. Lines are re-resolved concurrently.
func (c *Composer) SetCustomer(ctx context.Context, listID uuid.UUID, customerID *uuid.UUID) (ListView, error) {
	customerID = normalizeCustomer(customerID)

	c.mu.Lock()
	l, err := c.listLocked(listID)
	if err != nil {
		c.mu.Unlock()
		return ListView{}, err
	}
	l.customerID = customerID
	l.updatedAt = c.now().UTC()
	pending := make([]pendingResolve, 0, len(l.order))
	for _, id := range l.order {
		ln := l.lines[id]
		if ln.selection != nil && ln.selection.IsCustomPrice {
			ln.selection.CustomerID = copyCustomer(customerID)
			continue
		}
		ln.generation++
		pending = append(pending, pendingResolve{lineID: ln.id, articleID: ln.articleID, generation: ln.generation})
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range pending {
		p := p
		g.Go(func() error {
			return c.resolveLine(gctx, listID, p, copyCustomer(customerID))
		})
	}
	if err := g.Wait(); err != nil {
		return ListView{}, err
	}
	return c.Get(listID)
}

// SelectTiers confirms the operator's tier choice for a line.
func (c *Composer) SelectTiers(ctx context.Context, authz auth.Authorizer, listID, lineID uuid.UUID, cessionTier, publicTier int) (LineView, error) {
	if !auth.CanEditPrices(authz) {
		return LineView{}, pkgerrors.New(pkgerrors.CodeForbidden, "price editing not permitted")
	}

	c.mu.Lock()
	_, ln, err := c.lineLocked(listID, lineID)
	if err != nil {
		c.mu.Unlock()
		return LineView{}, err
	}
	ln.generation++
	p := pendingResolve{lineID: ln.id, articleID: ln.articleID, generation: ln.generation}
	customerID := copyCustomer(c.lists[listID].customerID)
	c.mu.Unlock()

	selection, err := c.resolver.SelectTiers(ctx, p.articleID, customerID, cessionTier, publicTier)
	if err != nil {
		return LineView{}, err
	}
	c.apply(ctx, listID, p, pricing.Resolution{Selection: &selection})
	return c.lineView(listID, lineID)
}

// ApplyOverride sets operator-entered prices on a line. Pending resolutions for
// the line are discarded when they arrive.
func (c *Composer) ApplyOverride(authz auth.Authorizer, listID, lineID uuid.UUID, cessionPrice, publicPrice decimal.Decimal) (LineView, error) {
	if !auth.CanEditPrices(authz) {
		return LineView{}, pkgerrors.New(pkgerrors.CodeForbidden, "price editing not permitted")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ln, err := c.lineLocked(listID, lineID)
	if err != nil {
		return LineView{}, err
	}
	base := pricing.PriceSelection{ArticleID: ln.articleID, CustomerID: copyCustomer(l.customerID)}
	if ln.selection != nil {
		base = *ln.selection
	}
	selection, err := pricing.ApplyManualOverride(base, cessionPrice, publicPrice)
	if err != nil {
		return LineView{}, err
	}
	ln.generation++
	ln.selection = &selection
	ln.choice = nil
	l.updatedAt = c.now().UTC()
	return ln.view(), nil
}

func (c *Composer) RemoveLine(listID, lineID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, _, err := c.lineLocked(listID, lineID)
	if err != nil {
		return err
	}
	delete(l.lines, lineID)
	for i, id := range l.order {
		if id == lineID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.updatedAt = c.now().UTC()
	return nil
}

func (c *Composer) resolveLine(ctx context.Context, listID uuid.UUID, p pendingResolve, customerID *uuid.UUID) error {
	resolution, err := c.resolver.Resolve(ctx, p.articleID, customerID)
	if err != nil {
		return err
	}
	c.apply(ctx, listID, p, resolution)
	return nil
}

// apply stores a resolution unless the line moved on while it was in flight.
func (c *Composer) apply(ctx context.Context, listID uuid.UUID, p pendingResolve, resolution pricing.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ln, err := c.lineLocked(listID, p.lineID)
	if err != nil || ln.generation != p.generation {
		c.metrics.IncStaleDiscard()
		ctx = c.logg.WithFields(ctx, map[string]any{
			"list_id":    listID.String(),
			"line_id":    p.lineID.String(),
			"article_id": p.articleID.String(),
		})
		c.logg.Info(ctx, "composer.stale_resolution_discarded")
		return
	}
	ln.selection = resolution.Selection
	ln.choice = resolution.Choice
	l.updatedAt = c.now().UTC()
}

func (c *Composer) lineView(listID, lineID uuid.UUID) (LineView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ln, err := c.lineLocked(listID, lineID)
	if err != nil {
		return LineView{}, err
	}
	return ln.view(), nil
}

func (c *Composer) listLocked(listID uuid.UUID) (*list, error) {
	l, ok := c.lists[listID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "list not found")
	}
	return l, nil
}

func (c *Composer) lineLocked(listID, lineID uuid.UUID) (*list, *line, error) {
	l, err := c.listLocked(listID)
	if err != nil {
		return nil, nil, err
	}
	ln, ok := l.lines[lineID]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not found")
	}
	return l, ln, nil
}

func normalizeCustomer(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return copyCustomer(id)
}

func copyCustomer(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}
