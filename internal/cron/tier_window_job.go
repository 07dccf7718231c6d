package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

// BoundaryFinder is implemented by *catalog.Repository.
type BoundaryFinder interface {
	ArticlesWithTierBoundary(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

// Invalidator is implemented by *pricecache.Cache.
type Invalidator interface {
	InvalidateArticle(ctx context.Context, articleID uuid.UUID) error
}

// TierWindowJob drops cached lookups for articles whose tiers started or
// stopped being valid since the previous run, so a scheduled price change
// shows up without waiting for the cache TTL.
type TierWindowJob struct {
	finder      BoundaryFinder
	invalidator Invalidator
	logg        *logger.Logger
	now         func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

func NewTierWindowJob(finder BoundaryFinder, invalidator Invalidator, logg *logger.Logger, now func() time.Time) (*TierWindowJob, error) {
	if finder == nil {
		return nil, fmt.Errorf("boundary finder required")
	}
	if invalidator == nil {
		return nil, fmt.Errorf("invalidator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &TierWindowJob{
		finder:      finder,
		invalidator: invalidator,
		logg:        logg,
		now:         now,
		lastRun:     now().UTC(),
	}, nil
}

func (j *TierWindowJob) Name() string { return "tier_window_sweep" }

// Run only advances the window when the lookup succeeds; a failed run is
// retried over the same span next time.
func (j *TierWindowJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	from, to := j.lastRun, j.now().UTC()
	ids, err := j.finder.ArticlesWithTierBoundary(ctx, from, to)
	if err != nil {
		return fmt.Errorf("find tier boundaries: %w", err)
	}
	j.lastRun = to

	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, j.invalidator.InvalidateArticle(ctx, id))
	}
	if len(ids) > 0 {
		ctx = j.logg.WithField(ctx, "articles", len(ids))
		j.logg.Info(ctx, "cron.tier_windows_invalidated")
	}
	return errs
}
