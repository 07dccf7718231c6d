package pricecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
	"github.com/angelmondragon/listini-pricing/pkg/redis"
)

const (
	layerLocal = "local"
	layerRedis = "redis"

	defaultLocalSize     = 2048
	defaultCalculatedTTL = 30 * time.Second
	defaultTiersTTL      = 5 * time.Minute
)

// Store is the shared cache surface provided by pkg/redis.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ArticleVersion(ctx context.Context, articleID string) (int64, error)
	BumpArticleVersion(ctx context.Context, articleID string) (int64, error)
	CalculatedKey(articleID string, version int64, customerID string) string
	TiersKey(articleID string, version int64) string
}

type Params struct {
	Lookup        pricing.PriceLookup
	Store         Store
	Logger        *logger.Logger
	Metrics       *metrics.PricingMetrics
	LocalSize     int
	CalculatedTTL time.Duration
	TiersTTL      time.Duration
	Now           func() time.Time
}

// Cache decorates a PriceLookup with an in-process LRU and an optional shared
// redis layer. Concurrent misses for the same key share one backend call.
// Failures are never cached.
//
// Each article also has a local epoch bumped by InvalidateArticle. A lookup
// that started under an older epoch still answers its callers but does not
// write to either layer.
type Cache struct {
	next    pricing.PriceLookup
	store   Store
	local   *lru.Cache
	group   singleflight.Group
	logg    *logger.Logger
	metrics *metrics.PricingMetrics
	calcTTL time.Duration
	tierTTL time.Duration
	now     func() time.Time

	epochMu sync.Mutex
	epochs  map[uuid.UUID]uint64
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

var _ pricing.PriceLookup = (*Cache)(nil)

func New(params Params) (*Cache, error) {
	if params.Lookup == nil {
		return nil, fmt.Errorf("price lookup required")
	}
	size := params.LocalSize
	if size <= 0 {
		size = defaultLocalSize
	}
	local, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	c := &Cache{
		next:    params.Lookup,
		store:   params.Store,
		local:   local,
		logg:    params.Logger,
		metrics: params.Metrics,
		calcTTL: params.CalculatedTTL,
		tierTTL: params.TiersTTL,
		now:     params.Now,
		epochs:  make(map[uuid.UUID]uint64),
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	if c.calcTTL <= 0 {
		c.calcTTL = defaultCalculatedTTL
	}
	if c.tierTTL <= 0 {
		c.tierTTL = defaultTiersTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Cache) CalculatedPrices(ctx context.Context, articleID, customerID uuid.UUID) (pricing.LookupResult, error) {
	key := calculatedKey(articleID, customerID)
	if value, ok := c.localGet(key); ok {
		return value.(pricing.LookupResult), nil
	}

	epoch := c.epoch(articleID)
	value, err, _ := c.group.Do(flightKey(key, epoch), func() (any, error) {
		version, remote := c.articleVersion(ctx, articleID)
		var redisKey string
		if remote {
			redisKey = c.store.CalculatedKey(articleID.String(), version, customerID.String())
			var cached pricing.LookupResult
			if c.remoteGet(ctx, redisKey, &cached) {
				c.localAddAt(articleID, epoch, key, cached, c.calcTTL)
				return cached, nil
			}
		}

		result, err := c.next.CalculatedPrices(ctx, articleID, customerID)
		if err != nil {
			return nil, err
		}
		if !c.localAddAt(articleID, epoch, key, result, c.calcTTL) {
			return result, nil
		}
		if remote {
			c.remoteSet(ctx, redisKey, result, c.calcTTL)
		}
		return result, nil
	})
	if err != nil {
		return pricing.LookupResult{}, err
	}
	return value.(pricing.LookupResult), nil
}

func (c *Cache) AvailableTiers(ctx context.Context, articleID uuid.UUID) (*pricing.TierTable, error) {
	key := tiersKey(articleID)
	if value, ok := c.localGet(key); ok {
		return value.(*pricing.TierTable), nil
	}

	epoch := c.epoch(articleID)
	value, err, _ := c.group.Do(flightKey(key, epoch), func() (any, error) {
		version, remote := c.articleVersion(ctx, articleID)
		var redisKey string
		if remote {
			redisKey = c.store.TiersKey(articleID.String(), version)
			var tiers []pricing.PriceTier
			if c.remoteGet(ctx, redisKey, &tiers) {
				table, err := pricing.NewTierTable(articleID, tiers)
				if err == nil {
					c.localAddAt(articleID, epoch, key, table, c.tierTTL)
					return table, nil
				}
				c.warn(ctx, "pricecache.corrupt_entry", redisKey, err)
			}
		}

		table, err := c.next.AvailableTiers(ctx, articleID)
		if err != nil {
			return nil, err
		}
		if !c.localAddAt(articleID, epoch, key, table, c.tierTTL) {
			return table, nil
		}
		if remote {
			c.remoteSet(ctx, redisKey, table.Tiers(), c.tierTTL)
		}
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*pricing.TierTable), nil
}

// InvalidateArticle drops every cached answer for the article: its tier ladder
// and all customer prices derived from it. Lookups already in flight are not
// allowed to store their results afterwards.
func (c *Cache) InvalidateArticle(ctx context.Context, articleID uuid.UUID) error {
	c.epochMu.Lock()
	c.epochs[articleID]++
	prefix := articleID.String() + "|"
	for _, raw := range c.local.Keys() {
		key, ok := raw.(string)
		if ok && strings.Contains(key, prefix) {
			c.local.Remove(key)
		}
	}
	c.epochMu.Unlock()

	if c.store == nil {
		return nil
	}
	// the shared keys embed the version, so bumping it orphans both the
	// ladder and the calculated prices of every instance
	version, err := c.store.BumpArticleVersion(ctx, articleID.String())
	if err != nil {
		return fmt.Errorf("bump article version: %w", err)
	}
	if err := c.store.Del(ctx, c.store.TiersKey(articleID.String(), version-1)); err != nil {
		return fmt.Errorf("drop tiers: %w", err)
	}
	return nil
}

func (c *Cache) epoch(articleID uuid.UUID) uint64 {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()
	return c.epochs[articleID]
}

// localAddAt stores the value only while the article is still at epoch and
// reports whether it did.
func (c *Cache) localAddAt(articleID uuid.UUID, epoch uint64, key string, value any, ttl time.Duration) bool {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()
	if c.epochs[articleID] != epoch {
		return false
	}
	c.localAdd(key, value, ttl)
	return true
}

func (c *Cache) localGet(key string) (any, bool) {
	raw, ok := c.local.Get(key)
	if ok {
		entry := raw.(cachedEntry)
		if c.now().Before(entry.expiresAt) {
			c.metrics.IncCacheHit(layerLocal)
			return entry.value, true
		}
		c.local.Remove(key)
	}
	c.metrics.IncCacheMiss(layerLocal)
	return nil, false
}

func (c *Cache) localAdd(key string, value any, ttl time.Duration) {
	c.local.Add(key, cachedEntry{value: value, expiresAt: c.now().Add(ttl)})
}

// articleVersion reports false when the shared layer is absent or unreachable,
// in which case it is bypassed for this call.
func (c *Cache) articleVersion(ctx context.Context, articleID uuid.UUID) (int64, bool) {
	if c.store == nil {
		return 0, false
	}
	version, err := c.store.ArticleVersion(ctx, articleID.String())
	if err != nil {
		c.warn(ctx, "pricecache.version_failed", articleID.String(), err)
		return 0, false
	}
	return version, true
}

func (c *Cache) remoteGet(ctx context.Context, key string, dest any) bool {
	raw, err := c.store.Get(ctx, key)
	switch {
	case redis.IsMiss(err):
		c.metrics.IncCacheMiss(layerRedis)
		return false
	case err != nil:
		c.metrics.IncCacheMiss(layerRedis)
		c.warn(ctx, "pricecache.read_failed", key, err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.metrics.IncCacheMiss(layerRedis)
		c.warn(ctx, "pricecache.corrupt_entry", key, err)
		return false
	}
	c.metrics.IncCacheHit(layerRedis)
	return true
}

func (c *Cache) remoteSet(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "pricecache.encode_failed", key, err)
		return
	}
	if err := c.store.Set(ctx, key, string(payload), ttl); err != nil {
		c.warn(ctx, "pricecache.write_failed", key, err)
	}
}

func (c *Cache) warn(ctx context.Context, msg, key string, err error) {
	ctx = c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()})
	c.logg.Warn(ctx, msg)
}

func calculatedKey(articleID, customerID uuid.UUID) string {
	return "calc:" + articleID.String() + "|" + customerID.String()
}

func flightKey(key string, epoch uint64) string {
	return key + "#" + strconv.FormatUint(epoch, 10)
}

func tiersKey(articleID uuid.UUID) string {
	return "tiers:" + articleID.String() + "|"
}
