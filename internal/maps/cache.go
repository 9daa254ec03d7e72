package maps

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tripplanner/internal/observability"
)

// upstreamTimeout bounds a shared lookup that outlives the caller that started it.
const upstreamTimeout = 10 * time.Second

// Searcher is the failing upstream lookup that caching sits in front of.
type Searcher interface {
	Search(ctx context.Context, location string, category Category, query string) ([]PlaceCandidate, error)
}

// SharedCache is an optional second-level cache shared between processes.
type SharedCache interface {
	Get(ctx context.Context, key string) ([]PlaceCandidate, bool, error)
	Set(ctx context.Context, key string, places []PlaceCandidate, ttl time.Duration) error
}

// CachedResolver serves lookups from an in-process cache, then an optional shared cache,
// then the upstream. Identical in-flight lookups are collapsed into one upstream call.
// Failures are never cached and, like PlacesService.Resolve, degrade to no places.
type CachedResolver struct {
	next    Searcher
	local   *cache.Cache
	shared  SharedCache
	ttl     time.Duration
	flights singleflight.Group
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCachedResolver wraps next. shared may be nil.
func NewCachedResolver(next Searcher, shared SharedCache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{
		next:    next,
		local:   cache.New(ttl, 2*ttl),
		shared:  shared,
		ttl:     ttl,
		logger:  logger,
		metrics: observability.DefaultMetrics(),
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, location string, category Category, query string) []PlaceCandidate {
	key := CacheKey(location, category, query)

	if v, ok := c.local.Get(key); ok {
		c.metrics.Lookup(ctx, "local", "hit")
		return clonePlaces(v.([]PlaceCandidate))
	}

	ch := c.flights.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the waiters.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upstreamTimeout)
		defer cancel()
		return c.load(fctx, key, location, category, query)
	})

	select {
	case <-ctx.Done():
		return []PlaceCandidate{}
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("place lookup degraded to empty result",
				zap.String("location", location),
				zap.String("category", string(category)),
				zap.String("query", query),
				zap.Error(res.Err))
			return []PlaceCandidate{}
		}
		return clonePlaces(res.Val.([]PlaceCandidate))
	}
}

func (c *CachedResolver) load(ctx context.Context, key, location string, category Category, query string) ([]PlaceCandidate, error) {
	if c.shared != nil {
		places, ok, err := c.shared.Get(ctx, key)
		switch {
		case err != nil:
			c.metrics.Lookup(ctx, "shared", "error")
			c.logger.Warn("shared place cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			c.metrics.Lookup(ctx, "shared", "hit")
			c.local.Set(key, places, c.ttl)
			return places, nil
		}
	}

	places, err := c.next.Search(ctx, location, category, query)
	if err != nil {
		return nil, err
	}
	c.local.Set(key, places, c.ttl)
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, places, c.ttl); err != nil {
			c.logger.Warn("shared place cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return places, nil
}

// CacheKey normalises a lookup into a cache key.
func CacheKey(location string, category Category, query string) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	return "places:" + norm(location) + "|" + string(category) + "|" + norm(query)
}

func clonePlaces(in []PlaceCandidate) []PlaceCandidate {
	out := make([]PlaceCandidate, len(in))
	copy(out, in)
	return out
}
