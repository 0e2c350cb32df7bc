package mapbox

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// negativeEntry remembers a lookup that failed or found nothing.
type negativeEntry struct {
	result domain.LocationResult
	err    error
}

// CachedLocator wraps a Locator with an in-memory LRU cache. Region names
// repeat on every map request, so almost every lookup after the first frame
// is a hit. Failed and empty lookups are kept in a second cache for a short
// TTL so they are retried eventually but not on every request.
type CachedLocator struct {
	inner    domain.Locator
	cache    *lru.Cache[string, domain.LocationResult]
	negative *expirable.LRU[string, negativeEntry]
	metrics  *observability.Metrics
}

// NewCachedLocator creates a cache decorator around a locator.
func NewCachedLocator(inner domain.Locator, maxEntries int, negativeTTL time.Duration, metrics *observability.Metrics) (*CachedLocator, error) {
	cache, err := lru.New[string, domain.LocationResult](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create locator cache: %w", err)
	}
	if negativeTTL <= 0 {
		return nil, fmt.Errorf("create locator cache: negative ttl must be positive, got %s", negativeTTL)
	}
	return &CachedLocator{
		inner:    inner,
		cache:    cache,
		negative: expirable.NewLRU[string, negativeEntry](maxEntries, nil, negativeTTL),
		metrics:  metrics,
	}, nil
}

// Locate answers from the cache when it can and asks the wrapped locator
// otherwise.
func (c *CachedLocator) Locate(ctx context.Context, region string) (domain.LocationResult, error) {
	if result, ok := c.cache.Get(region); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	if entry, ok := c.negative.Get(region); ok {
		c.metrics.GeocodeCache.WithLabelValues("negative_hit").Inc()
		return entry.result, entry.err
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Locate(ctx, region)
	switch {
	case err != nil:
		// A cancelled request says nothing about the region.
		if ctx.Err() == nil {
			c.negative.Add(region, negativeEntry{result: result, err: err})
		}
		return result, err
	case result.PlaceName == "":
		c.negative.Add(region, negativeEntry{result: result})
	default:
		c.cache.Add(region, result)
	}
	return result, nil
}

// Len reports the number of cached regions with a location.
func (c *CachedLocator) Len() int {
	return c.cache.Len()
}
