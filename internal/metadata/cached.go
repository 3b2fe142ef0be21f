package metadata

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/drallgood/bookshelf/internal/cache"
	"github.com/drallgood/bookshelf/internal/logger"
)

// DefaultCacheTTL is how long lookups are remembered
const DefaultCacheTTL = 30 * time.Minute

// Cached memoises the results of another provider
type Cached struct {
	next         Provider
	searches     cache.Cache[string, []Suggestion]
	descriptions cache.Cache[string, string]
}

var _ Provider = (*Cached)(nil)

// NewCached wraps next with an in-memory cache. Empty results are not cached
// so a transient failure is retried on the next lookup.
func NewCached(next Provider, ttl time.Duration, log *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:         next,
		searches:     cache.WithTTL(cache.NewMemoryCache[string, []Suggestion](log), ttl),
		descriptions: cache.WithTTL(cache.NewMemoryCache[string, string](log), ttl),
	}
}

func searchKey(q Query) string {
	return fmt.Sprintf("%s\x00%s\x00%d", strings.ToLower(q.Title), strings.ToLower(q.Author), q.Limit)
}

// Search returns a copy of the cached suggestions so callers may modify it
func (c *Cached) Search(ctx context.Context, q Query) []Suggestion {
	q = q.Normalized()
	key := searchKey(q)
	if hit, ok := c.searches.Get(key); ok {
		return slices.Clone(hit)
	}
	res := c.next.Search(ctx, q)
	if len(res) > 0 {
		c.searches.Set(key, slices.Clone(res), 0)
	}
	return res
}

func (c *Cached) Describe(ctx context.Context, key string) string {
	if hit, ok := c.descriptions.Get(key); ok {
		return hit
	}
	desc := c.next.Describe(ctx, key)
	if desc != "" {
		c.descriptions.Set(key, desc, 0)
	}
	return desc
}

func (c *Cached) Name() string { return c.next.Name() }
