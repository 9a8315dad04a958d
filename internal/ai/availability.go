package ai

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// AvailabilityCache remembers probe results for a short time so a run does
// not probe the provider before every chunk.
type AvailabilityCache struct {
	cache *expirable.LRU[string, bool]
}

func NewAvailabilityCache(ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		return &AvailabilityCache{}
	}
	return &AvailabilityCache{cache: expirable.NewLRU[string, bool](32, nil, ttl)}
}

func (c *AvailabilityCache) Check(ctx context.Context, p IProvider) bool {
	if p == nil {
		return false
	}
	if c == nil || c.cache == nil {
		return p.CheckAvailability(ctx)
	}
	if ok, hit := c.cache.Get(p.Name()); hit {
		return ok
	}
	ok := p.CheckAvailability(ctx)
	c.cache.Add(p.Name(), ok)
	logutil.GetLogger(ctx).Debug("provider availability probed", zap.String("provider", p.Name()), zap.Bool("available", ok))
	return ok
}

func (c *AvailabilityCache) Purge() {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Purge()
}
