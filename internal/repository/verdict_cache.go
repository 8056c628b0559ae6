package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/pkg/cache"
)

// CachedVerdict implements VerdictCache over a cache.Service. Entries are
// hints only. A hit short-circuits a recomputation; a miss, an expired entry
// or a cache outage all degrade to running the engine again, never to a wrong
// verdict.
type CachedVerdict struct {
	c   cache.Service
	ttl time.Duration
}

// NewCachedVerdict creates the verdict hint cache. ttl <= 0 selects one hour.
func NewCachedVerdict(c cache.Service, ttl time.Duration) *CachedVerdict {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedVerdict{c: c, ttl: ttl}
}

func verdictKey(ruleID string) string {
	return fmt.Sprintf("verdict:%s", ruleID)
}

// Get returns the cached response for the rule, or (nil, nil) on a miss.
func (v *CachedVerdict) Get(ctx context.Context, ruleID string) (*models.ValidateResponse, error) {
	var res models.ValidateResponse
	err := v.c.Get(ctx, verdictKey(ruleID), &res)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (v *CachedVerdict) Put(ctx context.Context, ruleID string, res *models.ValidateResponse) error {
	return v.c.Set(ctx, verdictKey(ruleID), res, v.ttl)
}

func (v *CachedVerdict) Invalidate(ctx context.Context, ruleID string) error {
	return v.c.Delete(ctx, verdictKey(ruleID))
}
