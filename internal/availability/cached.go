package availability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/cache"
)

// CachedRepository serves the enabled-rules read path from a TTL cache.
// The cache only feeds slot presentation; booking uniqueness never depends on it.
type CachedRepository struct {
	Repository
	cache  cache.Provider
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedRepository wraps repo. A non-positive ttl disables caching.
func NewCachedRepository(repo Repository, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if provider == nil || ttl <= 0 {
		provider = cache.NoopProvider{}
	}
	return &CachedRepository{
		Repository: repo,
		cache:      provider,
		ttl:        ttl,
		logger:     logger,
	}
}

func cacheKey(analystID string) string {
	return "availability:rules:" + analystID
}

func (c *CachedRepository) ListByAnalyst(ctx context.Context, analystID string, includeDisabled bool) ([]*Rule, error) {
	if includeDisabled {
		return c.Repository.ListByAnalyst(ctx, analystID, true)
	}

	key := cacheKey(analystID)
	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		var rules []*Rule
		if err := json.Unmarshal(raw, &rules); err == nil {
			return rules, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable rule cache entry", "analyst_id", analystID)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.WarnContext(ctx, "rule cache read failed", "analyst_id", analystID, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		rules, err := c.Repository.ListByAnalyst(ctx, analystID, false)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(rules); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
				c.logger.WarnContext(ctx, "rule cache write failed", "analyst_id", analystID, "error", err)
			}
		}
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Rule), nil
}

func (c *CachedRepository) Create(ctx context.Context, r *Rule) error {
	if err := c.Repository.Create(ctx, r); err != nil {
		return err
	}
	c.invalidate(ctx, r.AnalystID)
	return nil
}

func (c *CachedRepository) Update(ctx context.Context, r *Rule) error {
	if err := c.Repository.Update(ctx, r); err != nil {
		return err
	}
	c.invalidate(ctx, r.AnalystID)
	return nil
}

func (c *CachedRepository) invalidate(ctx context.Context, analystID string) {
	if err := c.cache.Del(ctx, cacheKey(analystID)); err != nil {
		c.logger.WarnContext(ctx, "rule cache invalidation failed", "analyst_id", analystID, "error", err)
	}
}
