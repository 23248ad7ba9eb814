package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

var _ IActivityCatalog = (*Catalog)(nil)

const activityCacheKeyPrefix = "activity:"

// attempt counters are per user, so the cache is too
func activityCacheKey(key domain.AttemptKey) string {
	return fmt.Sprintf("%s%s:%s", activityCacheKeyPrefix, key.ActivityID, key.UserID)
}

type Catalog struct {
	backend secondary.ActivityBackend
	cache   *cache.Cache
	sfGroup singleflight.Group
	logger  primary.Logger
}

func NewCatalog(backend secondary.ActivityBackend, ttl time.Duration, logger primary.Logger) *Catalog {
	return &Catalog{
		backend: backend,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

func (c *Catalog) Get(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error) {
	if cached, found := c.cache.Get(activityCacheKey(key)); found {
		if activity, ok := cached.(*domain.Activity); ok {
			return activity, nil
		}
	}
	return c.load(ctx, key, false)
}

func (c *Catalog) Fresh(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error) {
	return c.load(ctx, key, true)
}

func (c *Catalog) Invalidate(key domain.AttemptKey) {
	c.cache.Delete(activityCacheKey(key))
}

func (c *Catalog) load(ctx context.Context, key domain.AttemptKey, fresh bool) (*domain.Activity, error) {
	cacheKey := activityCacheKey(key)
	sfKey := cacheKey
	if fresh {
		sfKey = "fresh:" + cacheKey
	}

	result, err, _ := c.sfGroup.Do(sfKey, func() (interface{}, error) {
		if !fresh {
			if cached, found := c.cache.Get(cacheKey); found {
				if activity, ok := cached.(*domain.Activity); ok {
					return activity, nil
				}
			}
		}

		activity, err := c.backend.GetActivity(ctx, key.ActivityID)
		if err != nil {
			return nil, err
		}
		if len(activity.Items) == 0 {
			items, err := c.backend.GetItems(ctx, key.ActivityID)
			if err != nil {
				return nil, err
			}
			activity.Items = items
		}

		c.cache.SetDefault(cacheKey, activity)
		c.logger.Debug("Activity loaded", "activityId", key.ActivityID, "items", len(activity.Items))
		return activity, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Activity), nil
}
