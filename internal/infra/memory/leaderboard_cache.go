package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// LeaderboardCache keeps leaderboard pages with a TTL to avoid refetching
// the same page on every view.
type LeaderboardCache struct {
	loader app.LeaderboardRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedPage
}

type cachedPage struct {
	page      domain.LeaderboardPage
	expiresAt time.Time
}

func NewLeaderboardCache(loader app.LeaderboardRepository, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPage),
	}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, kind domain.LeaderboardKind, page, limit int) (domain.LeaderboardPage, error) {
	key := pageKey(kind, page, limit)
	if cached, ok := c.lookup(key); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if cached, ok := c.lookup(key); ok {
			return cached, nil
		}
		fresh, err := c.loader.Leaderboard(ctx, kind, page, limit)
		if err != nil {
			return domain.LeaderboardPage{}, err
		}
		ttl := c.ttlWithJitter()
		if ttl > 0 {
			c.mu.Lock()
			c.cache[key] = cachedPage{page: fresh, expiresAt: c.clock().Add(ttl)}
			c.mu.Unlock()
		}
		return fresh, nil
	})
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	return result.(domain.LeaderboardPage), nil
}

func (c *LeaderboardCache) lookup(key string) (domain.LeaderboardPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.LeaderboardPage{}, false
	}
	return entry.page, true
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func pageKey(kind domain.LeaderboardKind, page, limit int) string {
	return fmt.Sprintf("%s:%d:%d", kind, page, limit)
}
