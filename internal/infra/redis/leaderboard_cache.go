package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// LeaderboardCache caches leaderboard pages in Redis and falls back to a
// loader on a miss. Pages are stored as JSON under
// leaderboard:{kind}:{page}:{limit}.
type LeaderboardCache struct {
	client *redis.Client
	loader app.LeaderboardRepository
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, loader app.LeaderboardRepository, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, kind domain.LeaderboardKind, page, limit int) (domain.LeaderboardPage, error) {
	key := c.key(kind, page, limit)
	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if cached, ok := c.lookup(ctx, key); ok {
			return cached, nil
		}

		fresh, err := c.loader.Leaderboard(ctx, kind, page, limit)
		if err != nil {
			return domain.LeaderboardPage{}, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(fresh); err == nil {
				_ = c.client.Set(ctx, key, raw, ttl).Err()
			}
		}
		return fresh, nil
	})
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	return result.(domain.LeaderboardPage), nil
}

// lookup treats any Redis failure as a miss.
func (c *LeaderboardCache) lookup(ctx context.Context, key string) (domain.LeaderboardPage, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.LeaderboardPage{}, false
	}
	var page domain.LeaderboardPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.LeaderboardPage{}, false
	}
	return page, true
}

func (c *LeaderboardCache) key(kind domain.LeaderboardKind, page, limit int) string {
	return "leaderboard:" + string(kind) + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
