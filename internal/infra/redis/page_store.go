package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tftstocks/internal/app"
	"tftstocks/internal/infra/memory"
)

const pageKeyPrefix = "page:"

// PageStore keeps pages in a local registry and mirrors which users have a
// live page into Redis (page:{user}, refreshed on every open), so Active
// counts pages across every instance sharing the Redis.
type PageStore struct {
	local  *memory.PageStore
	client *redis.Client
	ttl    time.Duration
}

func NewPageStore(client *redis.Client, ttl time.Duration, newPage app.PageFactory) *PageStore {
	return &PageStore{local: memory.NewPageStore(newPage), client: client, ttl: ttl}
}

func (s *PageStore) GetOrCreate(ctx context.Context, user string) (*app.FutureSightPage, bool) {
	page, created := s.local.GetOrCreate(ctx, user)
	// the marker is advisory; a Redis outage must not block the page
	_ = s.client.Set(ctx, pageKeyPrefix+user, time.Now().Unix(), s.ttl).Err()
	return page, created
}

func (s *PageStore) DeleteIfIdle(ctx context.Context, user string) bool {
	if !s.local.DeleteIfIdle(ctx, user) {
		return false
	}
	_ = s.client.Del(ctx, pageKeyPrefix+user).Err()
	return true
}

// Active counts live-page markers. Markers of crashed instances lapse after ttl.
func (s *PageStore) Active(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, pageKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}
