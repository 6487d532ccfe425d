package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tftstocks/internal/domain"
)

var errNilClient = errors.New("redis client is nil")

// DraftStore keeps drafts as JSON strings under draft:{user}. A positive ttl
// lets abandoned drafts expire.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) (*DraftStore, error) {
	if client == nil {
		return nil, errNilClient
	}
	return &DraftStore{client: client, ttl: ttl}, nil
}

func (s *DraftStore) Save(ctx context.Context, user string, d domain.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.client.Set(ctx, s.key(user), raw, s.ttl).Err()
}

func (s *DraftStore) Load(ctx context.Context, user string) (domain.Draft, error) {
	raw, err := s.client.Get(ctx, s.key(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Draft{}, domain.ErrDraftNotFound
	}
	if err != nil {
		return domain.Draft{}, err
	}
	var d domain.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) Delete(ctx context.Context, user string) error {
	return s.client.Del(ctx, s.key(user)).Err()
}

func (s *DraftStore) key(user string) string {
	return "draft:" + user
}
