package memory

import (
	"context"
	"sync"

	"tftstocks/internal/domain"
)

// DraftStore keeps unsubmitted drafts in process memory.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]domain.Draft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]domain.Draft)}
}

func (s *DraftStore) Save(_ context.Context, user string, d domain.Draft) error {
	d.Slots = append([]int(nil), d.Slots...)
	d.Answers = append([]domain.Answer(nil), d.Answers...)
	s.mu.Lock()
	s.drafts[user] = d
	s.mu.Unlock()
	return nil
}

func (s *DraftStore) Load(_ context.Context, user string) (domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[user]
	if !ok {
		return domain.Draft{}, domain.ErrDraftNotFound
	}
	return d, nil
}

func (s *DraftStore) Delete(_ context.Context, user string) error {
	s.mu.Lock()
	delete(s.drafts, user)
	s.mu.Unlock()
	return nil
}
