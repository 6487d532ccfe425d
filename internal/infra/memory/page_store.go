package memory

import (
	"context"
	"sync"

	"tftstocks/internal/app"
)

// PageStore keeps live pages in process. Pages must stay local: their
// subscribers are in-process channels.
type PageStore struct {
	newPage app.PageFactory

	mu     sync.Mutex
	byUser map[string]*app.FutureSightPage
}

func NewPageStore(newPage app.PageFactory) *PageStore {
	return &PageStore{newPage: newPage, byUser: make(map[string]*app.FutureSightPage)}
}

func (s *PageStore) GetOrCreate(_ context.Context, user string) (*app.FutureSightPage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page, ok := s.byUser[user]; ok {
		return page, false
	}
	page := s.newPage(user)
	s.byUser[user] = page
	return page, true
}

func (s *PageStore) DeleteIfIdle(_ context.Context, user string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page, ok := s.byUser[user]; ok && page.Idle() {
		delete(s.byUser, user)
		return true
	}
	return false
}

func (s *PageStore) Active(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser), nil
}
