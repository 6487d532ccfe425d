package app

import "context"

// PageRepository tracks live Future Sight pages, one per user, so several
// connections of the same user share state.
type PageRepository interface {
	GetOrCreate(ctx context.Context, user string) (page *FutureSightPage, created bool)
	// DeleteIfIdle drops the user's page when nobody is subscribed and
	// reports whether it did.
	DeleteIfIdle(ctx context.Context, user string) bool
	// Active counts users with a live page.
	Active(ctx context.Context) (int, error)
}

// PageFactory builds a fresh page for user.
type PageFactory func(user string) *FutureSightPage

// PageService opens and releases shared pages.
type PageService struct {
	pages PageRepository
}

func NewPageService(pages PageRepository) *PageService {
	return &PageService{pages: pages}
}

// Open returns the user's page, loading it when it is new or a previous
// load failed. The caller's identity must already be verified.
func (s *PageService) Open(ctx context.Context, user string) (*FutureSightPage, error) {
	page, created := s.pages.GetOrCreate(ctx, user)
	if created || page.Snapshot().Mode == ModeError {
		if err := page.Load(ctx); err != nil {
			return page, err
		}
	}
	return page, nil
}

// Release drops the user's page once nobody is subscribed.
func (s *PageService) Release(ctx context.Context, user string) {
	s.pages.DeleteIfIdle(ctx, user)
}

// Active reports how many users have a live page.
func (s *PageService) Active(ctx context.Context) (int, error) {
	return s.pages.Active(ctx)
}
