package app

import (
	"context"

	"tftstocks/internal/auth"
	"tftstocks/internal/domain"
)

const (
	DefaultLeaderboardPage     = 0
	DefaultLeaderboardPageSize = 100
)

// LeaderboardRepository returns one reshaped leaderboard page. The backend
// client implements it directly; the memory and redis packages wrap it with
// a cache.
type LeaderboardRepository interface {
	Leaderboard(ctx context.Context, kind domain.LeaderboardKind, page, limit int) (domain.LeaderboardPage, error)
}

// LeaderboardService fetches leaderboard pages for a caller's token.
type LeaderboardService struct {
	repo LeaderboardRepository
}

func NewLeaderboardService(repo LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

// Fetch returns page of kind. A negative page or non-positive pageSize falls
// back to the defaults. An empty token uses the configured credential.
func (s *LeaderboardService) Fetch(ctx context.Context, kind domain.LeaderboardKind, token string, page, pageSize int) (domain.LeaderboardPage, error) {
	if kind != domain.LeaderboardStandard && kind != domain.LeaderboardPortfolio {
		return domain.LeaderboardPage{}, domain.ErrUnknownLeaderboard
	}
	if page < 0 {
		page = DefaultLeaderboardPage
	}
	if pageSize <= 0 {
		pageSize = DefaultLeaderboardPageSize
	}
	return s.repo.Leaderboard(auth.WithToken(ctx, token), kind, page, pageSize)
}
