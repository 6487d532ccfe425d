package app

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tftstocks/internal/domain"
)

// SearchBackend resolves normalized search queries.
type SearchBackend interface {
	SearchPlayers(ctx context.Context, query string) ([]domain.PlayerMatch, error)
	SearchUser(ctx context.Context, query string) (string, error)
}

// Navigator moves the caller to a resolved route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// SearchInput is the text a user typed into the search bar.
type SearchInput struct {
	mu    sync.Mutex
	value string
}

func (in *SearchInput) Set(v string) {
	in.mu.Lock()
	in.value = v
	in.mu.Unlock()
}

func (in *SearchInput) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value
}

func (in *SearchInput) Clear() { in.Set("") }

// SearchService turns a free-text query into a detail or results route.
type SearchService struct {
	backend SearchBackend
	log     zerolog.Logger
}

func NewSearchService(backend SearchBackend, log zerolog.Logger) *SearchService {
	return &SearchService{backend: backend, log: log.With().Str("component", "search").Logger()}
}

// NormalizeQuery trims and lowercases a raw query.
func NormalizeQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Resolve looks the query up and returns the route to navigate to. Every
// backend failure collapses into domain.ErrNoMatch.
func (s *SearchService) Resolve(ctx context.Context, typ domain.SearchType, raw string) (string, error) {
	query := NormalizeQuery(raw)
	switch typ {
	case domain.SearchPlayers, domain.SearchUsers:
	default:
		return "", domain.ErrUnknownSearchType
	}
	if query == "" {
		return "", domain.ErrNoMatch
	}

	if typ == domain.SearchUsers {
		username, err := s.backend.SearchUser(ctx, query)
		if err != nil {
			s.log.Debug().Err(err).Str("query", query).Msg("user search failed")
			return "", domain.ErrNoMatch
		}
		if username == "" {
			return "", domain.ErrNoMatch
		}
		return UserRoute(username), nil
	}

	matches, err := s.backend.SearchPlayers(ctx, query)
	if err != nil {
		s.log.Debug().Err(err).Str("query", query).Msg("player search failed")
		return "", domain.ErrNoMatch
	}
	switch {
	case len(matches) == 1:
		return PlayerRoute(matches[0].GameName, matches[0].TagLine), nil
	case len(matches) > 1:
		return ResultsRoute(query), nil
	default:
		return "", domain.ErrNoMatch
	}
}

// Submit resolves the input's current text and navigates on success. The
// input is cleared only when navigation happens.
func (s *SearchService) Submit(ctx context.Context, typ domain.SearchType, input *SearchInput, nav Navigator) (string, error) {
	route, err := s.Resolve(ctx, typ, input.Value())
	if err != nil {
		return "", err
	}
	nav.Navigate(route)
	input.Clear()
	return route, nil
}

// PlayerRoute is /players/{gameName}/{tagLine}. Each segment is
// percent-escaped, so a space becomes %20 and a slash cannot split the path;
// a router decodes the segments back to the literal names.
func PlayerRoute(gameName, tagLine string) string {
	return "/players/" + url.PathEscape(gameName) + "/" + url.PathEscape(tagLine)
}

func ResultsRoute(query string) string {
	return "/results/players/" + url.PathEscape(query)
}

func UserRoute(username string) string {
	return "/users/" + url.PathEscape(username)
}
