package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"tftstocks/internal/auth"
	"tftstocks/internal/domain"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Options configures the backend client.
type Options struct {
	BaseURL string
	// Timeout bounds each request (default: 15 seconds).
	Timeout time.Duration
	// RateLimit paces outgoing requests; zero means unlimited.
	RateLimit rate.Limit
	// Tokens supplies the bearer credential for authenticated endpoints.
	Tokens TokenSource
	// HTTPClient allows a custom HTTP client.
	HTTPClient *http.Client
}

// Client talks to the TFT Stocks backend. Every response is decoded into a
// strict wire schema and validated before it is converted to domain types.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	tokens   TokenSource
	validate *validator.Validate
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		limiter:  limiter,
		tokens:   tokens,
		validate: newValidator(),
	}
}

// SearchPlayers looks up players matching an already-normalized query.
func (c *Client) SearchPlayers(ctx context.Context, query string) ([]domain.PlayerMatch, error) {
	var out []wirePlayerMatch
	if err := c.get(ctx, "/search/players/"+url.PathEscape(query), false, &out); err != nil {
		return nil, err
	}
	if err := validateEach(c, "/search/players", out); err != nil {
		return nil, err
	}
	matches := make([]domain.PlayerMatch, 0, len(out))
	for _, m := range out {
		matches = append(matches, domain.PlayerMatch{GameName: m.GameName, TagLine: m.TagLine})
	}
	return matches, nil
}

// SearchUser resolves a username from an already-normalized query.
func (c *Client) SearchUser(ctx context.Context, query string) (string, error) {
	var out wireUser
	if err := c.get(ctx, "/search/users/"+url.PathEscape(query), false, &out); err != nil {
		return "", err
	}
	if err := c.check("/search/users", &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

// Players lists the players available for Future Sight.
func (c *Client) Players(ctx context.Context) ([]domain.Player, error) {
	var out []wirePlayer
	if err := c.get(ctx, "/ffs/players", false, &out); err != nil {
		return nil, err
	}
	if err := validateEach(c, "/ffs/players", out); err != nil {
		return nil, err
	}
	players := make([]domain.Player, 0, len(out))
	for _, p := range out {
		players = append(players, p.toDomain())
	}
	return players, nil
}

// PlayerStats fetches the detail panel payload for one player.
func (c *Client) PlayerStats(ctx context.Context, gameName, tagLine string) (domain.PlayerStats, error) {
	var out wirePlayerStats
	path := "/ffs/players/" + url.PathEscape(gameName) + "/" + url.PathEscape(tagLine)
	if err := c.get(ctx, path, false, &out); err != nil {
		return domain.PlayerStats{}, err
	}
	if err := c.check("/ffs/players/{gameName}/{tagLine}", &out); err != nil {
		return domain.PlayerStats{}, err
	}
	return out.toDomain(), nil
}

// HasFutureSight reports whether the authenticated user already submitted.
func (c *Client) HasFutureSight(ctx context.Context) (bool, error) {
	var out wireHasFutureSight
	if err := c.get(ctx, "/ffs/has_future_sight", true, &out); err != nil {
		return false, err
	}
	if err := c.check("/ffs/has_future_sight", &out); err != nil {
		return false, err
	}
	return *out.HasFutureSight, nil
}

// UserFutureSight fetches the authenticated user's submission.
func (c *Client) UserFutureSight(ctx context.Context) (domain.FutureSight, error) {
	var out wireFutureSight
	if err := c.get(ctx, "/ffs/user_future_sight", true, &out); err != nil {
		return domain.FutureSight{}, err
	}
	if err := c.check("/ffs/user_future_sight", &out); err != nil {
		return domain.FutureSight{}, err
	}
	return out.toDomain(), nil
}

// SubmitFutureSight posts the final ranking and tiebreaker answers.
func (c *Client) SubmitFutureSight(ctx context.Context, sub domain.Submission) error {
	return c.do(ctx, http.MethodPost, "/ffs", true, sub, nil)
}

// Standings fetches the Future Sight points table.
func (c *Client) Standings(ctx context.Context) ([]domain.Standing, error) {
	var out []wireStanding
	if err := c.get(ctx, "/ffs/leaderboard", false, &out); err != nil {
		return nil, err
	}
	if err := validateEach(c, "/ffs/leaderboard", out); err != nil {
		return nil, err
	}
	standings := make([]domain.Standing, 0, len(out))
	for _, s := range out {
		standings = append(standings, s.toDomain())
	}
	return standings, nil
}

// Transact buys or sells shares of a player. Rejections the backend explains
// are mapped onto the trade errors in domain, still wrapping the StatusError.
func (c *Client) Transact(ctx context.Context, trade domain.Trade) error {
	path := "/players/" + url.PathEscape(trade.GameName) + "/" + url.PathEscape(trade.TagLine) + "/" + url.PathEscape(string(trade.Side))
	err := c.do(ctx, http.MethodPost, path, true, trade, nil)
	var se *domain.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		return err
	}
	detail := strings.ToLower(se.Detail)
	switch {
	case strings.Contains(detail, "insufficient balance"):
		return fmt.Errorf("%w: %w", domain.ErrInsufficientBalance, err)
	case strings.Contains(detail, "shares"):
		return fmt.Errorf("%w: %w", domain.ErrInsufficientShares, err)
	case strings.Contains(detail, "league has ended"):
		return fmt.Errorf("%w: %w", domain.ErrLeagueEnded, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrInvalidTrade, err)
	}
}

// Leaderboard fetches one page and reshapes it into the entry type for kind.
func (c *Client) Leaderboard(ctx context.Context, kind domain.LeaderboardKind, page, limit int) (domain.LeaderboardPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	path := "/leaderboard/" + url.PathEscape(string(kind)) + "?" + q.Encode()
	endpoint := "/leaderboard/" + string(kind)

	switch kind {
	case domain.LeaderboardPortfolio:
		var out wireLeaderboard[wirePortfolioEntry]
		if err := c.get(ctx, path, true, &out); err != nil {
			return domain.LeaderboardPage{}, err
		}
		if err := c.check(endpoint, &out); err != nil {
			return domain.LeaderboardPage{}, err
		}
		entries := make([]domain.PortfolioEntry, 0, len(out.Entries))
		for _, e := range out.Entries {
			entries = append(entries, e.toDomain())
		}
		return domain.LeaderboardPage{Kind: kind, Portfolio: entries, TotalEntries: *out.TotalEntries}, nil
	case domain.LeaderboardStandard:
		var out wireLeaderboard[wireStandardEntry]
		if err := c.get(ctx, path, true, &out); err != nil {
			return domain.LeaderboardPage{}, err
		}
		if err := c.check(endpoint, &out); err != nil {
			return domain.LeaderboardPage{}, err
		}
		entries := make([]domain.LeaderboardEntry, 0, len(out.Entries))
		for _, e := range out.Entries {
			entries = append(entries, e.toDomain())
		}
		return domain.LeaderboardPage{Kind: kind, Standard: entries, TotalEntries: *out.TotalEntries}, nil
	default:
		return domain.LeaderboardPage{}, domain.ErrUnknownLeaderboard
	}
}

func (c *Client) get(ctx context.Context, path string, authed bool, out any) error {
	return c.do(ctx, http.MethodGet, path, authed, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authed {
		token, err := c.bearer(ctx)
		if err != nil {
			return fmt.Errorf("token for %s: %w", path, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpointOf(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &domain.StatusError{Endpoint: endpointOf(path), Code: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &domain.ValidationError{Endpoint: endpointOf(path), Reason: "malformed body: " + err.Error()}
	}
	return nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if token, ok := auth.TokenFrom(ctx); ok {
		return token, nil
	}
	return c.tokens.Token(ctx)
}

func (c *Client) check(endpoint string, v any) error {
	if err := c.validate.Struct(v); err != nil {
		return toValidationError(endpoint, err)
	}
	return nil
}

func validateEach[T any](c *Client, endpoint string, items []T) error {
	for i := range items {
		if err := c.validate.Struct(&items[i]); err != nil {
			return toValidationError(endpoint, err)
		}
	}
	return nil
}

func toValidationError(endpoint string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ValidationError{Endpoint: endpoint, Field: fe.Namespace(), Reason: "failed " + fe.Tag()}
	}
	return &domain.ValidationError{Endpoint: endpoint, Reason: err.Error()}
}

// errorDetail reads the {"detail": "..."} body the backend attaches to
// rejections. Anything else yields an empty string.
func errorDetail(body io.Reader) string {
	var out struct {
		Detail any `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	if detail, ok := out.Detail.(string); ok {
		return detail
	}
	return ""
}

func endpointOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
