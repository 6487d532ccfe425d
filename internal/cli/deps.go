package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tftstocks/internal/app"
	"tftstocks/internal/config"
	"tftstocks/internal/infra/backend"
	"tftstocks/internal/infra/memory"
	pgstore "tftstocks/internal/infra/postgres"
	redisstore "tftstocks/internal/infra/redis"
	"tftstocks/internal/logging"
	transport "tftstocks/internal/transport/http"
)

// deps holds the collaborators shared by the subcommands.
type deps struct {
	cfg     config.Config
	log     zerolog.Logger
	client  *backend.Client
	redis   *redis.Client
	pool    *pgxpool.Pool
	closers []func()
}

func loadDeps(configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base url not configured")
	}

	d := &deps{cfg: cfg, log: logging.New(cfg.Log.Level, cfg.Log.Console)}
	d.client = d.newClient(backend.StaticToken(cfg.Auth.Token))
	return d, nil
}

// newClient builds a backend client; tokens is the fallback credential for
// requests that carry no caller token.
func (d *deps) newClient(tokens backend.TokenSource) *backend.Client {
	return backend.NewClient(backend.Options{
		BaseURL:   d.cfg.Backend.BaseURL,
		Timeout:   config.TTLDuration(d.cfg.Backend.Timeout, backend.DefaultTimeout),
		RateLimit: rate.Limit(d.cfg.Backend.RateLimit),
		Tokens:    tokens,
	})
}

// connect opens the optional Redis and Postgres connections.
func (d *deps) connect(ctx context.Context) error {
	if d.cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     d.cfg.Redis.Addr,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}
	if d.cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, d.cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
		d.closers = append(d.closers, pool.Close)
	}
	return nil
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// drafts prefers Postgres, then Redis, then process memory.
func (d *deps) drafts() (app.DraftRepository, error) {
	switch {
	case d.pool != nil:
		return pgstore.NewDraftStore(d.pool), nil
	case d.redis != nil:
		return redisstore.NewDraftStore(d.redis, config.TTLDuration(d.cfg.Redis.TTL, 7*24*time.Hour))
	default:
		return memory.NewDraftStore(), nil
	}
}

func (d *deps) leaderboards(loader app.LeaderboardRepository) app.LeaderboardRepository {
	ttl := config.TTLDuration(d.cfg.Leaderboard.TTL, time.Minute)
	if d.redis != nil {
		return redisstore.NewLeaderboardCache(d.redis, loader, ttl)
	}
	return memory.NewLeaderboardCache(loader, ttl)
}

// user reads the draft key from the configured token; empty disables drafts.
func (d *deps) user() string {
	if d.cfg.Auth.Token == "" {
		return ""
	}
	name, err := backend.ClaimsUsername(d.cfg.Auth.Token)
	if err != nil {
		d.log.Debug().Err(err).Msg("token carries no username, drafts disabled")
		return ""
	}
	return name
}

// identity verifies caller tokens locally when a signing secret is
// configured and otherwise confirms them with the backend.
func (d *deps) identity(served *backend.Client) transport.Identifier {
	if d.cfg.Auth.JWTSecret != "" {
		return backend.HMACIdentity(d.cfg.Auth.JWTSecret)
	}
	d.log.Info().Msg("no jwt secret configured, confirming caller tokens with the backend")
	return served
}
