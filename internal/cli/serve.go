package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tftstocks/internal/app"
	"tftstocks/internal/config"
	"tftstocks/internal/infra/backend"
	"tftstocks/internal/infra/memory"
	redisstore "tftstocks/internal/infra/redis"
	transport "tftstocks/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand that hosts the Future Sight page.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Future Sight page over WebSocket plus the search and leaderboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := loadDeps(configPath)
	if err != nil {
		return err
	}
	if err := d.connect(ctx); err != nil {
		return err
	}
	defer d.close()

	if d.cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, d.cfg, d.log); err != nil {
			return err
		}
	}

	finalPort := resolvePort(portFlag, os.Getenv("PORT"), d.cfg.Server.Port)

	drafts, err := d.drafts()
	if err != nil {
		return err
	}
	// callers always bring their own token; the operator's never stands in
	served := d.newClient(backend.StaticToken(""))
	newPage := func(user string) *app.FutureSightPage {
		return app.NewFutureSightPage(served, app.PageOptions{User: user, Drafts: drafts, Log: d.log})
	}
	var registry app.PageRepository
	if d.redis != nil {
		registry = redisstore.NewPageStore(d.redis, config.TTLDuration(d.cfg.Redis.TTL, 10*time.Minute), newPage)
	} else {
		registry = memory.NewPageStore(newPage)
	}
	pages := app.NewPageService(registry)
	identity := d.identity(served)

	search := app.NewSearchService(served, d.log)
	router := transport.NewRouter(transport.Routes{
		WS:          transport.NewWSHandler(pages, search, identity, d.log),
		Pages:       pages,
		Identity:    identity,
		Leaderboard: app.NewLeaderboardService(d.leaderboards(served)),
		Search:      search,
		Log:         d.log,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		d.log.Info().Str("port", finalPort).Str("backend", d.cfg.Backend.BaseURL).Msg("starting tftstocks")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		d.log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		d.log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// resolvePort picks the listen port: flag, then $PORT, then config, then 8080.
func resolvePort(flag, env, configured string) string {
	for _, p := range []string{flag, env, configured} {
		if p != "" {
			return p
		}
	}
	return "8080"
}
