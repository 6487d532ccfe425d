package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tftstocks/internal/app"
)

// Routes bundles what the served surface needs.
type Routes struct {
	WS          *WSHandler
	Pages       *app.PageService
	Identity    Identifier
	Leaderboard *app.LeaderboardService
	Search      *app.SearchService
	Log         zerolog.Logger
}

func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(rt.Pages, rt.Log))
	r.Get("/ws", rt.WS.ServeWS)
	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard/{kind}", LeaderboardHandler(rt.Leaderboard, rt.Identity, rt.Log))
		r.Get("/search/{type}/{query}", SearchHandler(rt.Search))
	})
	return r
}
