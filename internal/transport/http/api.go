package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tftstocks/internal/app"
	"tftstocks/internal/domain"
)

// LeaderboardHandler serves GET /api/leaderboard/{kind}?page=&limit=.
// Every backend leaderboard needs a bearer token, so callers must present
// their own verified one.
func LeaderboardHandler(service *app.LeaderboardService, identity Identifier, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if _, status, err := authenticate(r.Context(), identity, token); err != nil {
			writeError(w, status, err)
			return
		}
		kind := domain.LeaderboardKind(chi.URLParam(r, "kind"))
		page := intQuery(r, "page", app.DefaultLeaderboardPage)
		limit := intQuery(r, "limit", app.DefaultLeaderboardPageSize)

		result, err := service.Fetch(r.Context(), kind, token, page, limit)
		if err != nil {
			status := http.StatusBadGateway
			var verr *domain.ValidationError
			var serr *domain.StatusError
			switch {
			case errors.Is(err, domain.ErrUnknownLeaderboard):
				status = http.StatusNotFound
			case errors.As(err, &serr) && (serr.Code == http.StatusUnauthorized || serr.Code == http.StatusForbidden):
				status = serr.Code
			case errors.As(err, &verr):
				log.Warn().Err(err).Msg("leaderboard response rejected")
			default:
				log.Warn().Err(err).Str("kind", string(kind)).Msg("fetch leaderboard")
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// SearchHandler serves GET /api/search/{type}/{query}.
func SearchHandler(service *app.SearchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ := domain.SearchType(chi.URLParam(r, "type"))
		route, err := service.Resolve(r.Context(), typ, chi.URLParam(r, "query"))
		switch {
		case errors.Is(err, domain.ErrUnknownSearchType):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			writeError(w, http.StatusNotFound, err)
		default:
			writeJSON(w, http.StatusOK, navigatePayload{Route: route})
		}
	}
}

type healthPayload struct {
	Status      string `json:"status"`
	ActivePages *int   `json:"activePages,omitempty"`
}

// Healthz reports liveness and, when the page registry can count them, the
// number of users with a live Future Sight page.
func Healthz(pages *app.PageService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := healthPayload{Status: "ok"}
		if n, err := pages.Active(r.Context()); err != nil {
			log.Warn().Err(err).Msg("count active pages")
		} else {
			out.ActivePages = &n
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func intQuery(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}
