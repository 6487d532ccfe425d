package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tftstocks/internal/app"
	"tftstocks/internal/auth"
	"tftstocks/internal/domain"
	"tftstocks/internal/draft"
)

// Identifier maps a caller's bearer token to a verified username. It fails
// with domain.ErrUnauthenticated for tokens it cannot trust.
type Identifier interface {
	Identify(ctx context.Context, token string) (string, error)
}

type WSHandler struct {
	pages    *app.PageService
	search   *app.SearchService
	identity Identifier
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(pages *app.PageService, search *app.SearchService, identity Identifier, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		pages:    pages,
		search:   search,
		identity: identity,
		log:      log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type movePayload struct {
	PlayerID int `json:"playerId"`
	// FromSlot is absent when the player is dragged out of the pool.
	FromSlot *int `json:"fromSlot"`
	To       int  `json:"to"`
}

type slotPayload struct {
	Slot int `json:"slot"`
}

type answerPayload struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type selectPayload struct {
	PlayerID int `json:"playerId"`
}

type searchPayload struct {
	Type  domain.SearchType `json:"type"`
	Query string            `json:"query"`
}

type navigatePayload struct {
	Route string `json:"route"`
}

type submittedPayload struct {
	Picks int `json:"picks"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds the connection to the caller's
// Future Sight page. Page snapshots are pushed on every change.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	user, status, err := authenticate(r.Context(), h.identity, token)
	if err != nil {
		h.log.Info().Err(err).Msg("ws rejected")
		http.Error(w, http.StatusText(status), status)
		return
	}

	log := h.log.With().Str("conn", uuid.NewString()).Str("user", user).Logger()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := auth.WithToken(r.Context(), token)
	page, err := h.pages.Open(ctx, user)
	if err != nil {
		log.Warn().Err(err).Msg("open page")
	}

	defer h.pages.Release(context.WithoutCancel(ctx), user)
	updates, cancel := page.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: state}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	log.Info().Msg("future sight connected")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(ctx, page, inbound); ok {
			send <- msg
		}
	}
	log.Info().Msg("future sight disconnected")

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. State changes reach the client through
// the snapshot subscription, so only replies and errors are returned here.
func (h *WSHandler) handle(ctx context.Context, page *app.FutureSightPage, in inboundMessage) (outboundMessage[any], bool) {
	var err error
	switch in.Type {
	case "move":
		var p movePayload
		if err = decode(in.Payload, &p); err == nil {
			from := draft.FromPool()
			if p.FromSlot != nil {
				from = draft.FromSlot(*p.FromSlot)
			}
			err = page.Move(ctx, p.PlayerID, from, p.To)
		}
	case "returnToPool":
		var p slotPayload
		if err = decode(in.Payload, &p); err == nil {
			err = page.ReturnToPool(ctx, p.Slot)
		}
	case "answer":
		var p answerPayload
		if err = decode(in.Payload, &p); err == nil {
			err = page.Answer(ctx, p.Index, p.Value)
		}
	case "select":
		var p selectPayload
		if err = decode(in.Payload, &p); err == nil {
			_, err = page.Select(ctx, p.PlayerID)
		}
	case "submit":
		if err = page.Submit(ctx); err == nil {
			return outboundMessage[any]{Type: "submitted", Payload: submittedPayload{Picks: draft.SlotCount}}, true
		}
	case "search":
		var p searchPayload
		if err = decode(in.Payload, &p); err == nil {
			var route string
			if route, err = h.search.Resolve(ctx, p.Type, p.Query); err == nil {
				return outboundMessage[any]{Type: "navigate", Payload: navigatePayload{Route: route}}, true
			}
		}
	default:
		err = errUnsupported
	}
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}, true
	}
	return outboundMessage[any]{}, false
}

var (
	errUnsupported = errors.New("unsupported message type")
	errBadPayload  = errors.New("invalid payload")
)

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

// authenticate resolves token to a verified username. Unknown or forged
// tokens map to 401; an identity check that could not run maps to 502.
func authenticate(ctx context.Context, identity Identifier, token string) (string, int, error) {
	if token == "" {
		return "", http.StatusUnauthorized, domain.ErrUnauthenticated
	}
	user, err := identity.Identify(ctx, token)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "", http.StatusUnauthorized, err
	case err != nil:
		return "", http.StatusBadGateway, err
	case user == "":
		return "", http.StatusUnauthorized, domain.ErrUnauthenticated
	}
	return user, http.StatusOK, nil
}

// bearerToken reads the token from the query string, which browsers can set
// on a WebSocket URL, or from the Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}
