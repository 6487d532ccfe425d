package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"tftstocks/internal/domain"
)

// TradeBackend places stock trades for the authenticated user.
type TradeBackend interface {
	Transact(ctx context.Context, trade domain.Trade) error
}

// TradeService checks a trade locally before sending it, so obviously bad
// orders never reach the backend.
type TradeService struct {
	backend TradeBackend
	log     zerolog.Logger
}

func NewTradeService(backend TradeBackend, log zerolog.Logger) *TradeService {
	return &TradeService{backend: backend, log: log.With().Str("component", "trade").Logger()}
}

func (s *TradeService) Place(ctx context.Context, trade domain.Trade) error {
	trade.GameName = strings.TrimSpace(trade.GameName)
	trade.TagLine = strings.TrimSpace(trade.TagLine)
	switch {
	case trade.Side != domain.TradeBuy && trade.Side != domain.TradeSell:
		return domain.ErrInvalidTrade
	case trade.Shares <= 0, trade.GameName == "", trade.TagLine == "":
		return domain.ErrInvalidTrade
	}

	log := s.log.With().Str("side", string(trade.Side)).Str("player", trade.GameName+"#"+trade.TagLine).Int("shares", trade.Shares).Logger()
	if err := s.backend.Transact(ctx, trade); err != nil {
		log.Warn().Err(err).Msg("trade rejected")
		return err
	}
	log.Info().Msg("trade placed")
	return nil
}
