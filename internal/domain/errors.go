package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch is returned when a search does not resolve to exactly one destination.
	ErrNoMatch = errors.New("no matching data found")
	// ErrUnknownSearchType indicates a search category other than players or users.
	ErrUnknownSearchType = errors.New("unknown search type")
	// ErrUnknownLeaderboard indicates a leaderboard kind other than standard or portfolio.
	ErrUnknownLeaderboard = errors.New("unknown leaderboard kind")
	// ErrPlayerNotFound is returned when a move references a player that is not where the move says.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrSlotOutOfRange indicates a ranking slot index outside 0..SlotCount-1.
	ErrSlotOutOfRange = errors.New("ranking slot out of range")
	// ErrReadOnly is returned for mutations after a submission is on record.
	ErrReadOnly = errors.New("future sight is read-only")
	// ErrIncompleteRanking is returned when submitting with empty slots.
	ErrIncompleteRanking = errors.New("ranking is incomplete")
	// ErrQuestionNotFound indicates an answer index outside the question list.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidAnswer indicates an answer outside the prompt's allowed values.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrDraftNotFound is returned by draft stores when nothing was saved for a user.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrNotReady is returned when the page is used before a successful load.
	ErrNotReady = errors.New("future sight page not ready")
	// ErrUnauthenticated is returned when a caller's token is missing, forged or rejected.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidTrade covers a bad side, a non-positive share count or an unknown player.
	ErrInvalidTrade = errors.New("invalid trade")
	// ErrInsufficientBalance is returned when a buy costs more than the league balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientShares is returned when a sell exceeds the shares held or not on hold.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrLeagueEnded is returned for trades after the league's end date.
	ErrLeagueEnded = errors.New("league has ended")
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Endpoint string
	Code     int
	// Detail is the backend's "detail" message, when it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

// ValidationError reports a backend response that does not match its schema.
type ValidationError struct {
	Endpoint string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid response: %s", e.Endpoint, e.Reason)
	}
	return fmt.Sprintf("%s: invalid response field %s: %s", e.Endpoint, e.Field, e.Reason)
}

// HasStatus reports whether err carries a backend status equal to code.
func HasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
