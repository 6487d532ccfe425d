package domain

import "time"

// Player is a tournament player that can be ranked in Future Sight.
type Player struct {
	ID          int     `json:"id"`
	GameName    string  `json:"game_name"`
	TagLine     string  `json:"tag_line"`
	TableName   string  `json:"table_name"`
	TotalPoints float64 `json:"total_points,omitempty"`
}

// DisplayName renders the player the way the ranking grid does.
func (p Player) DisplayName() string {
	return p.GameName + " (" + p.TagLine + ")"
}

// PlayerStats is the detail panel payload for a single player.
type PlayerStats struct {
	Name        string    `json:"name"`
	Price       []float64 `json:"price"`
	Date        []string  `json:"date"`
	DateUpdated string    `json:"date_updated"`
	Change8h    float64   `json:"8 Hour Change"`
	Change24h   float64   `json:"24 Hour Change"`
	Change72h   float64   `json:"3 Day Change"`
	DelistDate  *string   `json:"delist_date,omitempty"`
}

// Pick is one ranked slot as submitted to the backend.
type Pick struct {
	PlayerID  int    `json:"player_id"`
	TableName string `json:"table_name"`
	Rank      int    `json:"rank"`
}

// SubmittedPick is a pick as returned with a user's prior submission.
type SubmittedPick struct {
	PlayerID  int    `json:"player_id"`
	Rank      int    `json:"rank"`
	GameName  string `json:"game_name"`
	TagLine   string `json:"tag_line"`
	TableName string `json:"table_name"`
}

// Player converts the submitted pick back into a rankable player.
func (p SubmittedPick) Player() Player {
	return Player{ID: p.PlayerID, GameName: p.GameName, TagLine: p.TagLine, TableName: p.TableName}
}

// Answer pairs a tiebreaker prompt with the user's answer.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Submission is the POST /ffs body.
type Submission struct {
	Picks     []Pick   `json:"picks"`
	Questions []Answer `json:"questions"`
}

// FutureSight is a user's stored submission.
type FutureSight struct {
	Ranking   []SubmittedPick `json:"ranking"`
	Questions []Answer        `json:"questions"`
}

// Standing is one row of the Future Sight points table.
type Standing struct {
	Username      string          `json:"username"`
	CurrentPoints float64         `json:"current_points"`
	Picks         []SubmittedPick `json:"picks"`
}

// SearchType selects what the search bar looks up.
type SearchType string

const (
	SearchPlayers SearchType = "players"
	SearchUsers   SearchType = "users"
)

// PlayerMatch is a single player search hit.
type PlayerMatch struct {
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// LeaderboardKind selects the leaderboard endpoint and entry shape.
type LeaderboardKind string

const (
	LeaderboardStandard  LeaderboardKind = "standard"
	LeaderboardPortfolio LeaderboardKind = "portfolio"
)

// LeaderboardEntry is a row of the standard (player LP) leaderboard.
type LeaderboardEntry struct {
	GameName string  `json:"gameName"`
	TagLine  string  `json:"tagLine"`
	LP       int     `json:"lp"`
	Delta8h  float64 `json:"delta_8h"`
	Delta24h float64 `json:"delta_24h"`
	Delta72h float64 `json:"delta_72h"`
	Rank     int     `json:"rank"`
}

// PortfolioEntry is a row of the user portfolio leaderboard.
type PortfolioEntry struct {
	Username string  `json:"username"`
	Value    float64 `json:"value"`
	Rank     int     `json:"rank"`
}

// LeaderboardPage holds one page of exactly one entry shape, chosen by Kind.
type LeaderboardPage struct {
	Kind         LeaderboardKind    `json:"kind"`
	Standard     []LeaderboardEntry `json:"standard,omitempty"`
	Portfolio    []PortfolioEntry   `json:"portfolio,omitempty"`
	TotalEntries int                `json:"totalEntries"`
}

// Len reports the number of entries on the page.
func (p LeaderboardPage) Len() int {
	if p.Kind == LeaderboardPortfolio {
		return len(p.Portfolio)
	}
	return len(p.Standard)
}

// Draft is an unsubmitted ranking saved between visits. Slots holds one
// player id per ranking slot, 0 for empty.
type Draft struct {
	Slots     []int     `json:"slots"`
	Answers   []Answer  `json:"answers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TradeSide is the direction of a stock trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// Trade buys or sells shares of one player in the user's current league.
type Trade struct {
	Side     TradeSide `json:"-"`
	GameName string    `json:"-"`
	TagLine  string    `json:"-"`
	Shares   int       `json:"shares"`
}
