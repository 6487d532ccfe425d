package backend

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tftstocks/internal/domain"
)

// Wire types mirror backend JSON. Pointers mark numeric and boolean fields
// that must be present even when zero.

type wirePlayerMatch struct {
	GameName string `json:"gameName" validate:"required"`
	TagLine  string `json:"tagLine" validate:"required"`
}

type wireUser struct {
	Username string `json:"username" validate:"required"`
}

type wirePlayer struct {
	ID          *int     `json:"id" validate:"required"`
	GameName    string   `json:"game_name" validate:"required"`
	TagLine     string   `json:"tag_line" validate:"required"`
	TableName   string   `json:"table_name" validate:"required"`
	TotalPoints *float64 `json:"total_points"`
}

func (p wirePlayer) toDomain() domain.Player {
	out := domain.Player{ID: *p.ID, GameName: p.GameName, TagLine: p.TagLine, TableName: p.TableName}
	if p.TotalPoints != nil {
		out.TotalPoints = *p.TotalPoints
	}
	return out
}

type wirePlayerStats struct {
	Name        string    `json:"name" validate:"required"`
	Price       []float64 `json:"price" validate:"required"`
	Date        []string  `json:"date" validate:"required"`
	DateUpdated string    `json:"date_updated"`
	Change8h    *float64  `json:"8 Hour Change" validate:"required"`
	Change24h   *float64  `json:"24 Hour Change" validate:"required"`
	Change72h   *float64  `json:"3 Day Change" validate:"required"`
	DelistDate  *string   `json:"delist_date"`
}

func (s wirePlayerStats) toDomain() domain.PlayerStats {
	return domain.PlayerStats{
		Name:        s.Name,
		Price:       s.Price,
		Date:        s.Date,
		DateUpdated: s.DateUpdated,
		Change8h:    *s.Change8h,
		Change24h:   *s.Change24h,
		Change72h:   *s.Change72h,
		DelistDate:  s.DelistDate,
	}
}

type wireHasFutureSight struct {
	HasFutureSight *bool `json:"hasFutureSight" validate:"required"`
}

type wireSubmittedPick struct {
	PlayerID  *int   `json:"player_id" validate:"required"`
	Rank      *int   `json:"rank" validate:"required"`
	GameName  string `json:"game_name" validate:"required"`
	TagLine   string `json:"tag_line" validate:"required"`
	TableName string `json:"table_name" validate:"required"`
}

func (p wireSubmittedPick) toDomain() domain.SubmittedPick {
	return domain.SubmittedPick{
		PlayerID:  *p.PlayerID,
		Rank:      *p.Rank,
		GameName:  p.GameName,
		TagLine:   p.TagLine,
		TableName: p.TableName,
	}
}

type wireAnswer struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

type wireFutureSight struct {
	Ranking   []wireSubmittedPick `json:"ranking" validate:"required,dive"`
	Questions []wireAnswer        `json:"questions" validate:"required,dive"`
}

func (f wireFutureSight) toDomain() domain.FutureSight {
	out := domain.FutureSight{
		Ranking:   make([]domain.SubmittedPick, 0, len(f.Ranking)),
		Questions: make([]domain.Answer, 0, len(f.Questions)),
	}
	for _, p := range f.Ranking {
		out.Ranking = append(out.Ranking, p.toDomain())
	}
	for _, q := range f.Questions {
		out.Questions = append(out.Questions, domain.Answer{Question: q.Question, Answer: q.Answer})
	}
	return out
}

type wireStanding struct {
	Username      string              `json:"username" validate:"required"`
	CurrentPoints *float64            `json:"current_points" validate:"required"`
	Picks         []wireSubmittedPick `json:"picks" validate:"dive"`
}

func (s wireStanding) toDomain() domain.Standing {
	out := domain.Standing{Username: s.Username, CurrentPoints: *s.CurrentPoints}
	for _, p := range s.Picks {
		out.Picks = append(out.Picks, p.toDomain())
	}
	return out
}

type wireLeaderboard[T any] struct {
	Entries      []T  `json:"entries" validate:"required,dive"`
	TotalEntries *int `json:"totalEntries" validate:"required"`
}

type wireStandardEntry struct {
	GameName string   `json:"gameName" validate:"required"`
	TagLine  string   `json:"tagLine" validate:"required"`
	LP       *int     `json:"lp" validate:"required"`
	Delta8h  *float64 `json:"delta_8h" validate:"required"`
	Delta24h *float64 `json:"delta_24h" validate:"required"`
	Delta72h *float64 `json:"delta_72h" validate:"required"`
	Rank     *int     `json:"rank" validate:"required"`
}

func (e wireStandardEntry) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		GameName: e.GameName,
		TagLine:  e.TagLine,
		LP:       *e.LP,
		Delta8h:  *e.Delta8h,
		Delta24h: *e.Delta24h,
		Delta72h: *e.Delta72h,
		Rank:     *e.Rank,
	}
}

type wirePortfolioEntry struct {
	Username string   `json:"username" validate:"required"`
	Value    *float64 `json:"value" validate:"required"`
	Rank     *int     `json:"rank" validate:"required"`
}

func (e wirePortfolioEntry) toDomain() domain.PortfolioEntry {
	return domain.PortfolioEntry{Username: e.Username, Value: *e.Value, Rank: *e.Rank}
}

// newValidator reports field paths by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
