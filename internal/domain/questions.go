package domain

import (
	"math"
	"strconv"
	"strings"
)

// QuestionKind tells the page how an answer is entered.
type QuestionKind string

const (
	QuestionNumber QuestionKind = "number"
	QuestionChoice QuestionKind = "choice"
)

// Question is a tiebreaker prompt. Options is empty for number prompts and
// for the winner prompt until players are known.
type Question struct {
	Prompt   string       `json:"prompt"`
	Kind     QuestionKind `json:"kind"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
	ByPlayer bool         `json:"-"`
}

// Tiebreaker prompts, in display order.
const (
	PromptBestComp    = "Best AVP performing comp? (5 games min)"
	PromptRegionsAVP  = "Rank the regionals AVP (NA, LATAM, BR)"
	PromptWinner      = "Who wins the event?"
	PromptHighScore   = "Highest score for a day?"
	PromptNAWorlds    = "How many players does NA send to worlds?"
	PromptBryceFrodan = "Who does better: Bryce or Frodan?"
)

// DefaultQuestions returns a fresh copy of the tiebreaker set with empty answers.
func DefaultQuestions() []Question {
	return []Question{
		{Prompt: PromptBestComp, Kind: QuestionChoice, Options: []string{"1", "2", "3", "4", "5"}},
		{Prompt: PromptRegionsAVP, Kind: QuestionChoice, Options: []string{
			"1. NA | 2. BR | 3. LATAM", "1. NA | 2. LATAM | 3. BR", "1. BR | 2. NA | 3. LATAM",
			"1. BR | 2. LATAM | 3. NA", "1. LATAM | 2. NA | 3. BR", "1. LATAM | 2. BR | 3. NA",
		}},
		{Prompt: PromptWinner, Kind: QuestionChoice, ByPlayer: true},
		{Prompt: PromptHighScore, Kind: QuestionNumber},
		{Prompt: PromptNAWorlds, Kind: QuestionChoice, Options: []string{"1", "2", "3", "4", "5", "6"}},
		{Prompt: PromptBryceFrodan, Kind: QuestionChoice, Options: []string{"Bryce", "Frodan"}},
	}
}

// WithPlayerOptions fills player-backed prompts with the given game names.
func WithPlayerOptions(questions []Question, players []Player) []Question {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.GameName)
	}
	out := make([]Question, len(questions))
	copy(out, questions)
	for i := range out {
		if out[i].ByPlayer {
			out[i].Options = names
		}
	}
	return out
}

// Accepts reports whether value is a legal answer. Empty clears the answer.
func (q Question) Accepts(value string) bool {
	if value == "" {
		return true
	}
	switch q.Kind {
	case QuestionNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case QuestionChoice:
		for _, opt := range q.Options {
			if opt == value {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Answers projects questions into their submission form.
func Answers(questions []Question) []Answer {
	out := make([]Answer, 0, len(questions))
	for _, q := range questions {
		out = append(out, Answer{Question: q.Prompt, Answer: q.Answer})
	}
	return out
}

// QuestionsFromAnswers rebuilds the question list from a stored submission,
// keeping the stored order and borrowing kind and options from known prompts.
func QuestionsFromAnswers(known []Question, answers []Answer) []Question {
	byPrompt := make(map[string]Question, len(known))
	for _, q := range known {
		byPrompt[q.Prompt] = q
	}
	out := make([]Question, 0, len(answers))
	for _, a := range answers {
		q, ok := byPrompt[a.Question]
		if !ok {
			q = Question{Prompt: a.Question, Kind: QuestionChoice}
		}
		q.Answer = a.Answer
		out = append(out, q)
	}
	return out
}
