package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tftstocks/internal/domain"
	"tftstocks/internal/draft"
)

// User-facing page errors.
const (
	MsgServerError   = "Server error, please try again later."
	MsgPlayersFailed = "Failed to fetch players."
	MsgSubmitFailed  = "An error occurred while submitting your data."
)

// FutureSightBackend is the part of the backend the page talks to.
type FutureSightBackend interface {
	Players(ctx context.Context) ([]domain.Player, error)
	HasFutureSight(ctx context.Context) (bool, error)
	UserFutureSight(ctx context.Context) (domain.FutureSight, error)
	PlayerStats(ctx context.Context, gameName, tagLine string) (domain.PlayerStats, error)
	SubmitFutureSight(ctx context.Context, sub domain.Submission) error
}

// DraftRepository keeps unsubmitted rankings between visits, keyed by user.
type DraftRepository interface {
	Save(ctx context.Context, user string, d domain.Draft) error
	// Load returns domain.ErrDraftNotFound when nothing is saved.
	Load(ctx context.Context, user string) (domain.Draft, error)
	Delete(ctx context.Context, user string) error
}

// Mode is the coarse page state.
type Mode string

const (
	ModeLoading Mode = "loading"
	ModeError   Mode = "error"
	ModeReady   Mode = "ready"
)

// PageState is what a renderer needs to draw the page.
type PageState struct {
	Mode          Mode                `json:"mode"`
	Error         string              `json:"error,omitempty"`
	ReadOnly      bool                `json:"readOnly"`
	Board         draft.Snapshot      `json:"board"`
	Questions     []domain.Question   `json:"questions"`
	Selected      *domain.Player      `json:"selected,omitempty"`
	Detail        *domain.PlayerStats `json:"detail,omitempty"`
	DetailLoading bool                `json:"detailLoading"`
	Version       uint64              `json:"version"`
}

// PageOptions wires optional collaborators into a page.
type PageOptions struct {
	// User keys saved drafts. Drafts are disabled when empty.
	User   string
	Drafts DraftRepository
	Log    zerolog.Logger
	Now    func() time.Time
}

// FutureSightPage owns one user's Future Sight state: the ranking board, the
// tiebreaker answers and the player detail panel. Every change is published
// to subscribers as a PageState.
type FutureSightPage struct {
	backend FutureSightBackend
	drafts  DraftRepository
	user    string
	log     zerolog.Logger
	now     func() time.Time

	mu            sync.Mutex
	mode          Mode
	errMsg        string
	board         *draft.Board
	questions     []domain.Question
	readOnly      bool
	submitting    bool
	selected      *domain.Player
	detail        *domain.PlayerStats
	detailLoading bool
	detailGen     uint64
	version       uint64
	subscribers   map[chan PageState]struct{}

	saveMu       sync.Mutex
	savedVersion uint64

	details sync.WaitGroup
}

func NewFutureSightPage(backend FutureSightBackend, opts PageOptions) *FutureSightPage {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &FutureSightPage{
		backend:     backend,
		drafts:      opts.Drafts,
		user:        opts.User,
		log:         opts.Log.With().Str("component", "futuresight").Str("user", opts.User).Logger(),
		now:         now,
		mode:        ModeLoading,
		board:       draft.NewBoard(nil),
		questions:   domain.DefaultQuestions(),
		subscribers: make(map[chan PageState]struct{}),
	}
}

// Load fetches the players and the user's submission state. A player fetch
// failure puts the page in error mode; a failed submission lookup is only
// logged and leaves the page editable.
func (p *FutureSightPage) Load(ctx context.Context) error {
	p.mu.Lock()
	p.mode = ModeLoading
	p.errMsg = ""
	p.bumpLocked()
	p.mu.Unlock()

	var (
		players    []domain.Player
		has        bool
		hasErr     error
		submission domain.FutureSight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = p.backend.Players(gctx)
		return err
	})
	g.Go(func() error {
		has, hasErr = p.backend.HasFutureSight(gctx)
		if hasErr == nil && has {
			submission, hasErr = p.backend.UserFutureSight(gctx)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		p.log.Error().Err(err).Msg("fetch players")
		p.mu.Lock()
		p.mode = ModeError
		p.errMsg = MsgPlayersFailed
		if domain.HasStatus(err, http.StatusInternalServerError) {
			p.errMsg = MsgServerError
		}
		p.bumpLocked()
		p.mu.Unlock()
		return err
	}
	if hasErr != nil {
		p.log.Warn().Err(hasErr).Msg("check future sight")
	}

	board := draft.NewBoard(players)
	questions := domain.WithPlayerOptions(domain.DefaultQuestions(), players)
	readOnly := false
	switch {
	case hasErr == nil && has:
		board.Restore(submission.Ranking)
		board.Lock()
		questions = domain.QuestionsFromAnswers(questions, submission.Questions)
		readOnly = true
	case p.drafts != nil && p.user != "":
		saved, err := p.drafts.Load(ctx, p.user)
		switch {
		case err == nil:
			board = draft.Arrange(players, saved.Slots)
			applyAnswers(questions, saved.Answers)
		case !errors.Is(err, domain.ErrDraftNotFound):
			p.log.Warn().Err(err).Msg("load draft")
		}
	}

	p.mu.Lock()
	p.board = board
	p.questions = questions
	p.readOnly = readOnly
	p.mode = ModeReady
	p.selected = nil
	p.detail = nil
	p.detailLoading = false
	p.detailGen++
	p.bumpLocked()
	p.mu.Unlock()

	p.log.Info().Int("players", len(players)).Bool("read_only", readOnly).Msg("future sight loaded")
	if len(players) > 0 {
		if _, err := p.Select(ctx, players[0].ID); err != nil {
			p.log.Debug().Err(err).Msg("select first player")
		}
	}
	return nil
}

// Select shows playerID in the detail panel and fetches its stats in the
// background. It returns the generation of the fetch; a response is applied
// only while its generation is still the latest.
func (p *FutureSightPage) Select(ctx context.Context, playerID int) (uint64, error) {
	p.mu.Lock()
	if p.mode != ModeReady {
		p.mu.Unlock()
		return 0, domain.ErrNotReady
	}
	player, ok := p.board.Player(playerID)
	if !ok {
		p.mu.Unlock()
		return 0, domain.ErrPlayerNotFound
	}
	p.detailGen++
	gen := p.detailGen
	p.selected = &player
	p.detailLoading = true
	p.bumpLocked()
	p.mu.Unlock()

	p.details.Add(1)
	go func() {
		defer p.details.Done()
		stats, err := p.backend.PlayerStats(ctx, player.GameName, player.TagLine)

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.detailGen {
			p.log.Debug().Uint64("generation", gen).Uint64("latest", p.detailGen).Msg("discard stale player detail")
			return
		}
		p.detailLoading = false
		if err != nil {
			p.log.Warn().Err(err).Str("player", player.DisplayName()).Msg("fetch player stats")
		} else {
			p.detail = &stats
		}
		p.bumpLocked()
	}()
	return gen, nil
}

// WaitDetails blocks until in-flight detail fetches finish.
func (p *FutureSightPage) WaitDetails() {
	p.details.Wait()
}

// Move drops a player onto ranking slot to.
func (p *FutureSightPage) Move(ctx context.Context, playerID int, from draft.Origin, to int) error {
	return p.mutate(ctx, func() error {
		return p.board.MovePlayer(playerID, from, to)
	})
}

// ReturnToPool sends the occupant of slot from back to the pool.
func (p *FutureSightPage) ReturnToPool(ctx context.Context, from int) error {
	return p.mutate(ctx, func() error {
		return p.board.ReturnToPool(from)
	})
}

// Answer sets the answer for the tiebreaker at index.
func (p *FutureSightPage) Answer(ctx context.Context, index int, value string) error {
	return p.mutate(ctx, func() error {
		if index < 0 || index >= len(p.questions) {
			return domain.ErrQuestionNotFound
		}
		if !p.questions[index].Accepts(value) {
			return domain.ErrInvalidAnswer
		}
		p.questions[index].Answer = value
		return nil
	})
}

// Submit posts the full ranking with the tiebreaker answers. On success the
// page becomes read-only; on failure it switches to error mode.
func (p *FutureSightPage) Submit(ctx context.Context) error {
	p.mu.Lock()
	if err := p.editableLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.submitting {
		p.mu.Unlock()
		return domain.ErrReadOnly
	}
	picks, err := p.board.Picks()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	sub := domain.Submission{Picks: picks, Questions: domain.Answers(p.questions)}
	p.submitting = true
	p.mu.Unlock()

	err = p.backend.SubmitFutureSight(ctx, sub)

	p.mu.Lock()
	p.submitting = false
	if err != nil {
		p.mode = ModeError
		p.errMsg = MsgSubmitFailed
		p.bumpLocked()
		p.mu.Unlock()
		p.log.Error().Err(err).Msg("submit future sight")
		return err
	}
	p.readOnly = true
	p.board.Lock()
	p.bumpLocked()
	p.mu.Unlock()

	p.log.Info().Int("picks", len(sub.Picks)).Msg("future sight submitted")
	if p.drafts != nil && p.user != "" {
		if err := p.drafts.Delete(ctx, p.user); err != nil {
			p.log.Warn().Err(err).Msg("delete draft")
		}
	}
	return nil
}

// Snapshot returns the current page state.
func (p *FutureSightPage) Snapshot() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe returns a channel of page states, starting with the current one.
// Slow subscribers only ever see the latest state. The caller must invoke
// the returned cancel function.
func (p *FutureSightPage) Subscribe() (<-chan PageState, func()) {
	ch := make(chan PageState, 8)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	ch <- p.snapshotLocked()
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *FutureSightPage) mutate(ctx context.Context, fn func() error) error {
	p.mu.Lock()
	if err := p.editableLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	if err := fn(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.bumpLocked()
	d := domain.Draft{Slots: p.board.SlotIDs(), Answers: domain.Answers(p.questions), UpdatedAt: p.now()}
	version := p.version
	p.mu.Unlock()

	p.autosave(ctx, version, d)
	return nil
}

func (p *FutureSightPage) editableLocked() error {
	if p.mode != ModeReady {
		return domain.ErrNotReady
	}
	if p.readOnly || p.submitting {
		return domain.ErrReadOnly
	}
	return nil
}

// autosave writes d unless a newer version was already saved.
func (p *FutureSightPage) autosave(ctx context.Context, version uint64, d domain.Draft) {
	if p.drafts == nil || p.user == "" {
		return
	}
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if version <= p.savedVersion {
		return
	}
	if err := p.drafts.Save(ctx, p.user, d); err != nil {
		p.log.Warn().Err(err).Msg("save draft")
		return
	}
	p.savedVersion = version
}

func (p *FutureSightPage) bumpLocked() {
	p.version++
	p.broadcastLocked()
}

func (p *FutureSightPage) broadcastLocked() {
	state := p.snapshotLocked()
	for ch := range p.subscribers {
		select {
		case ch <- state:
		default:
			// drop the stale state so a slow reader cannot block the page
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func (p *FutureSightPage) snapshotLocked() PageState {
	questions := make([]domain.Question, len(p.questions))
	copy(questions, p.questions)
	state := PageState{
		Mode:          p.mode,
		Error:         p.errMsg,
		ReadOnly:      p.readOnly,
		Board:         p.board.Snapshot(),
		Questions:     questions,
		DetailLoading: p.detailLoading,
		Version:       p.version,
	}
	if p.selected != nil {
		sel := *p.selected
		state.Selected = &sel
	}
	if p.detail != nil {
		det := *p.detail
		state.Detail = &det
	}
	return state
}

func applyAnswers(questions []domain.Question, answers []domain.Answer) {
	for _, a := range answers {
		for i := range questions {
			if questions[i].Prompt == a.Question && questions[i].Accepts(a.Answer) {
				questions[i].Answer = a.Answer
			}
		}
	}
}

// Idle reports whether no subscriber is attached.
func (p *FutureSightPage) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers) == 0
}
