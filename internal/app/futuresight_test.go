package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tftstocks/internal/domain"
	"tftstocks/internal/draft"
)

func TestLoadSelectsFirstPlayer(t *testing.T) {
	backend := newFakeBackend(10)
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})

	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	state := page.Snapshot()
	if state.Mode != ModeReady || state.ReadOnly {
		t.Fatalf("expected editable ready page, got %+v", state)
	}
	if len(state.Board.Pool) != 10 {
		t.Fatalf("expected all players pooled, got %d", len(state.Board.Pool))
	}
	if state.Selected == nil || state.Selected.ID != 1 {
		t.Fatalf("expected first player selected, got %+v", state.Selected)
	}
	if state.Detail == nil || state.Detail.Name != "p1" || state.DetailLoading {
		t.Fatalf("expected first player detail, got %+v loading=%v", state.Detail, state.DetailLoading)
	}
	winner := state.Questions[2]
	if winner.Prompt != domain.PromptWinner || len(winner.Options) != 10 {
		t.Fatalf("expected winner options from players, got %+v", winner)
	}
}

func TestLoadErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&domain.StatusError{Endpoint: "/ffs/players", Code: http.StatusInternalServerError}, MsgServerError},
		{&domain.StatusError{Endpoint: "/ffs/players", Code: http.StatusBadGateway}, MsgPlayersFailed},
		{&domain.ValidationError{Endpoint: "/ffs/players", Reason: "malformed body"}, MsgPlayersFailed},
	}
	for _, tc := range cases {
		backend := newFakeBackend(3)
		backend.playersErr = tc.err
		page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})

		if err := page.Load(context.Background()); !errors.Is(err, tc.err) {
			t.Fatalf("expected %v, got %v", tc.err, err)
		}
		state := page.Snapshot()
		if state.Mode != ModeError || state.Error != tc.want {
			t.Fatalf("expected error %q, got %+v", tc.want, state)
		}
		if err := page.Move(context.Background(), 1, draft.FromPool(), 0); !errors.Is(err, domain.ErrNotReady) {
			t.Fatalf("expected not ready, got %v", err)
		}
	}
}

func TestHasFutureSightFailureLeavesPageEditable(t *testing.T) {
	backend := newFakeBackend(3)
	backend.hasErr = errors.New("unauthorized")
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})

	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()
	if err := page.Move(context.Background(), 2, draft.FromPool(), 0); err != nil {
		t.Fatalf("expected editable page, got %v", err)
	}
}

func TestPriorSubmissionMakesPageReadOnly(t *testing.T) {
	backend := newFakeBackend(10)
	backend.has = true
	backend.prior = domain.FutureSight{
		Ranking: []domain.SubmittedPick{
			{PlayerID: 5, Rank: 2, GameName: "p5", TagLine: "NA1", TableName: "players"},
			{PlayerID: 9, Rank: 1, GameName: "p9", TagLine: "NA1", TableName: "players"},
		},
		Questions: []domain.Answer{{Question: domain.PromptHighScore, Answer: "32"}},
	}
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})
	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	state := page.Snapshot()
	if !state.ReadOnly || !state.Board.Locked {
		t.Fatalf("expected read-only page")
	}
	if state.Board.Slots[0] == nil || state.Board.Slots[0].ID != 9 || state.Board.Slots[1].ID != 5 {
		t.Fatalf("expected ranking restored by rank, got %+v", state.Board.Slots)
	}
	if len(state.Questions) != 1 || state.Questions[0].Answer != "32" || state.Questions[0].Kind != domain.QuestionNumber {
		t.Fatalf("expected server answers, got %+v", state.Questions)
	}

	if err := page.Move(context.Background(), 1, draft.FromPool(), 3); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only move, got %v", err)
	}
	if err := page.ReturnToPool(context.Background(), 0); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only return, got %v", err)
	}
	if err := page.Answer(context.Background(), 0, "40"); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only answer, got %v", err)
	}
	if err := page.Submit(context.Background()); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only submit, got %v", err)
	}
	// selecting still works in read-only mode
	if _, err := page.Select(context.Background(), 9); err != nil {
		t.Fatalf("select: %v", err)
	}
	page.WaitDetails()
}

func TestStaleDetailIsNeverApplied(t *testing.T) {
	backend := newFakeBackend(5)
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})
	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	slow := backend.hold("p2")
	first, err := page.Select(context.Background(), 2)
	if err != nil {
		t.Fatalf("select 2: %v", err)
	}
	second, err := page.Select(context.Background(), 3)
	if err != nil {
		t.Fatalf("select 3: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing generations, got %d then %d", first, second)
	}

	waitFor(t, func() bool {
		s := page.Snapshot()
		return s.Detail != nil && s.Detail.Name == "p3"
	})
	close(slow)
	page.WaitDetails()

	state := page.Snapshot()
	if state.Detail.Name != "p3" || state.Selected.ID != 3 {
		t.Fatalf("expected latest selection to win, got detail %s selected %d", state.Detail.Name, state.Selected.ID)
	}
}

func TestDetailErrorIsOnlyLogged(t *testing.T) {
	backend := newFakeBackend(3)
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})
	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	backend.setStatsErr(errors.New("timeout"))
	if _, err := page.Select(context.Background(), 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	page.WaitDetails()

	state := page.Snapshot()
	if state.Mode != ModeReady || state.DetailLoading {
		t.Fatalf("expected ready page with loading cleared, got %+v", state)
	}
	if state.Detail == nil || state.Detail.Name != "p1" {
		t.Fatalf("expected previous detail left in place, got %+v", state.Detail)
	}
}

func TestSubmitPostsFullRanking(t *testing.T) {
	backend := newFakeBackend(10)
	drafts := newFakeDrafts()
	page := NewFutureSightPage(backend, PageOptions{User: "frodan", Drafts: drafts, Log: zerolog.Nop()})
	ctx := context.Background()
	if err := page.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	if err := page.Submit(ctx); !errors.Is(err, domain.ErrIncompleteRanking) {
		t.Fatalf("expected incomplete ranking, got %v", err)
	}
	for slot := 0; slot < draft.SlotCount; slot++ {
		if err := page.Move(ctx, 10-slot, draft.FromPool(), slot); err != nil {
			t.Fatalf("move: %v", err)
		}
	}
	if err := page.Answer(ctx, 3, "29"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, ok := drafts.saved["frodan"]; !ok {
		t.Fatalf("expected draft autosaved")
	}

	if err := page.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sub := backend.submitted[0]
	if len(sub.Picks) != draft.SlotCount {
		t.Fatalf("expected %d picks, got %d", draft.SlotCount, len(sub.Picks))
	}
	for i, pick := range sub.Picks {
		if pick.Rank != i+1 || pick.PlayerID != 10-i {
			t.Fatalf("pick %d: unexpected %+v", i, pick)
		}
	}
	if len(sub.Questions) != 6 || sub.Questions[3].Answer != "29" {
		t.Fatalf("unexpected questions %+v", sub.Questions)
	}
	if !page.Snapshot().ReadOnly {
		t.Fatalf("expected read-only after submit")
	}
	if _, ok := drafts.saved["frodan"]; ok {
		t.Fatalf("expected draft deleted after submit")
	}
	if err := page.Move(ctx, 1, draft.FromSlot(0), 1); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only after submit, got %v", err)
	}
}

func TestSubmitFailureSetsError(t *testing.T) {
	backend := newFakeBackend(8)
	backend.submitErr = &domain.StatusError{Endpoint: "/ffs", Code: http.StatusConflict}
	page := NewFutureSightPage(backend, PageOptions{Log: zerolog.Nop()})
	ctx := context.Background()
	if err := page.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()
	for slot := 0; slot < draft.SlotCount; slot++ {
		if err := page.Move(ctx, slot+1, draft.FromPool(), slot); err != nil {
			t.Fatalf("move: %v", err)
		}
	}

	if err := page.Submit(ctx); !domain.HasStatus(err, http.StatusConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	state := page.Snapshot()
	if state.Mode != ModeError || state.Error != MsgSubmitFailed {
		t.Fatalf("expected submit error, got %+v", state)
	}
}

func TestAnswerValidation(t *testing.T) {
	page := NewFutureSightPage(newFakeBackend(3), PageOptions{Log: zerolog.Nop()})
	ctx := context.Background()
	if err := page.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	if err := page.Answer(ctx, 6, "x"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if err := page.Answer(ctx, 3, "lots"); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid number, got %v", err)
	}
	if err := page.Answer(ctx, 5, "Soju"); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid choice, got %v", err)
	}
	if err := page.Answer(ctx, 2, "p2"); err != nil {
		t.Fatalf("expected player option accepted, got %v", err)
	}
	if got := page.Snapshot().Questions[2].Answer; got != "p2" {
		t.Fatalf("expected winner answer stored, got %q", got)
	}
}

func TestDraftRestoredOnLoad(t *testing.T) {
	backend := newFakeBackend(10)
	drafts := newFakeDrafts()
	drafts.saved["frodan"] = domain.Draft{
		Slots:   []int{4, 0, 7, 0, 0, 0, 0, 0},
		Answers: []domain.Answer{{Question: domain.PromptBryceFrodan, Answer: "Frodan"}},
	}
	page := NewFutureSightPage(backend, PageOptions{User: "frodan", Drafts: drafts, Log: zerolog.Nop()})
	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()

	state := page.Snapshot()
	if state.Board.Slots[0].ID != 4 || state.Board.Slots[2].ID != 7 || len(state.Board.Pool) != 8 {
		t.Fatalf("expected draft slots restored, got %+v", state.Board)
	}
	if state.Questions[5].Answer != "Frodan" {
		t.Fatalf("expected draft answer restored, got %+v", state.Questions[5])
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	page := NewFutureSightPage(newFakeBackend(4), PageOptions{Log: zerolog.Nop()})
	updates, cancel := page.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.Mode != ModeLoading {
		t.Fatalf("expected loading state first, got %s", initial.Mode)
	}
	if err := page.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	page.WaitDetails()
	if err := page.Move(context.Background(), 1, draft.FromPool(), 0); err != nil {
		t.Fatalf("move: %v", err)
	}

	var last PageState
	for {
		select {
		case s := <-updates:
			last = s
			continue
		default:
		}
		break
	}
	if last.Version != page.Snapshot().Version || last.Board.Slots[0] == nil {
		t.Fatalf("expected latest state delivered, got version %d", last.Version)
	}
}

type fakeBackend struct {
	mu         sync.Mutex
	players    []domain.Player
	playersErr error
	has        bool
	hasErr     error
	prior      domain.FutureSight
	statsErr   error
	holds      map[string]chan struct{}
	submitErr  error
	submitted  []domain.Submission
}

func newFakeBackend(n int) *fakeBackend {
	players := make([]domain.Player, 0, n)
	for i := 1; i <= n; i++ {
		players = append(players, domain.Player{ID: i, GameName: "p" + strconv.Itoa(i), TagLine: "NA1", TableName: "players"})
	}
	return &fakeBackend{players: players, holds: make(map[string]chan struct{})}
}

func (f *fakeBackend) Players(context.Context) ([]domain.Player, error) {
	if f.playersErr != nil {
		return nil, f.playersErr
	}
	return f.players, nil
}

func (f *fakeBackend) HasFutureSight(context.Context) (bool, error) {
	return f.has, f.hasErr
}

func (f *fakeBackend) UserFutureSight(context.Context) (domain.FutureSight, error) {
	return f.prior, nil
}

func (f *fakeBackend) PlayerStats(_ context.Context, gameName, _ string) (domain.PlayerStats, error) {
	f.mu.Lock()
	hold := f.holds[gameName]
	err := f.statsErr
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	if err != nil {
		return domain.PlayerStats{}, err
	}
	return domain.PlayerStats{Name: gameName, Price: []float64{1, 2}}, nil
}

func (f *fakeBackend) SubmitFutureSight(_ context.Context, sub domain.Submission) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, sub)
	return nil
}

// hold blocks stats for gameName until the returned channel is closed.
func (f *fakeBackend) hold(gameName string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[gameName] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeBackend) setStatsErr(err error) {
	f.mu.Lock()
	f.statsErr = err
	f.mu.Unlock()
}

type fakeDrafts struct {
	saved map[string]domain.Draft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{saved: make(map[string]domain.Draft)}
}

func (d *fakeDrafts) Save(_ context.Context, user string, saved domain.Draft) error {
	d.saved[user] = saved
	return nil
}

func (d *fakeDrafts) Load(_ context.Context, user string) (domain.Draft, error) {
	saved, ok := d.saved[user]
	if !ok {
		return domain.Draft{}, domain.ErrDraftNotFound
	}
	return saved, nil
}

func (d *fakeDrafts) Delete(_ context.Context, user string) error {
	delete(d.saved, user)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
