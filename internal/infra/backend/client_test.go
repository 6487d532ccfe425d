package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"tftstocks/internal/auth"
	"tftstocks/internal/domain"
)

func TestPlayersDecodesAndValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ffs/players" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":1,"game_name":"Dishsoap","tag_line":"NA1","table_name":"players","total_points":12.5},
			{"id":2,"game_name":"Milk","tag_line":"BR1","table_name":"regionals_nonna"}]`))
	}))
	defer srv.Close()

	players, err := NewClient(Options{BaseURL: srv.URL}).Players(context.Background())
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 2 || players[0].GameName != "Dishsoap" || players[0].TotalPoints != 12.5 {
		t.Fatalf("unexpected players %+v", players)
	}
	if players[1].TableName != "regionals_nonna" {
		t.Fatalf("expected table name carried, got %+v", players[1])
	}
}

func TestPlayersMissingFieldIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"game_name":"Dishsoap","tag_line":"NA1","table_name":"players"}]`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Players(context.Background())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Endpoint != "/ffs/players" {
		t.Fatalf("expected endpoint recorded, got %q", verr.Endpoint)
	}
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Players(context.Background())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNonSuccessIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Players(context.Background())
	if !domain.HasStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected 500 status error, got %v", err)
	}
}

func TestPortfolioLeaderboardDropsExtraFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaderboard/portfolio" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "25" || r.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"entries":[{"username":"frodan","value":1200.5,"rank":1,"email":"x@y","balance":3}],"totalEntries":51}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Tokens: StaticToken("tok")})
	page, err := client.Leaderboard(context.Background(), domain.LeaderboardPortfolio, 2, 25)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if page.TotalEntries != 51 || len(page.Portfolio) != 1 || len(page.Standard) != 0 {
		t.Fatalf("unexpected page %+v", page)
	}

	raw, err := json.Marshal(page.Portfolio[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 3 || fields["username"] != "frodan" || fields["rank"] != float64(1) {
		t.Fatalf("expected only username/value/rank, got %v", fields)
	}
}

func TestStandardLeaderboardMissingFieldFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entries":[{"gameName":"a","tagLine":"b","lp":0,"delta_8h":0,"delta_24h":0,"rank":1}],"totalEntries":1}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Leaderboard(context.Background(), domain.LeaderboardStandard, 0, 100)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for missing delta_72h, got %v", err)
	}
	if verr.Field == "" {
		t.Fatalf("expected field path on validation error")
	}
}

func TestUnknownLeaderboardKind(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://unused"}).Leaderboard(context.Background(), "weekly", 0, 10)
	if !errors.Is(err, domain.ErrUnknownLeaderboard) {
		t.Fatalf("expected unknown leaderboard, got %v", err)
	}
}

func TestSubmitFutureSightPostsBody(t *testing.T) {
	var got domain.Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ffs" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	sub := domain.Submission{
		Picks:     []domain.Pick{{PlayerID: 4, TableName: "players", Rank: 1}},
		Questions: []domain.Answer{{Question: domain.PromptHighScore, Answer: "31"}},
	}
	if err := NewClient(Options{BaseURL: srv.URL, Tokens: StaticToken("tok")}).SubmitFutureSight(context.Background(), sub); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(got.Picks) != 1 || got.Picks[0].PlayerID != 4 || got.Questions[0].Answer != "31" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestUserFutureSight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ffs/has_future_sight":
			_, _ = w.Write([]byte(`{"hasFutureSight":true}`))
		case "/ffs/user_future_sight":
			_, _ = w.Write([]byte(`{"ranking":[{"player_id":3,"rank":1,"game_name":"a","tag_line":"b","table_name":"players"}],
				"questions":[{"question":"Who wins the event?","answer":"a"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	has, err := client.HasFutureSight(context.Background())
	if err != nil || !has {
		t.Fatalf("expected has future sight, got %v %v", has, err)
	}
	fs, err := client.UserFutureSight(context.Background())
	if err != nil {
		t.Fatalf("user future sight: %v", err)
	}
	if len(fs.Ranking) != 1 || fs.Ranking[0].PlayerID != 3 || fs.Questions[0].Answer != "a" {
		t.Fatalf("unexpected submission %+v", fs)
	}
}

func TestHasFutureSightRequiresField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).HasFutureSight(context.Background())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlayerStatsEscapesPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/ffs/players/k3soju%20jr/NA%231" {
			t.Errorf("unexpected escaped path %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"name":"k3soju jr","price":[1,2],"date":["d1","d2"],"date_updated":"now",
			"8 Hour Change":1.5,"24 Hour Change":0,"3 Day Change":-2}`))
	}))
	defer srv.Close()

	stats, err := NewClient(Options{BaseURL: srv.URL}).PlayerStats(context.Background(), "k3soju jr", "NA#1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Change8h != 1.5 || stats.Change72h != -2 || len(stats.Price) != 2 || stats.DelistDate != nil {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/players/dish":
			_, _ = w.Write([]byte(`[{"gameName":"Dishsoap","tagLine":"NA1"}]`))
		case "/search/users/frodan":
			_, _ = w.Write([]byte(`{"username":"frodan"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	matches, err := client.SearchPlayers(context.Background(), "dish")
	if err != nil || len(matches) != 1 || matches[0].TagLine != "NA1" {
		t.Fatalf("unexpected matches %+v %v", matches, err)
	}
	user, err := client.SearchUser(context.Background(), "frodan")
	if err != nil || user != "frodan" {
		t.Fatalf("unexpected user %q %v", user, err)
	}
	if _, err := client.SearchUser(context.Background(), "ghost"); !domain.HasStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestClaimsUsername(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "frodan", "sub": "auth0|1"}).
		SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	name, err := ClaimsUsername(signed)
	if err != nil || name != "frodan" {
		t.Fatalf("expected frodan, got %q %v", name, err)
	}

	subOnly, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "auth0|1"}).SignedString([]byte("secret"))
	name, err = ClaimsUsername(subOnly)
	if err != nil || name != "auth0|1" {
		t.Fatalf("expected subject fallback, got %q %v", name, err)
	}

	if _, err := ClaimsUsername("not-a-jwt"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestHMACIdentityRejectsForgedTokens(t *testing.T) {
	identity := HMACIdentity("server-secret")
	good, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "frodan"}).SignedString([]byte("server-secret"))
	name, err := identity.Identify(context.Background(), good)
	if err != nil || name != "frodan" {
		t.Fatalf("expected frodan, got %q %v", name, err)
	}

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "frodan"}).SignedString([]byte("someone-else"))
	if _, err := identity.Identify(context.Background(), forged); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected forged token rejected, got %v", err)
	}

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"username": "frodan"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := identity.Identify(context.Background(), unsigned); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unsigned token rejected, got %v", err)
	}

	if _, err := HMACIdentity(nil).Identify(context.Background(), good); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected rejection without a secret, got %v", err)
	}
}

func TestClientIdentifyAsksBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.Header.Get("Authorization"), validToken) {
			_, _ = w.Write([]byte(`{"hasFutureSight":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Tokens: StaticToken(validToken)})
	name, err := client.Identify(context.Background(), validToken)
	if err != nil || name != "frodan" {
		t.Fatalf("expected frodan, got %q %v", name, err)
	}

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "frodan"}).SignedString([]byte("forged"))
	_, err = client.Identify(context.Background(), forged)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected forged token rejected despite a configured token, got %v", err)
	}
	if !strings.Contains(err.Error(), "Could not validate credentials") {
		t.Fatalf("expected backend detail in error, got %v", err)
	}
}

var validToken = func() string {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "frodan"}).SignedString([]byte("backend-secret"))
	return token
}()

func TestContextTokenOverridesSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer per-request" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"hasFutureSight":false}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Tokens: StaticToken("configured")})
	if _, err := client.HasFutureSight(auth.WithToken(context.Background(), "per-request")); err != nil {
		t.Fatalf("has future sight: %v", err)
	}
}

func TestTransactPostsSharesAndMapsRejections(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	detail := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.EscapedPath(), r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if detail != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"` + detail + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"Transaction successful"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Tokens: StaticToken("tok")})
	trade := domain.Trade{Side: domain.TradeBuy, GameName: "Foo Bar", TagLine: "NA1", Shares: 4}
	if err := client.Transact(context.Background(), trade); err != nil {
		t.Fatalf("transact: %v", err)
	}
	if gotPath != "/players/Foo%20Bar/NA1/buy" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected request %s auth=%q", gotPath, gotAuth)
	}
	if len(gotBody) != 1 || gotBody["shares"] != float64(4) {
		t.Fatalf("expected only shares in body, got %v", gotBody)
	}

	cases := []struct {
		detail string
		want   error
	}{
		{"Insufficient Balance", domain.ErrInsufficientBalance},
		{"Insufficient Shares", domain.ErrInsufficientShares},
		{"Insufficient Free Shares", domain.ErrInsufficientShares},
		{"The league has ended, transactions are not allowed", domain.ErrLeagueEnded},
		{"Invalid gameName or tagLine", domain.ErrInvalidTrade},
	}
	for _, tc := range cases {
		detail = tc.detail
		err := client.Transact(context.Background(), domain.Trade{Side: domain.TradeSell, GameName: "Milk", TagLine: "BR1", Shares: 1})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.detail, tc.want, err)
		}
		if !domain.HasStatus(err, http.StatusBadRequest) {
			t.Fatalf("%q: expected wrapped 400, got %v", tc.detail, err)
		}
	}
}
