package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomitooni/go-server/internal/auth"
	"github.com/tomitooni/go-server/internal/game"
	"github.com/tomitooni/go-server/internal/provider"
	"github.com/tomitooni/go-server/internal/record"
	"github.com/tomitooni/go-server/internal/stats"
	"github.com/tomitooni/go-server/internal/words"
)

// rankFunc adapts a function to the provider.Ranker interface.
type rankFunc func(ctx context.Context, secret, guess string) (provider.Result, error)

func (f rankFunc) Rank(ctx context.Context, secret, guess string) (provider.Result, error) {
	return f(ctx, secret, guess)
}

type hintFunc func(ctx context.Context, secret string, targetRank int) (string, error)

func (f hintFunc) Hint(ctx context.Context, secret string, targetRank int) (string, error) {
	return f(ctx, secret, targetRank)
}

// newTestServer wires a server with in-memory records and fake providers.
// Guest flows never touch the users table, so no database is opened.
func newTestServer(t *testing.T, ranker provider.Ranker, hinter provider.Hinter) (*httptest.Server, *http.Client) {
	t.Helper()
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	s := New(nil, record.NewMemoryStore(), auth.NewCodeStore(0), ranker, hinter)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	raw, _ := json.Marshal(body)
	res, err := c.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	out := map[string]json.RawMessage{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func fixedRanker(rank int) rankFunc {
	return func(ctx context.Context, secret, guess string) (provider.Result, error) {
		return provider.Result{IsWord: true, Rank: rank}, nil
	}
}

func TestGuestDailyFlow(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)
	target := words.Daily(time.Now(), words.TierEasy)

	// Fresh state, no target word leaked.
	res, state := postJSON(t, client, srv.URL+"/game/state", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state: status %d", res.StatusCode)
	}
	if _, leaked := state["targetWord"]; leaked {
		t.Fatal("in-progress state leaks target word")
	}

	// A wrong guess records with the provider's rank.
	res, out := postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": "پرتقال"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("guess: status %d body %v", res.StatusCode, out)
	}

	// The same word again is a duplicate.
	res, _ = postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": "پرتقال"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: status %d, want 409", res.StatusCode)
	}

	// The exact word as a second guess wins.
	res, out = postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": target})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("winning guess: status %d", res.StatusCode)
	}
	var winState struct {
		State struct {
			Status     string `json:"status"`
			TargetWord string `json:"targetWord"`
		} `json:"state"`
	}
	raw, _ := json.Marshal(out)
	_ = json.Unmarshal(raw, &winState)
	if winState.State.Status != "won" || winState.State.TargetWord != target {
		t.Fatalf("win state: %+v", winState.State)
	}

	// Stats settled exactly once.
	statsRes, err := client.Get(srv.URL + "/stats/me")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer statsRes.Body.Close()
	var st struct {
		GamesPlayed int `json:"gamesPlayed"`
		GamesWon    int `json:"gamesWon"`
		Streak      int `json:"currentStreak"`
	}
	_ = json.NewDecoder(statsRes.Body).Decode(&st)
	if st.GamesPlayed != 1 || st.GamesWon != 1 || st.Streak != 1 {
		t.Errorf("stats after win: %+v", st)
	}

	// Terminal game rejects further transitions; stats stay settled.
	res, _ = postJSON(t, client, srv.URL+"/game/giveup", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusConflict {
		t.Errorf("giveup after win: status %d, want 409", res.StatusCode)
	}

	// Share text is available and names the word.
	shareRes, err := client.Get(srv.URL + "/game/share?mode=daily")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	defer shareRes.Body.Close()
	var share struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(shareRes.Body).Decode(&share)
	if !strings.Contains(share.Text, target) {
		t.Errorf("share text missing word: %q", share.Text)
	}
}

func TestFirstGuessAntiAutomation(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)
	target := words.Daily(time.Now(), words.TierEasy)

	res, _ := postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": target})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("first exact guess: status %d, want 403", res.StatusCode)
	}

	// No guess was recorded and the game is still in progress.
	_, state := postJSON(t, client, srv.URL+"/game/state", map[string]string{"mode": "daily"})
	var guesses []json.RawMessage
	_ = json.Unmarshal(state["guesses"], &guesses)
	if len(guesses) != 0 {
		t.Errorf("rejected guess was recorded: %d guesses", len(guesses))
	}
	var status string
	_ = json.Unmarshal(state["status"], &status)
	if status != "in_progress" {
		t.Errorf("status %s, want in_progress", status)
	}
}

func TestGiveUpSettlesLoss(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)

	postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": "پرتقال"})
	res, out := postJSON(t, client, srv.URL+"/game/giveup", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("giveup: status %d", res.StatusCode)
	}
	var status string
	_ = json.Unmarshal(out["status"], &status)
	if status != "given_up" {
		t.Fatalf("status %s, want given_up", status)
	}
	// Guesses survive the give-up and the word is revealed.
	if _, revealed := out["targetWord"]; !revealed {
		t.Error("give up should reveal the target word")
	}

	statsRes, err := client.Get(srv.URL + "/stats/me")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer statsRes.Body.Close()
	var st struct {
		GamesPlayed int `json:"gamesPlayed"`
		Streak      int `json:"currentStreak"`
	}
	_ = json.NewDecoder(statsRes.Body).Decode(&st)
	if st.GamesPlayed != 1 || st.Streak != 0 {
		t.Errorf("stats after give up: %+v", st)
	}
}

func TestHintRecordedAsGuess(t *testing.T) {
	hinter := hintFunc(func(ctx context.Context, secret string, targetRank int) (string, error) {
		return "مهربانی", nil
	})
	srv, client := newTestServer(t, fixedRanker(90), hinter)

	res, out := postJSON(t, client, srv.URL+"/game/hint", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("hint: status %d body %v", res.StatusCode, out)
	}
	var guess struct {
		Guess struct {
			Word   string `json:"word"`
			Rank   int    `json:"rank"`
			IsHint bool   `json:"isHint"`
		} `json:"guess"`
	}
	raw, _ := json.Marshal(out)
	_ = json.Unmarshal(raw, &guess)
	if guess.Guess.Word != "مهربانی" || !guess.Guess.IsHint || guess.Guess.Rank != 90 {
		t.Errorf("hint guess: %+v", guess.Guess)
	}
}

func TestHintNeverRevealsTarget(t *testing.T) {
	// A non-compliant model returning the secret word must be discarded.
	var secretWord string
	hinter := hintFunc(func(ctx context.Context, secret string, targetRank int) (string, error) {
		secretWord = secret
		return secret, nil
	})
	srv, client := newTestServer(t, fixedRanker(90), hinter)

	res, _ := postJSON(t, client, srv.URL+"/game/hint", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("target-word hint: status %d, want 502", res.StatusCode)
	}
	_, state := postJSON(t, client, srv.URL+"/game/state", map[string]string{"mode": "daily"})
	var status string
	_ = json.Unmarshal(state["status"], &status)
	if status != "in_progress" {
		t.Errorf("hint leak changed status to %s (secret %q)", status, secretWord)
	}
}

func TestRestartUnlimitedOnly(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)

	res, _ := postJSON(t, client, srv.URL+"/game/restart", map[string]string{"mode": "unlimited"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unlimited restart: status %d", res.StatusCode)
	}
	res, _ = postJSON(t, client, srv.URL+"/game/restart", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("daily restart: status %d, want 400", res.StatusCode)
	}
}

func TestShareRefusedWhileInProgress(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)
	postJSON(t, client, srv.URL+"/game/state", map[string]string{"mode": "daily"})

	res, err := client.Get(srv.URL + "/game/share?mode=daily")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("share in progress: status %d, want 409", res.StatusCode)
	}
}

// blockingRanker signals when a rank call starts and holds it until released,
// so tests can interleave other requests with an outstanding call.
type blockingRanker struct {
	started chan struct{}
	release chan struct{}
	rank    int
}

func (b *blockingRanker) Rank(ctx context.Context, secret, guess string) (provider.Result, error) {
	b.started <- struct{}{}
	<-b.release
	return provider.Result{IsWord: true, Rank: b.rank}, nil
}

func TestGiveUpBusyDuringRankCall(t *testing.T) {
	br := &blockingRanker{started: make(chan struct{}), release: make(chan struct{}), rank: 450}
	srv, client := newTestServer(t, br, nil)

	// Establish the anon cookie before spawning concurrent requests.
	postJSON(t, client, srv.URL+"/game/state", map[string]string{"mode": "daily"})

	guessDone := make(chan int, 1)
	go func() {
		raw, _ := json.Marshal(map[string]string{"mode": "daily", "word": "پرتقال"})
		res, err := client.Post(srv.URL+"/game/guess", "application/json", bytes.NewReader(raw))
		if err != nil {
			guessDone <- 0
			return
		}
		res.Body.Close()
		guessDone <- res.StatusCode
	}()
	<-br.started // the guess now holds the in-flight slot

	// A give-up accepted here would later be clobbered by the blocked
	// guess's save; it must be rejected as busy instead.
	res, _ := postJSON(t, client, srv.URL+"/game/giveup", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("giveup during rank call: status %d, want 409", res.StatusCode)
	}
	res, _ = postJSON(t, client, srv.URL+"/game/restart", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("restart during rank call: status %d, want 409", res.StatusCode)
	}

	close(br.release)
	if status := <-guessDone; status != http.StatusOK {
		t.Fatalf("blocked guess: status %d", status)
	}

	// With the rank call drained the give-up goes through, and the game
	// instance settles exactly once.
	res, out := postJSON(t, client, srv.URL+"/game/giveup", map[string]string{"mode": "daily"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("giveup after drain: status %d body %v", res.StatusCode, out)
	}
	var status string
	_ = json.Unmarshal(out["status"], &status)
	if status != "given_up" {
		t.Fatalf("status %s, want given_up", status)
	}
	statsRes, err := client.Get(srv.URL + "/stats/me")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer statsRes.Body.Close()
	var st struct {
		GamesPlayed int `json:"gamesPlayed"`
		GamesWon    int `json:"gamesWon"`
	}
	_ = json.NewDecoder(statsRes.Body).Decode(&st)
	if st.GamesPlayed != 1 || st.GamesWon != 0 {
		t.Errorf("stats after interleaved give-up: %+v", st)
	}
}

func TestConcurrentSettlementsAllCounted(t *testing.T) {
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	s := New(nil, record.NewMemoryStore(), auth.NewCodeStore(0), nil, nil)
	p := player{ID: "a:settle-race"}

	// Settlements for the same player arrive from distinct in-flight slots
	// (daily vs unlimited); none may be lost to an interleaved read-modify-write.
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := game.New(game.ModeUnlimited, words.TierEasy, time.Now())
			g.GiveUp()
			s.settle(httptest.NewRequest(http.MethodPost, "/", nil), p, g)
		}()
	}
	wg.Wait()

	var st stats.PlayerStats
	if _, err := s.records.Load(context.Background(), record.StatsKey(p.ID), &st); err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if st.GamesPlayed != n {
		t.Fatalf("GamesPlayed = %d, want %d", st.GamesPlayed, n)
	}
}

func TestInvalidWordRejected(t *testing.T) {
	srv, client := newTestServer(t, fixedRanker(450), nil)
	res, _ := postJSON(t, client, srv.URL+"/game/guess", map[string]string{"mode": "daily", "word": "notfarsi"})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("latin guess: status %d, want 422", res.StatusCode)
	}
}
