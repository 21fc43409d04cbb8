package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomitooni/go-server/internal/provider"
	"github.com/tomitooni/go-server/internal/words"
)

// rankFunc adapts a function to the provider.Ranker interface.
type rankFunc func(ctx context.Context, secret, guess string) (provider.Result, error)

func (f rankFunc) Rank(ctx context.Context, secret, guess string) (provider.Result, error) {
	return f(ctx, secret, guess)
}

// fixedRank always reports a valid word at the given rank.
func fixedRank(rank int) rankFunc {
	return func(ctx context.Context, secret, guess string) (provider.Result, error) {
		return provider.Result{IsWord: true, Rank: rank}, nil
	}
}

// neverCalled fails the test if the provider is reached.
func neverCalled(t *testing.T) rankFunc {
	return func(ctx context.Context, secret, guess string) (provider.Result, error) {
		t.Fatal("provider called unexpectedly")
		return provider.Result{}, nil
	}
}

func dailyGame(target string) *Game {
	return &Game{
		Guesses:        []Guess{},
		LastPlayedDate: "2025-06-01",
		TargetWord:     target,
		Mode:           ModeDaily,
		Tier:           words.TierEasy,
	}
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSubmitGuessRejectsDuplicates(t *testing.T) {
	g := dailyGame("عشق")
	ctx := context.Background()
	if _, err := g.SubmitGuess(ctx, fixedRank(450), "آزادی", testNow); err != nil {
		t.Fatalf("first guess: %v", err)
	}
	_, err := g.SubmitGuess(ctx, neverCalled(t), "آزادی", testNow)
	if !errors.Is(err, ErrDuplicateGuess) {
		t.Fatalf("duplicate: got %v, want ErrDuplicateGuess", err)
	}
	if len(g.Guesses) != 1 {
		t.Errorf("duplicate mutated state: %d guesses", len(g.Guesses))
	}
}

func TestSubmitGuessRejectsNonPersian(t *testing.T) {
	g := dailyGame("عشق")
	_, err := g.SubmitGuess(context.Background(), neverCalled(t), "love", testNow)
	if !errors.Is(err, ErrNotPersian) {
		t.Fatalf("got %v, want ErrNotPersian", err)
	}
}

func TestSubmitGuessNotAWordLeavesStateUntouched(t *testing.T) {
	g := dailyGame("عشق")
	notWord := rankFunc(func(ctx context.Context, secret, guess string) (provider.Result, error) {
		return provider.Result{IsWord: false}, nil
	})
	_, err := g.SubmitGuess(context.Background(), notWord, "بررن", testNow)
	if !errors.Is(err, ErrNotAWord) {
		t.Fatalf("got %v, want ErrNotAWord", err)
	}
	if len(g.Guesses) != 0 || g.Finished() {
		t.Error("invalid word mutated game state")
	}
}

func TestFirstGuessExactMatchRejected(t *testing.T) {
	// Daily variant: target "باران", identical first guess is rejected
	// outright and the game stays in progress with zero recorded guesses.
	g := dailyGame("باران")
	_, err := g.SubmitGuess(context.Background(), neverCalled(t), "باران", testNow)
	if !errors.Is(err, ErrFirstGuessExact) {
		t.Fatalf("got %v, want ErrFirstGuessExact", err)
	}
	if len(g.Guesses) != 0 || g.Status() != "in_progress" {
		t.Errorf("rejection mutated state: %d guesses, status %s", len(g.Guesses), g.Status())
	}
}

func TestExactMatchAfterFirstGuessWins(t *testing.T) {
	g := dailyGame("باران")
	ctx := context.Background()
	if _, err := g.SubmitGuess(ctx, fixedRank(300), "دریا", testNow); err != nil {
		t.Fatalf("setup guess: %v", err)
	}
	// Exact match must not reach the provider.
	guess, err := g.SubmitGuess(ctx, neverCalled(t), "باران", testNow)
	if err != nil {
		t.Fatalf("winning guess: %v", err)
	}
	if guess.Rank != 1 || !g.Won || g.Status() != "won" {
		t.Errorf("win not recorded: rank=%d won=%v", guess.Rank, g.Won)
	}
}

func TestUnlimitedModeSkipsFirstGuessRule(t *testing.T) {
	g := dailyGame("باران")
	g.Mode = ModeUnlimited
	guess, err := g.SubmitGuess(context.Background(), neverCalled(t), "باران", testNow)
	if err != nil {
		t.Fatalf("unlimited first guess: %v", err)
	}
	if guess.Rank != 1 || !g.Won {
		t.Error("unlimited exact first guess should win")
	}
}

func TestRankCollisionReRanked(t *testing.T) {
	// Both guesses come back as 450; the second records as 451.
	g := dailyGame("عشق")
	ctx := context.Background()
	first, err := g.SubmitGuess(ctx, fixedRank(450), "آزادی", testNow)
	if err != nil || first.Rank != 450 {
		t.Fatalf("first: rank=%d err=%v", first.Rank, err)
	}
	second, err := g.SubmitGuess(ctx, fixedRank(450), "امید", testNow)
	if err != nil || second.Rank != 451 {
		t.Fatalf("second: rank=%d err=%v, want 451", second.Rank, err)
	}
}

func TestProviderOutageFallsBackToFarBand(t *testing.T) {
	g := dailyGame("عشق")
	failing := rankFunc(func(ctx context.Context, secret, guess string) (provider.Result, error) {
		return provider.Result{}, errors.New("network down")
	})
	resilient := provider.NewResilient(failing, nil, time.Second)
	guess, err := g.SubmitGuess(context.Background(), resilient, "امید", testNow)
	if err != nil {
		t.Fatalf("degraded guess: %v", err)
	}
	if guess.Rank < 1000 || guess.Rank >= 3000 {
		t.Errorf("fallback rank %d outside far band [1000,3000)", guess.Rank)
	}
	if g.Finished() {
		t.Error("degraded mode should keep the game playable")
	}
}

func TestGiveUpIsTerminal(t *testing.T) {
	g := dailyGame("عشق")
	ctx := context.Background()
	if _, err := g.SubmitGuess(ctx, fixedRank(450), "آزادی", testNow); err != nil {
		t.Fatalf("setup guess: %v", err)
	}
	g.GiveUp()
	if g.Status() != "given_up" || !g.Finished() {
		t.Fatalf("status %s after give up", g.Status())
	}
	if len(g.Guesses) != 1 {
		t.Error("give up should preserve guesses")
	}
	if _, err := g.SubmitGuess(ctx, neverCalled(t), "امید", testNow); !errors.Is(err, ErrFinished) {
		t.Errorf("guess after give up: got %v, want ErrFinished", err)
	}
	// Won and GivenUp are mutually exclusive.
	if g.Won {
		t.Error("give up must not set Won")
	}
}

func TestRestartOnlyInUnlimitedMode(t *testing.T) {
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}

	daily := dailyGame("عشق")
	if err := daily.Restart(testNow); !errors.Is(err, ErrDailyRestart) {
		t.Fatalf("daily restart: got %v, want ErrDailyRestart", err)
	}

	g := New(ModeUnlimited, words.TierEasy, testNow)
	if _, err := g.SubmitGuess(context.Background(), fixedRank(700), "قسطاس", testNow); err != nil {
		t.Fatalf("setup guess: %v", err)
	}
	g.GiveUp()
	g.WalletCredited = true
	if err := g.Restart(testNow); err != nil {
		t.Fatalf("unlimited restart: %v", err)
	}
	if len(g.Guesses) != 0 || g.Finished() || g.WalletCredited || g.HintUsed {
		t.Error("restart did not reset state")
	}
	if g.TargetWord == "" {
		t.Error("restart did not draw a word")
	}
}

func TestRestoreDiscardsYesterdaysState(t *testing.T) {
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	saved := New(ModeDaily, words.TierEasy, yesterday)
	saved.Guesses = append(saved.Guesses, Guess{Word: "دریا", Rank: 40, Timestamp: yesterday})

	g := Restore(saved, ModeDaily, words.TierEasy, now)
	if g == saved {
		t.Fatal("stale state was not discarded")
	}
	if len(g.Guesses) != 0 || g.LastPlayedDate != words.DateKey(now) {
		t.Errorf("fresh state wrong: %d guesses, date %s", len(g.Guesses), g.LastPlayedDate)
	}
	if g.TargetWord != words.Daily(now, words.TierEasy) {
		t.Error("fresh state has wrong target word")
	}
}

func TestRestoreDiscardsOnTierChange(t *testing.T) {
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	// Guest state restored after login: the hard-tier word now applies.
	saved := New(ModeDaily, words.TierEasy, now)
	g := Restore(saved, ModeDaily, words.TierHard, now)
	if g == saved {
		t.Fatal("tier change should discard state")
	}
	if g.TargetWord != words.Daily(now, words.TierHard) {
		t.Error("restored state should carry the hard-tier word")
	}

	// Same day, same tier: state survives.
	if again := Restore(g, ModeDaily, words.TierHard, now); again != g {
		t.Error("valid state was discarded")
	}
}

func TestSubmitHintMarksGame(t *testing.T) {
	g := dailyGame("عشق")
	guess, err := g.SubmitHint(context.Background(), fixedRank(90), "مهر", testNow)
	if err != nil {
		t.Fatalf("hint guess: %v", err)
	}
	if !guess.IsHint || !g.HintUsed {
		t.Error("hint flags not set")
	}
}

func TestBestRank(t *testing.T) {
	g := dailyGame("عشق")
	if g.BestRank() != 0 {
		t.Errorf("empty game best rank = %d, want 0", g.BestRank())
	}
	ctx := context.Background()
	_, _ = g.SubmitGuess(ctx, fixedRank(450), "آزادی", testNow)
	_, _ = g.SubmitGuess(ctx, fixedRank(90), "امید", testNow)
	if g.BestRank() != 90 {
		t.Errorf("best rank = %d, want 90", g.BestRank())
	}
}
