// internal/game/engine.go
//
// Core game engine for a single "To Me Tony" session.
// Responsibilities:
//   - Create fresh games and restore persisted ones, discarding stale state
//     on day rollover or tier change.
//   - Validate and apply guesses: Persian-script check, duplicate rejection,
//     the daily-mode first-guess rule, provider ranking, rank normalization.
//   - Track state transitions: in_progress → won | given_up (terminal).
//
// Notes:
//   - Ranking is delegated to a provider.Ranker; an exact match never
//     reaches the provider.
//   - The first-guess rejection in daily mode is a heuristic business rule
//     against automated play, not a cryptographic guarantee. It can reject
//     a legitimately lucky first guess.
package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tomitooni/go-server/internal/provider"
	"github.com/tomitooni/go-server/internal/words"
)

var (
	// ErrFinished: the game is terminal; no further guesses are accepted.
	ErrFinished = errors.New("game finished")
	// ErrNotPersian: the guess contains non-Persian characters.
	ErrNotPersian = errors.New("not persian text")
	// ErrNotAWord: the provider reported the text is not a valid word.
	ErrNotAWord = errors.New("not a word")
	// ErrDuplicateGuess: the word was already guessed this game.
	ErrDuplicateGuess = errors.New("duplicate guess")
	// ErrFirstGuessExact: daily-mode rejection of an exact match on the
	// very first guess of a fresh game.
	ErrFirstGuessExact = errors.New("first guess exact match rejected")
	// ErrDailyRestart: restart is only available in unlimited mode.
	ErrDailyRestart = errors.New("restart not allowed in daily mode")
)

// New constructs a fresh in-progress game for a mode and tier.
// In daily mode the target is the deterministic word for now's date;
// in unlimited mode it is drawn at random from the tier's list.
func New(mode Mode, tier words.Tier, now time.Time) *Game {
	target := words.Daily(now, tier)
	if mode == ModeUnlimited {
		target = words.Random(tier)
	}
	return &Game{
		Guesses:        []Guess{},
		LastPlayedDate: words.DateKey(now),
		TargetWord:     target,
		Mode:           mode,
		Tier:           tier,
	}
}

// Restore returns saved when it is still valid for (now, tier), otherwise a
// fresh game. Daily state is stale when the stored date is not today or the
// stored target no longer matches the word for today + tier; this is how
// day rollover and login-triggered tier changes are handled. Unlimited
// state never goes stale by date.
func Restore(saved *Game, mode Mode, tier words.Tier, now time.Time) *Game {
	if saved == nil {
		return New(mode, tier, now)
	}
	if mode == ModeUnlimited {
		if saved.Mode != ModeUnlimited || saved.TargetWord == "" {
			return New(mode, tier, now)
		}
		return saved
	}
	if saved.Mode != ModeDaily ||
		saved.LastPlayedDate != words.DateKey(now) ||
		saved.TargetWord != words.Daily(now, tier) {
		return New(mode, tier, now)
	}
	return saved
}

// SubmitGuess validates, ranks, and records a player-typed guess.
func (g *Game) SubmitGuess(ctx context.Context, ranker provider.Ranker, word string, now time.Time) (Guess, error) {
	return g.submit(ctx, ranker, word, now, false)
}

// SubmitHint records a provider-generated hint word as a guess. Hints are
// exempt from the first-guess rule and mark the game as hint-assisted.
func (g *Game) SubmitHint(ctx context.Context, ranker provider.Ranker, word string, now time.Time) (Guess, error) {
	guess, err := g.submit(ctx, ranker, word, now, true)
	if err != nil {
		return guess, err
	}
	g.HintUsed = true
	return guess, nil
}

func (g *Game) submit(ctx context.Context, ranker provider.Ranker, word string, now time.Time, isHint bool) (Guess, error) {
	if g.Finished() {
		return Guess{}, ErrFinished
	}
	word = strings.TrimSpace(word)
	if !words.IsPersian(word) {
		return Guess{}, ErrNotPersian
	}
	if lo.SomeBy(g.Guesses, func(prev Guess) bool { return prev.Word == word }) {
		return Guess{}, ErrDuplicateGuess
	}
	if !isHint && g.Mode == ModeDaily && len(g.Guesses) == 0 && word == g.TargetWord {
		return Guess{}, ErrFirstGuessExact
	}

	var raw int
	if word == g.TargetWord {
		// Exact match: rank 1 with no provider round-trip.
		raw = 1
	} else {
		res, err := ranker.Rank(ctx, g.TargetWord, word)
		if err != nil {
			return Guess{}, err
		}
		if !res.IsWord {
			return Guess{}, ErrNotAWord
		}
		raw = res.Rank
	}

	guess := Guess{
		Word:      word,
		Rank:      NormalizeRank(raw, word, g.TargetWord, g.Guesses),
		Timestamp: now,
		IsHint:    isHint,
	}
	g.Guesses = append(g.Guesses, guess)
	if guess.Rank == 1 {
		g.Won = true
	}
	return guess, nil
}

// GiveUp terminates the game, preserving guesses so far.
func (g *Game) GiveUp() {
	if g.Finished() {
		return
	}
	g.GivenUp = true
}

// Restart discards all guesses and draws a fresh random word.
// Only available in unlimited mode.
func (g *Game) Restart(now time.Time) error {
	if g.Mode != ModeUnlimited {
		return ErrDailyRestart
	}
	g.Guesses = []Guess{}
	g.LastPlayedDate = words.DateKey(now)
	g.Won = false
	g.GivenUp = false
	g.HintUsed = false
	g.WalletCredited = false
	g.TargetWord = words.Random(g.Tier)
	return nil
}

// BestRank returns the lowest rank recorded so far, or 0 with no guesses.
// Used to aim hint requests at roughly half the player's current best.
func (g *Game) BestRank() int {
	best := lo.MinBy(g.Guesses, func(a, b Guess) bool { return a.Rank < b.Rank })
	return best.Rank
}
