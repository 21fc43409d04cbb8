// internal/game/types.go
//
// Core type definitions for the game engine.
// Defines:
//   - Mode: daily (one shared word per day) vs unlimited (random word).
//   - Guess: a single recorded guess with its normalized rank.
//   - Game: state for a single in-progress or finished game.

package game

import (
	"time"

	"github.com/tomitooni/go-server/internal/words"
)

// Mode selects how the target word is chosen and when state goes stale.
type Mode string

const (
	ModeDaily     Mode = "daily"
	ModeUnlimited Mode = "unlimited"
)

// Guess is one recorded guess. Rank 1 is reserved for the exact match;
// every other rank is unique within a game.
type Guess struct {
	Word      string    `json:"word"`
	Rank      int       `json:"rank"`
	Timestamp time.Time `json:"timestamp"`
	IsHint    bool      `json:"isHint,omitempty"`
}

// Game holds the full state of one game session.
// At most one of Won/GivenUp is ever true; once either is set the state is
// terminal for the current TargetWord.
type Game struct {
	Guesses        []Guess    `json:"guesses"`
	LastPlayedDate string     `json:"lastPlayedDate"` // YYYY-MM-DD (UTC)
	Won            bool       `json:"isWon"`
	GivenUp        bool       `json:"hasGivenUp"`
	HintUsed       bool       `json:"hintUsed"`
	TargetWord     string     `json:"targetWord"`
	Mode           Mode       `json:"mode"`
	Tier           words.Tier `json:"tier"`
	WalletCredited bool       `json:"walletCredited"` // settle-once guard
}

// Finished reports whether the game is in a terminal state.
func (g *Game) Finished() bool { return g.Won || g.GivenUp }

// Status reports a coarse string representation of the current state.
func (g *Game) Status() string {
	switch {
	case g.Won:
		return "won"
	case g.GivenUp:
		return "given_up"
	default:
		return "in_progress"
	}
}
