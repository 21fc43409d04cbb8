// internal/stats/ledger.go
//
// Aggregate play statistics and prize bookkeeping.
// Settle is a pure accumulator over PlayerStats; the exactly-once guarantee
// per game instance comes from the caller consulting and setting the game's
// WalletCredited flag before/after calling it.

package stats

// Prize constants for the daily (prize) variant. Amounts are in toman.
const (
	PrizeLimit    = 7     // max guesses for a win to qualify for the reward
	RewardAmount  = 7000  // credited per qualifying win
	MinWithdrawal = 50000 // minimum wallet balance for a withdrawal request
)

// PlayerStats holds monotonically-accumulating counters. CurrentStreak is
// the only field that can go down, and only via the reset on loss/give-up.
type PlayerStats struct {
	GamesPlayed   int `json:"gamesPlayed"`
	GamesWon      int `json:"gamesWon"`
	CurrentStreak int `json:"currentStreak"`
	MaxStreak     int `json:"maxStreak"`
	TotalGuesses  int `json:"totalGuesses"` // summed over won games only
	TotalEarnings int `json:"totalEarnings"`
}

// PrizeEligible reports whether a finished game qualifies for the wallet
// reward: a win within PrizeLimit guesses by a logged-in player. Guests
// never receive credit regardless of guess count.
func PrizeEligible(won bool, guessCount int, loggedIn bool) bool {
	return won && loggedIn && guessCount <= PrizeLimit
}

// Settle folds one finished game into the stats and returns the amount
// credited to the wallet (0 unless the game was prize eligible).
func Settle(s *PlayerStats, won bool, guessCount int, prizeEligible bool) int {
	s.GamesPlayed++
	if !won {
		s.CurrentStreak = 0
		return 0
	}
	s.GamesWon++
	s.CurrentStreak++
	if s.CurrentStreak > s.MaxStreak {
		s.MaxStreak = s.CurrentStreak
	}
	s.TotalGuesses += guessCount
	if !prizeEligible {
		return 0
	}
	s.TotalEarnings += RewardAmount
	return RewardAmount
}

// AverageGuesses is the mean guess count over won games.
func (s *PlayerStats) AverageGuesses() float64 {
	if s.GamesWon == 0 {
		return 0
	}
	return float64(s.TotalGuesses) / float64(s.GamesWon)
}
