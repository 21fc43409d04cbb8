// internal/game/normalize.go
//
// Rank normalization for provider-supplied similarity ranks.
// The external model estimates a rank; this file enforces the game rules
// on top of it so "rank 1" is an exclusive win signal and every other rank
// renders on exactly one row.

package game

// NormalizeRank applies the rank rules in order:
//  1. An exact match is rank 1 regardless of provider output.
//  2. A provider rank of 1 (or lower) for a non-identical word is clamped
//     to 2, so a misbehaving provider cannot signal a false win.
//  3. Any rank other than 1 that collides with an already-recorded rank is
//     incremented until an unused value is found. Unbounded in theory,
//     bounded in practice by the small guess count.
func NormalizeRank(raw int, guessed, target string, existing []Guess) int {
	if guessed == target {
		return 1
	}
	rank := raw
	if rank <= 1 {
		rank = 2
	}
	used := make(map[int]struct{}, len(existing))
	for _, g := range existing {
		if g.Rank != 1 {
			used[g.Rank] = struct{}{}
		}
	}
	for {
		if _, taken := used[rank]; !taken {
			return rank
		}
		rank++
	}
}
