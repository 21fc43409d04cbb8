// internal/words/daily.go
//
// Deterministic daily word selection.
// The same (date, tier) pair always maps to the same word so every player
// sees one secret word per calendar day per tier, with no server state.

package words

import "time"

// gameEpoch is the launch date used for the public game number.
var gameEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Daily returns the deterministic word for a date and tier: a polynomial
// rolling hash of the ISO date string, truncated to a signed 32-bit value,
// absolute value modulo the list length.
func Daily(date time.Time, tier Tier) string {
	list := List(tier)
	if len(list) == 0 {
		return ""
	}
	return list[dateIndex(DateKey(date), len(list))]
}

// dateIndex hashes an ISO date key into [0, n).
func dateIndex(dateKey string, n int) int {
	var h int32
	for i := 0; i < len(dateKey); i++ {
		h = (h << 5) - h + int32(dateKey[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}

// GameNumber returns the 1-based day number since the game epoch,
// shown in share summaries.
func GameNumber(now time.Time) int {
	d := int(now.UTC().Sub(gameEpoch).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}
