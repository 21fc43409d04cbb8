// internal/provider/provider.go
//
// Interfaces for the external semantic-ranking and hint providers.
// The game performs no similarity computation itself; ranking is fully
// delegated to an external model behind these interfaces so the engine and
// tests can run against fakes.

package provider

import "context"

// Result is a provider's verdict on one guess.
type Result struct {
	IsWord bool `json:"isWord"` // false when the text is not a valid Persian word
	Rank   int  `json:"rank"`   // 1 = exact match, larger = less related
}

// Ranker estimates the semantic rank of a guess relative to the secret word.
// Implementations must treat secret == guess as rank 1 without calling out.
type Ranker interface {
	Rank(ctx context.Context, secret, guess string) (Result, error)
}

// Hinter returns a single word estimated to sit near targetRank relative to
// the secret word. Callers re-validate the hint's actual rank through the
// Ranker before recording it.
type Hinter interface {
	Hint(ctx context.Context, secret string, targetRank int) (string, error)
}
