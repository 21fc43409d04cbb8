// internal/provider/resilient.go
//
// Error-tolerant wrapper around a Ranker/Hinter pair.
// A third-party outage must never block play: a failed or slow rank call
// degrades to a "far band" rank on a valid word instead of an error.
// Hint failures do surface as errors; a hint is optional to gameplay.

package provider

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	farBandFloor = 1000
	farBandSpan  = 2000
)

// Resilient bounds each provider call with a timeout and substitutes a safe
// default rank on transport or parse failure.
type Resilient struct {
	Ranker  Ranker
	Hinter  Hinter
	Timeout time.Duration
}

// NewResilient wraps a provider with a per-call timeout (default 20s).
func NewResilient(r Ranker, h Hinter, timeout time.Duration) *Resilient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Resilient{Ranker: r, Hinter: h, Timeout: timeout}
}

// Rank delegates to the inner ranker; on failure it returns a valid-word
// result with a pseudo-random rank in [1000, 2999] so the game stays
// playable in degraded mode.
func (p *Resilient) Rank(ctx context.Context, secret, guess string) (Result, error) {
	if secret == guess {
		return Result{IsWord: true, Rank: 1}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	res, err := p.Ranker.Rank(ctx, secret, guess)
	if err != nil {
		log.Warn().Err(err).Str("guess", guess).Msg("rank provider failed, using far-band fallback")
		return Result{IsWord: true, Rank: farBandFloor + rand.Intn(farBandSpan)}, nil
	}
	return res, nil
}

// Hint delegates to the inner hinter with the same timeout bound.
func (p *Resilient) Hint(ctx context.Context, secret string, targetRank int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	word, err := p.Hinter.Hint(ctx, secret, targetRank)
	if err != nil {
		log.Warn().Err(err).Msg("hint provider failed")
		return "", err
	}
	return word, nil
}
