// internal/auth/codes.go
//
// Short-lived email verification codes for login.
// The code store is an explicit, injected component keyed by email:
//   - Issue generates a 4-digit code, rate-limited per email, and keeps only
//     a bcrypt hash of it with an expiry.
//   - Verify is single-use: a successful verification invalidates the code.
//
// Delivery is a stub: the issued code is handed back to the caller, which
// logs it instead of sending a real email.

package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// ErrTooManyRequests: the per-email send limiter rejected an Issue call.
var ErrTooManyRequests = errors.New("too many code requests")

const defaultTTL = 10 * time.Minute

// pendingCode is one outstanding verification code.
type pendingCode struct {
	hash    []byte // bcrypt hash of the 4-digit code
	expires time.Time
}

// CodeStore issues and verifies short-lived login codes.
type CodeStore struct {
	mu       sync.Mutex
	codes    map[string]pendingCode   // keyed by email
	limiters map[string]*rate.Limiter // per-email send limiters
	ttl      time.Duration
	now      func() time.Time // injectable clock for tests
}

// NewCodeStore constructs a store with the given code lifetime
// (defaultTTL when ttl <= 0).
func NewCodeStore(ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CodeStore{
		codes:    make(map[string]pendingCode),
		limiters: make(map[string]*rate.Limiter),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue generates and registers a fresh 4-digit code for email, replacing
// any prior one. Returns ErrTooManyRequests when the email's limiter is
// exhausted (1 code per 30s, burst of 3).
func (s *CodeStore) Issue(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	lim, ok := s.limiters[email]
	if !ok {
		lim = rate.NewLimiter(rate.Every(30*time.Second), 3)
		s.limiters[email] = lim
	}
	if !lim.Allow() {
		return "", ErrTooManyRequests
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	s.codes[email] = pendingCode{hash: hash, expires: s.now().Add(s.ttl)}
	return code, nil
}

// Verify checks code against the outstanding one for email. A match
// consumes the code; expired or already-consumed codes never match.
func (s *CodeStore) Verify(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.codes[email]
	if !ok {
		return false
	}
	if s.now().After(pending.expires) {
		delete(s.codes, email)
		return false
	}
	if bcrypt.CompareHashAndPassword(pending.hash, []byte(code)) != nil {
		return false
	}
	delete(s.codes, email) // single-use
	return true
}

// sweep drops expired codes and their limiters so the maps stay bounded by
// the number of emails with a live code. A swept limiter has long refilled
// (full burst within 90s, codes live for minutes), so dropping it does not
// loosen the send limit. Caller holds mu.
func (s *CodeStore) sweep() {
	now := s.now()
	for email, pending := range s.codes {
		if now.After(pending.expires) {
			delete(s.codes, email)
			delete(s.limiters, email)
		}
	}
}

// randomCode draws a uniform code in [1000, 9999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}
