// internal/httpserver/users.go
//
// User rows, wallet credit, and withdrawal requests.
// Users are created on first successful code verification (no passwords in
// this variant). The wallet only ever increases in-app; a withdrawal is a
// recorded manual request, not a balance mutation.

package httpserver

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// userRow matches the users table shape.
type userRow struct {
	ID            string
	Name          string
	Email         string
	WalletBalance int
	CreatedAt     time.Time
}

// upsertUser returns the user for email, creating it on first login and
// refreshing the display name on later ones.
func (s *Server) upsertUser(name, email string) (*userRow, error) {
	u, err := s.findUserByEmail(email)
	if err == nil {
		if name != "" && name != u.Name {
			if _, err := s.db.Exec(`UPDATE users SET name=? WHERE id=?`, name, u.ID); err != nil {
				return nil, err
			}
			u.Name = name
		}
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO users (id, name, email, wallet_balance, created_at) VALUES (?,?,?,0,?)`,
		id, name, email, now); err != nil {
		return nil, err
	}
	return &userRow{ID: id, Name: name, Email: email, CreatedAt: mustParse(now)}, nil
}

// findUserByEmail/ID load a user row or return an error if missing.
func (s *Server) findUserByEmail(email string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, name, email, wallet_balance, created_at
	                      FROM users WHERE lower(email)=lower(?)`, email)
	return scanUser(row)
}
func (s *Server) findUserByID(id string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, name, email, wallet_balance, created_at
	                      FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.WalletBalance, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// creditWallet adds amount to a user's balance inside a transaction.
func (s *Server) creditWallet(userID string, amount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`UPDATE users SET wallet_balance = wallet_balance + ? WHERE id=?`, amount, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// insertWithdrawal records a pending manual withdrawal request and returns
// its identifier. The wallet balance is left untouched; payout is handled
// out of band.
func (s *Server) insertWithdrawal(userID, contact string, amount int) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(`INSERT INTO withdrawals (id, user_id, amount, contact, status, created_at)
	                        VALUES (?,?,?,?,'pending',?)`, id, userID, amount, contact, now); err != nil {
		return "", err
	}
	log.Info().Str("user", userID).Int("amount", amount).Str("request", id).Msg("withdrawal requested")
	return id, nil
}
