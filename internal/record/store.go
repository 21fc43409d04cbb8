// internal/record/store.go
//
// Versioned JSON record store for per-player persisted state.
// The game keeps independent records per player — game state per mode, and
// stats — each under a distinct namespaced key (identity for logged-in users
// lives in the users table instead). Records are wrapped in a small versioned
// envelope; a payload that fails to parse or carries an unknown version is
// explicitly discarded so the caller falls back to a default value instead
// of crashing.

package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Version is the current record schema version. Bump on incompatible
// changes to any stored record shape; old records are then reset.
const Version = 1

// Key namespaces.
func GameKey(playerID, mode string) string { return fmt.Sprintf("game:%s:%s", playerID, mode) }
func StatsKey(playerID string) string      { return fmt.Sprintf("stats:%s", playerID) }

// envelope wraps every stored record with its schema version.
type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Store persists namespaced JSON records.
// Implementations may be backed by SQLite (this package) or memory (tests).
type Store interface {
	// Load unmarshals the record at key into out. Returns false when the
	// record is absent, corrupt, or from another schema version; the caller
	// must then use its default value.
	Load(ctx context.Context, key string, out any) (bool, error)

	// Save marshals v and persists it at key, replacing any prior record.
	Save(ctx context.Context, key string, v any) error

	// Delete removes the record at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// sqlStore keeps records in a single key/value table.
type sqlStore struct {
	db *sql.DB
}

// NewSQLStore constructs a Store backed by the records table.
func NewSQLStore(db *sql.DB) Store { return &sqlStore{db: db} }

func (s *sqlStore) Load(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key=?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decode(key, []byte(raw), out), nil
}

func (s *sqlStore) Save(ctx context.Context, key string, v any) error {
	raw, err := encode(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key=?`, key)
	return err
}

// encode wraps v in the versioned envelope.
func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{V: Version, Data: data})
}

// decode unwraps an envelope into out. Corrupt or version-mismatched
// payloads report false so the caller resets to defaults; the record will
// be overwritten on the next Save.
func decode(key string, raw []byte, out any) bool {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("discarding corrupt record")
		return false
	}
	if env.V != Version {
		log.Warn().Str("key", key).Int("version", env.V).Msg("discarding record from other schema version")
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("discarding unreadable record payload")
		return false
	}
	return true
}
