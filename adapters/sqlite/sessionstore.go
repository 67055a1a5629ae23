package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/rentdesk/adapters/seal"
	"github.com/artpar/rentdesk/ports"
)

// SessionStore implements ports.TokenStore using SQLite.
// The token column is sealed when the sealer has a key.
type SessionStore struct {
	db     *DB
	sealer seal.Sealer
}

// NewSessionStore creates a new SQLite session store.
func NewSessionStore(db *DB, sealer seal.Sealer) *SessionStore {
	return &SessionStore{db: db, sealer: sealer}
}

// Load returns the stored session, or the zero session when none is stored.
func (s *SessionStore) Load(ctx context.Context) (ports.Session, error) {
	var sess ports.Session
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, email, role FROM session WHERE id = 1
	`).Scan(&token, &sess.UserID, &sess.Email, &sess.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Session{}, nil
	}
	if err != nil {
		return ports.Session{}, fmt.Errorf("load session: %w", err)
	}

	sess.Token, err = s.sealer.Open(token)
	if err != nil {
		return ports.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(ctx context.Context, sess ports.Session) error {
	token, err := s.sealer.Seal(sess.Token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_id, email, role, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			email = excluded.email,
			role = excluded.role,
			updated_at = excluded.updated_at
	`, token, sess.UserID, sess.Email, sess.Role)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.TokenStore = (*SessionStore)(nil)
