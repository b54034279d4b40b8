package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IssueToken creates a new bearer token for the user.
func (db *DB) IssueToken(userID int64) (string, error) {
	token := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO sessions (token, user_id, created_at)
		VALUES (?, ?, ?)
	`, token, userID, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// UserByToken resolves a bearer token to its user, or nil if the token is
// unknown or the account is gone.
func (db *DB) UserByToken(token string) (*User, error) {
	var userID int64
	err := db.QueryRow("SELECT user_id FROM sessions WHERE token = ?", token).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return db.GetUser(userID)
}

// RevokeToken deletes a bearer token. Revoking an unknown token is a no-op.
func (db *DB) RevokeToken(token string) error {
	if _, err := db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
