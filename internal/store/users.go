package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a login or password change
// presents a wrong username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account record.
type User struct {
	ID           int64
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	AvatarURL    string
	LocationCity string
	Signature    string
	CreatedAt    int64
	UpdatedAt    int64
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (db *DB) CreateUser(username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, username, email, string(hash), now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("username or email already taken")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, _ := result.LastInsertId()
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Authenticate verifies a username/password pair and returns the user.
func (db *DB) Authenticate(username, password string) (*User, error) {
	u, err := db.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser returns a user by id, or nil if not found or deleted.
func (db *DB) GetUser(id int64) (*User, error) {
	return db.scanUser(db.QueryRow(userColumns+" WHERE id = ? AND is_deleted = 0", id))
}

// GetUserByUsername returns a user by username, or nil if not found or deleted.
func (db *DB) GetUserByUsername(username string) (*User, error) {
	return db.scanUser(db.QueryRow(userColumns+" WHERE username = ? AND is_deleted = 0", username))
}

const userColumns = `
	SELECT id, username, email, COALESCE(phone, ''), password_hash,
	       COALESCE(avatar_url, ''), COALESCE(location_city, ''), COALESCE(signature, ''),
	       created_at, updated_at
	FROM users`

func (db *DB) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash,
		&u.AvatarURL, &u.LocationCity, &u.Signature, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ProfileUpdate holds the editable profile fields. Nil fields are untouched.
type ProfileUpdate struct {
	Username     *string
	Phone        *string
	AvatarURL    *string
	LocationCity *string
	Signature    *string
}

// UpdateProfile applies the non-nil fields of the update to the user.
func (db *DB) UpdateProfile(id int64, upd ProfileUpdate) error {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UnixMilli()}

	add := func(col string, v *string) {
		if v != nil {
			set = append(set, col+" = ?")
			args = append(args, *v)
		}
	}
	add("username", upd.Username)
	add("phone", upd.Phone)
	add("avatar_url", upd.AvatarURL)
	add("location_city", upd.LocationCity)
	add("signature", upd.Signature)

	args = append(args, id)
	_, err := db.Exec("UPDATE users SET "+strings.Join(set, ", ")+" WHERE id = ? AND is_deleted = 0", args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("username already taken")
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
func (db *DB) ChangePassword(id int64, oldPassword, newPassword string) error {
	u, err := db.GetUser(id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = db.Exec("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		string(hash), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
