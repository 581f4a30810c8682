package identity

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Identity is a registered principal.
//
// Invariants:
// - Username and Email are unique.
// - PasswordHash is a one-way bcrypt hash; plaintext is never stored.
// - Identities are never hard-deleted by this service.
type Identity struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
}

var (
	ErrNotFound           = errors.New("identity: not found")
	ErrMissingFields      = errors.New("identity: username, password and email are required")
	ErrUsernameTaken      = errors.New("identity: username already exists")
	ErrEmailTaken         = errors.New("identity: email already exists")
	ErrInvalidCredentials = errors.New("identity: invalid username or password")
)

// SetPassword replaces the stored hash.
func (i *Identity) SetPassword(password string) error {
	if password == "" {
		return ErrMissingFields
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.PasswordHash = string(h)
	return nil
}

func (i Identity) CheckPassword(password string) bool {
	if i.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(password)) == nil
}

// Public returns a copy safe to hand to request handlers and caches.
func (i Identity) Public() Identity {
	i.PasswordHash = ""
	return i
}

func normalizeEmail(e string) string { return strings.TrimSpace(e) }
