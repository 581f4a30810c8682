package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported token claims shape: {"id", "is_admin", "exp"}.
// IsAdmin is copied at issuance and is not re-checked until the next issuance.
type Claims struct {
	UserID  int64 `json:"id"`
	IsAdmin bool  `json:"is_admin"`

	jwt.RegisteredClaims
}
