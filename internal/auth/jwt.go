package auth

import (
	"errors"
	"time"

	"incubator-platform/internal/config"
	"incubator-platform/internal/identity"

	"github.com/golang-jwt/jwt/v5"
)

// ErrVerificationFailure is the single error returned for any rejected token.
// Which check failed is deliberately not exposed.
var ErrVerificationFailure = errors.New("auth: token verification failed")

var signingMethod = jwt.SigningMethodHS256

type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET_KEY is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Codec{secret: []byte(cfg.JWTSecret), ttl: ttl}, nil
}

/* ===================== ISSUE ===================== */

// Issue signs {id, is_admin, exp}. Non-positive ttl still yields a token, already expired;
// expiry is enforced only by Verify.
func (c *Codec) Issue(now time.Time, userID int64, elevated bool, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:  userID,
		IsAdmin: elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
}

// IssueFor issues a token for i with the configured lifetime.
func (c *Codec) IssueFor(now time.Time, i identity.Identity) (string, error) {
	return c.Issue(now, i.ID, i.IsAdmin, c.ttl)
}

/* ===================== VERIFY ===================== */

// Verify checks signature, algorithm, expiry and the subject claim.
func (c *Codec) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, ErrVerificationFailure
	}
	if claims.UserID <= 0 {
		return Claims{}, ErrVerificationFailure
	}
	return claims, nil
}
