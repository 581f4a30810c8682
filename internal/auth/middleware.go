package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"incubator-platform/internal/identity"
	"incubator-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"

	// SessionCookie is where the browser front end keeps its token for page loads.
	SessionCookie = "embryotech_token"
)

var (
	ErrMissingOrMalformedCredential = errors.New("auth: missing or malformed credential")
	ErrInvalidCredential            = errors.New("auth: invalid credential")
)

// Resolver looks up the identity behind a verified token subject.
// A nil identity with a nil error means the identity does not exist.
type Resolver interface {
	Resolve(ctx context.Context, id int64) (*identity.Identity, error)
}

// Gate authenticates requests. It does not perform privilege checks; those belong to internal/rbac.
type Gate struct {
	codec    *Codec
	resolver Resolver
	now      func() time.Time
}

func NewGate(codec *Codec, resolver Resolver) *Gate {
	return &Gate{codec: codec, resolver: resolver, now: time.Now}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// Anything other than exactly two space-separated parts with the Bearer scheme is malformed.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", ErrMissingOrMalformedCredential
	}
	return parts[1], nil
}

// Authenticate runs the full check for one request and returns the resolved actor.
func (g *Gate) Authenticate(r *http.Request) (identity.Identity, error) {
	tok, err := BearerToken(r.Header.Get(authorizationHeader))
	if err != nil {
		return identity.Identity{}, err
	}
	return g.authenticateToken(r.Context(), tok)
}

func (g *Gate) authenticateToken(ctx context.Context, tok string) (identity.Identity, error) {
	claims, err := g.codec.Verify(tok, g.now())
	if err != nil {
		return identity.Identity{}, ErrInvalidCredential
	}

	i, err := g.resolver.Resolve(ctx, claims.UserID)
	if err != nil {
		// Store failures surface to the client exactly like a bad token.
		logger.From(ctx).Error("identity resolve failed", "identity_id", claims.UserID, "err", err)
		return identity.Identity{}, ErrInvalidCredential
	}
	if i == nil {
		return identity.Identity{}, ErrInvalidCredential
	}
	return *i, nil
}

// Require verifies the bearer token and injects the actor into the request context.
// Failures are terminal: 401 with {"message": ...} and the rest of the chain is skipped.
func (g *Gate) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := g.Authenticate(c.Request)
		if err != nil {
			msg := "Token is invalid!"
			if errors.Is(err, ErrMissingOrMalformedCredential) {
				msg = "Token is missing or malformed!"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), actor))
		c.Next()
	}
}

// Optional resolves an actor when a valid credential happens to be present,
// either in the session cookie or the Authorization header.
// Every failure is swallowed; callers get (zero, false).
func (g *Gate) Optional(r *http.Request) (identity.Identity, bool) {
	var tok string
	if ck, err := r.Cookie(SessionCookie); err == nil && ck.Value != "" {
		tok = ck.Value
	} else if t, err := BearerToken(r.Header.Get(authorizationHeader)); err == nil {
		tok = t
	}
	if tok == "" {
		return identity.Identity{}, false
	}
	i, err := g.authenticateToken(r.Context(), tok)
	if err != nil {
		return identity.Identity{}, false
	}
	return i, true
}

// ProtectedHandler receives the authenticated actor as an explicit argument.
type ProtectedHandler func(c *gin.Context, actor identity.Identity)

// Handle adapts a ProtectedHandler; it must run behind Require.
func Handle(h ProtectedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is missing or malformed!"})
			return
		}
		h(c, actor)
	}
}
