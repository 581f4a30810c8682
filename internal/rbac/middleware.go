package rbac

import (
	"net/http"

	"incubator-platform/internal/auth"
	"incubator-platform/internal/identity"

	"github.com/gin-gonic/gin"
)

// IsElevated reports whether the actor holds the administrative privilege.
// The flag is read from the resolved identity, so a revoked admin loses access
// as soon as the identity cache entry is refreshed, even with an older token.
func IsElevated(actor identity.Identity) bool { return actor.IsAdmin }

// RequireElevated must run after auth.Gate.Require.
// Rules:
// - no actor in context: 401 (the gate was not in the chain)
// - actor without the elevated flag: 403 {"message": "Access denied!"}
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is missing or malformed!"})
			return
		}
		if !IsElevated(actor) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied!"})
			return
		}
		c.Next()
	}
}
