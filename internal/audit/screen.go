package audit

import (
	"net/http"

	"incubator-platform/internal/identity"

	"github.com/gin-gonic/gin"
)

// OptionalAuthenticator resolves an actor from whatever credential a request carries,
// reporting false instead of failing.
type OptionalAuthenticator interface {
	Optional(r *http.Request) (identity.Identity, bool)
}

// ScreenLogger records page views for a designated set of routes, whether or not the
// page itself requires authentication. It never denies or redirects.
type ScreenLogger struct {
	audit   *Service
	authn   OptionalAuthenticator
	screens map[string]string
}

// NewScreenLogger takes a route path -> screen name map, e.g. {"/dashboard": "dashboard"}.
func NewScreenLogger(svc *Service, authn OptionalAuthenticator, screens map[string]string) *ScreenLogger {
	cp := make(map[string]string, len(screens))
	for k, v := range screens {
		cp[k] = v
	}
	return &ScreenLogger{audit: svc, authn: authn, screens: cp}
}

// Middleware is meant for r.Use; unmatched routes pass through untouched.
func (s *ScreenLogger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		screen, ok := s.screens[c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		var actor *identity.Identity
		if s.authn != nil {
			if i, ok := s.authn.Optional(c.Request); ok {
				actor = &i
			}
		}

		c.Set(ctxEndpoint, screen)
		req := RequestFromGin(c)
		s.audit.ScreenAccess(c.Request.Context(), req, actor, screen, Details{
			"user_agent": req.UserAgent,
			"ip":         req.IPAddress,
		})
		c.Next()
	}
}
