package auth

import (
	"context"

	"incubator-platform/internal/identity"
)

type ctxKey int

const ctxIdentity ctxKey = iota

// WithIdentity attaches the resolved actor to a request-scoped context.
func WithIdentity(ctx context.Context, i identity.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, i)
}

// IdentityFrom returns the actor for this request, if the gate (or screen logger) attached one.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	i, ok := ctx.Value(ctxIdentity).(identity.Identity)
	if !ok || i.ID <= 0 {
		return identity.Identity{}, false
	}
	return i, true
}
