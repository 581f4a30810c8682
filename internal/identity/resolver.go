package identity

import (
	"context"
	"errors"
	"log/slog"
)

// Resolver maps a verified token subject to a concrete identity.
type Resolver struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// NewResolver builds a resolver; cache may be nil.
func NewResolver(repo Repository, cache Cache) *Resolver {
	return &Resolver{repo: repo, cache: cache, log: slog.Default()}
}

// Resolve returns (nil, nil) when the identity does not exist, so callers can treat
// "token valid but identity gone" exactly like an invalid token.
// The returned identity never carries a password hash.
func (r *Resolver) Resolve(ctx context.Context, id int64) (*Identity, error) {
	if id <= 0 {
		return nil, nil
	}

	if r.cache != nil {
		i, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("identity cache read failed", "identity_id", id, "err", err)
		}
		if ok {
			return &i, nil
		}
	}

	i, err := r.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pub := i.Public()
	if r.cache != nil {
		if err := r.cache.Set(ctx, pub); err != nil {
			r.log.Warn("identity cache write failed", "identity_id", id, "err", err)
		}
	}
	return &pub, nil
}
