package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Service owns identity lifecycle: registration, credential checks and password changes.
type Service struct {
	repo  Repository
	cache Cache
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

// Register creates a new identity. Uniqueness is checked up front so callers get
// a precise reason; the table constraints remain the final word.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return Identity{}, ErrMissingFields
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return Identity{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, err
	}
	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return Identity{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, err
	}

	i := Identity{Username: in.Username, Email: in.Email, IsAdmin: in.IsAdmin}
	if err := i.SetPassword(in.Password); err != nil {
		return Identity{}, err
	}
	created, err := s.repo.Create(ctx, i)
	if err != nil {
		return Identity{}, err
	}
	return created.Public(), nil
}

// Authenticate checks a username/password pair. Unknown user and wrong password
// produce the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	if username == "" || password == "" {
		return Identity{}, ErrMissingFields
	}
	i, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}
	if !i.CheckPassword(password) {
		return Identity{}, ErrInvalidCredentials
	}
	return i.Public(), nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (Identity, error) {
	i, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return Identity{}, err
	}
	return i.Public(), nil
}

// SetPassword is the only path that mutates a stored hash.
func (s *Service) SetPassword(ctx context.Context, id int64, password string) error {
	var i Identity
	if err := i.SetPassword(password); err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, i.PasswordHash); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// SetAdmin toggles the elevated flag. Authorization reads the resolved identity, so the
// change applies once the cached entry is gone; the claim inside issued tokens stays stale.
func (s *Service) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	if err := s.repo.UpdateAdmin(ctx, id, isAdmin); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		slog.Default().Warn("identity cache invalidation failed", "identity_id", id, "err", err)
	}
}
