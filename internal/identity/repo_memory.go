package identity

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]Identity
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[int64]Identity)}
}

func (r *MemoryRepo) FindByID(ctx context.Context, id int64) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return i, nil
}

func (r *MemoryRepo) FindByUsername(ctx context.Context, username string) (Identity, error) {
	return r.find(func(i Identity) bool { return i.Username == username })
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (Identity, error) {
	return r.find(func(i Identity) bool { return i.Email == email })
}

func (r *MemoryRepo) find(match func(Identity) bool) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		if match(i) {
			return i, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (r *MemoryRepo) Create(ctx context.Context, i Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == i.Username {
			return Identity{}, ErrUsernameTaken
		}
		if existing.Email == i.Email {
			return Identity{}, ErrEmailTaken
		}
	}
	r.nextID++
	i.ID = r.nextID
	r.byID[i.ID] = i
	return i, nil
}

func (r *MemoryRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(id, func(i *Identity) { i.PasswordHash = hash })
}

func (r *MemoryRepo) UpdateAdmin(ctx context.Context, id int64, isAdmin bool) error {
	return r.update(id, func(i *Identity) { i.IsAdmin = isAdmin })
}

func (r *MemoryRepo) update(id int64, fn func(*Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&i)
	r.byID[id] = i
	return nil
}
