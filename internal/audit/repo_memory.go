package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) Query(ctx context.Context, f Filter) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if f.UserID != nil && (rec.UserID == nil || *rec.UserID != *f.UserID) {
			continue
		}
		if f.Action != "" && !strings.Contains(rec.Action, f.Action) {
			continue
		}
		if f.From != nil && rec.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n := f.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Records returns a copy of everything appended, in append order.
func (r *MemoryRepo) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
