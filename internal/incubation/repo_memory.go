package incubation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs without Postgres.
type MemoryRepo struct {
	mu         sync.Mutex
	nextParam  int64
	nextRead   int64
	parameters map[int64]Parameter
	readings   map[int64]Reading
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		parameters: map[int64]Parameter{},
		readings:   map[int64]Reading{},
		now:        time.Now,
	}
}

func (r *MemoryRepo) CreateParameter(ctx context.Context, p Parameter) (Parameter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextParam++
	p.ID = r.nextParam
	p.CreatedAt = r.now().UTC()
	r.parameters[p.ID] = p
	return p, nil
}

func (r *MemoryRepo) FindParameters(ctx context.Context, company, batch string) ([]Parameter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Parameter, 0)
	for _, p := range r.parameters {
		if p.Company == company && p.Batch == batch {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) UpdateParameter(ctx context.Context, id int64, fn func(*Parameter) error) (before, after Parameter, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parameters[id]
	if !ok {
		return Parameter{}, Parameter{}, ErrNotFound
	}
	before = p
	if err := fn(&p); err != nil {
		return Parameter{}, Parameter{}, err
	}
	r.parameters[id] = p
	return before, p, nil
}

func (r *MemoryRepo) ListCompanies(ctx context.Context) ([]string, error) {
	return r.distinct(func(p Parameter) (string, bool) { return p.Company, true }), nil
}

func (r *MemoryRepo) ListBatches(ctx context.Context, company string) ([]string, error) {
	return r.distinct(func(p Parameter) (string, bool) {
		return p.Batch, company == "" || p.Company == company
	}), nil
}

func (r *MemoryRepo) distinct(pick func(Parameter) (string, bool)) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range r.parameters {
		v, ok := pick(p)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRepo) CreateReadings(ctx context.Context, rs []Reading) ([]Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reading, 0, len(rs))
	for _, rd := range rs {
		r.nextRead++
		rd.ID = r.nextRead
		r.readings[rd.ID] = rd
		out = append(out, rd)
	}
	return out, nil
}

func (r *MemoryRepo) ListReadings(ctx context.Context, batch string) ([]Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reading, 0)
	for _, rd := range r.readings {
		if batch != "" && (rd.Batch == nil || *rd.Batch != batch) {
			continue
		}
		out = append(out, rd)
	}
	// Newest start first, readings without a start last.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartedAt, out[j].StartedAt
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].ID > out[j].ID
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (r *MemoryRepo) UpdateReading(ctx context.Context, id int64, fn func(*Reading) error) (before, after Reading, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.readings[id]
	if !ok {
		return Reading{}, Reading{}, ErrNotFound
	}
	before = rd
	if err := fn(&rd); err != nil {
		return Reading{}, Reading{}, err
	}
	r.readings[id] = rd
	return before, rd, nil
}

func (r *MemoryRepo) DeleteReading(ctx context.Context, id int64) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.readings[id]
	if !ok {
		return Reading{}, ErrNotFound
	}
	delete(r.readings, id)
	return rd, nil
}
