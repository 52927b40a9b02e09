package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/ride-hailing/internal/models"
)

// MemoryStore keeps rides in a mutex-guarded map. It is the default backend
// for local runs and tests; Patch holds the lock across guard check and
// write, which gives the same atomicity the SQL stores get from a
// conditional UPDATE.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) Insert(ctx context.Context, r *models.Ride) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rides[r.ID]; exists {
		return fmt.Errorf("ride %s already exists", r.ID)
	}
	m.rides[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) Patch(ctx context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	if err := p.check(r); err != nil {
		return err
	}
	p.apply(r)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Ride, 0)
	for _, r := range m.rides {
		if f.matches(r) {
			out = append(out, r.Clone())
		}
	}
	// newest first; ties broken by id so ordering is stable across backends
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
