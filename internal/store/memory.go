// internal/store/memory.go
//
// In-memory implementation of Store.
// Used when no STORE_DSN is configured and in tests.
//
// Characteristics:
//   - Runs keyed by ID in a map, guarded by an RWMutex.
//   - Stored values are copies; callers cannot mutate what was saved.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu   sync.RWMutex    // guards runs
	runs map[string]*Run // keyed by Run.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{runs: make(map[string]*Run)}
}

// Save adds or replaces the run in the map.
func (m *memory) Save(ctx context.Context, r *Run) error {
	cp := clone(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = cp
	return nil
}

// Get looks up a run by ID.
func (m *memory) Get(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.runs[id]; ok {
		return clone(r), nil
	}
	return nil, ErrNotFound
}

// List returns up to limit runs, newest first.
func (m *memory) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.RLock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, clone(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Close() error { return nil }

// clone copies r deeply enough that history and answer are not shared.
func clone(r *Run) *Run {
	cp := *r
	cp.History = append(r.History[:0:0], r.History...)
	if r.Answer != nil {
		ans := *r.Answer
		cp.Answer = &ans
	}
	return &cp
}
