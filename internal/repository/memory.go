package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps rows in process memory. Used for development and tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*GameRow
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]*GameRow),
		now:  time.Now,
	}
}

func (m *MemoryStore) Insert(ctx context.Context, row *GameRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rows[row.ID]; exists {
		return ErrConflict
	}
	stored := row.Clone()
	stamp(stored, m.now())
	m.rows[row.ID] = stored
	*row = *stored.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*GameRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*GameRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	stamp(next, m.now())
	m.rows[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
