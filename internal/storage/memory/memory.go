// Package memory provides an in-memory save store for tests and ephemeral
// runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/metropole/internal/storage"
)

// Store keeps saves in a map guarded by a mutex. It favors clarity over
// performance.
type Store struct {
	mu    sync.RWMutex
	saves map[string]storage.Save
	now   func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		saves: make(map[string]storage.Save),
		now:   time.Now,
	}
}

// WithClock overrides the timestamp source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Put upserts a save, preserving CreatedAt on overwrite.
func (s *Store) Put(ctx context.Context, save storage.Save) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.saves[save.ID]; ok {
		save.CreatedAt = existing.CreatedAt
	} else if save.CreatedAt.IsZero() {
		save.CreatedAt = now
	}
	save.UpdatedAt = now
	s.saves[save.ID] = save
	return nil
}

// Get returns one save by id.
func (s *Store) Get(ctx context.Context, id string) (storage.Save, error) {
	if err := ctx.Err(); err != nil {
		return storage.Save{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	save, ok := s.saves[id]
	if !ok {
		return storage.Save{}, storage.ErrNotFound
	}
	return save, nil
}

// List returns all saves, most recently updated first.
func (s *Store) List(ctx context.Context) ([]storage.Save, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	saves := make([]storage.Save, 0, len(s.saves))
	for _, save := range s.saves {
		saves = append(saves, save)
	}
	sort.Slice(saves, func(i, j int) bool {
		if saves[i].UpdatedAt.Equal(saves[j].UpdatedAt) {
			return saves[i].ID < saves[j].ID
		}
		return saves[i].UpdatedAt.After(saves[j].UpdatedAt)
	})
	return saves, nil
}

// Delete removes one save by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saves[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.saves, id)
	return nil
}

var _ storage.SaveStore = (*Store)(nil)
