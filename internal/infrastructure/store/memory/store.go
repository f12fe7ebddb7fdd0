// Package memory provides the transient, process-local patent store.
package memory

import (
	"context"
	"sync"

	"github.com/turtacn/grantsync/internal/domain/patent"
)

// Store is an append-only in-memory patent.Store.  It does not enforce
// patent-number uniqueness: saving the same record twice keeps two copies.
// Load returns matches in insertion order.
type Store struct {
	mu      sync.RWMutex
	patents []patent.Patent
}

var _ patent.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Save appends patents.
func (s *Store) Save(_ context.Context, patents []patent.Patent) error {
	if len(patents) == 0 {
		return nil
	}
	s.mu.Lock()
	s.patents = append(s.patents, patents...)
	s.mu.Unlock()
	return nil
}

// Load returns the records granted in [start, end].
func (s *Store) Load(_ context.Context, start, end patent.Date) ([]patent.Patent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return patent.FilterByGrantDate(s.patents, start, end), nil
}

// Clear drops every record.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.patents = nil
	s.mu.Unlock()
	return nil
}

// Len reports how many records are held, duplicates included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patents)
}
