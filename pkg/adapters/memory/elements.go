// Package memory provides in-memory implementations of the storage ports.
// Safe for concurrent use; intended for tests, examples and single-process
// deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// ElementStore implements ports.ElementStore in memory.
type ElementStore struct {
	data map[string]*domain.Element
	mu   sync.RWMutex
}

// NewElementStore creates an empty in-memory element store.
func NewElementStore() *ElementStore {
	return &ElementStore{
		data: make(map[string]*domain.Element),
	}
}

// Put creates or replaces an element.
func (s *ElementStore) Put(ctx context.Context, el *domain.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Deep copy to ensure isolation from the caller's pointer.
	s.data[el.ID] = el.Clone()
	return nil
}

// Get retrieves a copy of the element.
func (s *ElementStore) Get(ctx context.Context, id string) (*domain.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.data[id]
	if !ok {
		return nil, domain.ErrElementNotFound
	}
	return el.Clone(), nil
}

// SetTaskState overwrites the element's task state.
func (s *ElementStore) SetTaskState(ctx context.Context, id string, state domain.TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.data[id]
	if !ok {
		return domain.ErrElementNotFound
	}
	st := state
	el.Task = &st
	el.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns copies of all elements.
func (s *ElementStore) List(ctx context.Context) ([]*domain.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Element, 0, len(s.data))
	for _, el := range s.data {
		all = append(all, el.Clone())
	}
	return all, nil
}
