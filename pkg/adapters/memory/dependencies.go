package memory

import (
	"context"
	"sync"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// DependencyStore implements ports.DependencyStore in memory.
type DependencyStore struct {
	// edges by Key(); incoming/outgoing index by element ID.
	edges    map[string]*domain.Dependency
	incoming map[string][]string
	outgoing map[string][]string
	mu       sync.RWMutex
}

// NewDependencyStore creates an empty in-memory dependency store.
func NewDependencyStore() *DependencyStore {
	return &DependencyStore{
		edges:    make(map[string]*domain.Dependency),
		incoming: make(map[string][]string),
		outgoing: make(map[string][]string),
	}
}

// Add inserts an edge; duplicates on (blocker, blocked, type) are idempotent.
func (s *DependencyStore) Add(ctx context.Context, dep *domain.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dep.Key()
	if _, exists := s.edges[key]; exists {
		return nil
	}

	s.edges[key] = dep.Clone()
	s.incoming[dep.BlockedID] = append(s.incoming[dep.BlockedID], key)
	s.outgoing[dep.BlockerID] = append(s.outgoing[dep.BlockerID], key)
	return nil
}

// Remove deletes an edge.
func (s *DependencyStore) Remove(ctx context.Context, blockedID, blockerID string, t domain.DependencyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := (&domain.Dependency{BlockedID: blockedID, BlockerID: blockerID, Type: t}).Key()
	if _, exists := s.edges[key]; !exists {
		return domain.ErrDependencyNotFound
	}

	delete(s.edges, key)
	s.incoming[blockedID] = dropKey(s.incoming[blockedID], key)
	s.outgoing[blockerID] = dropKey(s.outgoing[blockerID], key)
	return nil
}

// Dependencies returns incoming edges (id as blocked side).
func (s *DependencyStore) Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.incoming[id], types), nil
}

// Dependents returns outgoing edges (id as blocker side).
func (s *DependencyStore) Dependents(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.outgoing[id], types), nil
}

func (s *DependencyStore) collect(keys []string, types []domain.DependencyType) []*domain.Dependency {
	out := make([]*domain.Dependency, 0, len(keys))
	for _, key := range keys {
		dep, ok := s.edges[key]
		if !ok {
			continue
		}
		if len(types) > 0 && !matchesType(dep.Type, types) {
			continue
		}
		out = append(out, dep.Clone())
	}
	return out
}

func matchesType(t domain.DependencyType, types []domain.DependencyType) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}

func dropKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
