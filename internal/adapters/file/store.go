// Package file implements the storage ports on a single YAML snapshot file.
// The whole graph lives in memory and every mutation rewrites the snapshot
// atomically, so it suits small graphs and CLI usage rather than servers.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// Store implements ports.ElementStore, ports.DependencyStore and
// ports.EventStore backed by one YAML file.
type Store struct {
	path string

	mu       sync.Mutex
	elements map[string]*domain.Element
	edges    map[string]*domain.Dependency
	events   map[string][]*domain.Event
	// incoming/outgoing index edge keys per element in insertion order.
	incoming map[string][]string
	outgoing map[string][]string
}

type snapshot struct {
	Elements     []*domain.Element          `yaml:"elements"`
	Dependencies []*domain.Dependency       `yaml:"dependencies"`
	Events       map[string][]*domain.Event `yaml:"events"`
}

// Open loads the snapshot at path, creating an empty store if the file does
// not exist yet.
func Open(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(".graphstore", "graph.yaml")
	}
	s := &Store{
		path:     path,
		elements: make(map[string]*domain.Element),
		edges:    make(map[string]*domain.Dependency),
		events:   make(map[string][]*domain.Event),
		incoming: make(map[string][]string),
		outgoing: make(map[string][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	for _, el := range snap.Elements {
		s.elements[el.ID] = el
	}
	for _, dep := range snap.Dependencies {
		key := dep.Key()
		s.edges[key] = dep
		s.incoming[dep.BlockedID] = append(s.incoming[dep.BlockedID], key)
		s.outgoing[dep.BlockerID] = append(s.outgoing[dep.BlockerID], key)
	}
	if snap.Events != nil {
		s.events = snap.Events
	}
	return s, nil
}

// flush persists the snapshot atomically. It writes to a temporary file
// first, syncs via fsync, and then renames it to the destination.
// Caller holds the lock.
func (s *Store) flush() error {
	snap := snapshot{
		Elements:     make([]*domain.Element, 0, len(s.elements)),
		Dependencies: make([]*domain.Dependency, 0, len(s.edges)),
		Events:       s.events,
	}
	for _, el := range s.elements {
		snap.Elements = append(snap.Elements, el)
	}
	for _, dep := range s.edges {
		snap.Dependencies = append(snap.Dependencies, dep)
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	// Same directory ensures the same filesystem (required for atomic rename).
	tmpFile, err := os.CreateTemp(dir, "tmp-graph-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Put creates or replaces an element.
func (s *Store) Put(ctx context.Context, el *domain.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements[el.ID] = el.Clone()
	return s.flush()
}

// Get retrieves an element by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.elements[id]
	if !ok {
		return nil, domain.ErrElementNotFound
	}
	return el.Clone(), nil
}

// SetTaskState overwrites the task state of an element.
func (s *Store) SetTaskState(ctx context.Context, id string, state domain.TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.elements[id]
	if !ok {
		return domain.ErrElementNotFound
	}
	el.Task = &state
	return s.flush()
}

// List returns all elements. Order is unspecified.
func (s *Store) List(ctx context.Context) ([]*domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, el.Clone())
	}
	return out, nil
}

// Add inserts an edge; duplicates on (blocker, blocked, type) are idempotent.
func (s *Store) Add(ctx context.Context, dep *domain.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dep.Key()
	if _, exists := s.edges[key]; exists {
		return nil
	}

	s.edges[key] = dep.Clone()
	s.incoming[dep.BlockedID] = append(s.incoming[dep.BlockedID], key)
	s.outgoing[dep.BlockerID] = append(s.outgoing[dep.BlockerID], key)
	return s.flush()
}

// Remove deletes an edge.
func (s *Store) Remove(ctx context.Context, blockedID, blockerID string, t domain.DependencyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := (&domain.Dependency{BlockedID: blockedID, BlockerID: blockerID, Type: t}).Key()
	if _, exists := s.edges[key]; !exists {
		return domain.ErrDependencyNotFound
	}

	delete(s.edges, key)
	s.incoming[blockedID] = dropKey(s.incoming[blockedID], key)
	s.outgoing[blockerID] = dropKey(s.outgoing[blockerID], key)
	return s.flush()
}

// Dependencies returns incoming edges (id as blocked side).
func (s *Store) Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.incoming[id], types), nil
}

// Dependents returns outgoing edges (id as blocker side).
func (s *Store) Dependents(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.outgoing[id], types), nil
}

// Append adds an event to the element's log.
func (s *Store) Append(ctx context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ev
	s.events[ev.ElementID] = append(s.events[ev.ElementID], &cp)
	return s.flush()
}

// Events returns the element's log in append order.
func (s *Store) Events(ctx context.Context, elementID string) ([]*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.events[elementID]
	out := make([]*domain.Event, len(log))
	for i, ev := range log {
		cp := *ev
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) collect(keys []string, types []domain.DependencyType) []*domain.Dependency {
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
