// Package redis implements the storage ports on Redis. Elements, edges and
// event logs are stored as JSON values with set-based indexes for traversal.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.ElementStore, ports.DependencyStore and
// ports.EventStore on a single Redis database.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to "graphstore:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store against the given address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "graphstore:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) elementKey(id string) string { return s.prefix + "element:" + id }
func (s *Store) elementIndex() string        { return s.prefix + "elements" }
func (s *Store) eventsKey(id string) string  { return s.prefix + "events:" + id }
func (s *Store) incomingKey(id string) string {
	return s.prefix + "depin:" + id
}
func (s *Store) outgoingKey(id string) string {
	return s.prefix + "depout:" + id
}
func (s *Store) depKey(blockedID, blockerID string, t domain.DependencyType) string {
	return s.prefix + "dep:" + strings.Join([]string{blockedID, blockerID, string(t)}, "|")
}

// Put persists an element and registers it in the element index.
func (s *Store) Put(ctx context.Context, el *domain.Element) error {
	data, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("marshal element: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.elementKey(el.ID), data, 0)
	pipe.SAdd(ctx, s.elementIndex(), el.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save element to redis: %w", err)
	}
	return nil
}

// Get retrieves an element.
func (s *Store) Get(ctx context.Context, id string) (*domain.Element, error) {
	val, err := s.client.Get(ctx, s.elementKey(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrElementNotFound
		}
		return nil, fmt.Errorf("load element from redis: %w", err)
	}

	var el domain.Element
	if err := json.Unmarshal([]byte(val), &el); err != nil {
		return nil, fmt.Errorf("unmarshal element: %w", err)
	}
	return &el, nil
}

// SetTaskState overwrites the element's task state. Single-writer semantics
// are assumed; the engine serializes mutations per call.
func (s *Store) SetTaskState(ctx context.Context, id string, state domain.TaskState) error {
	el, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	st := state
	el.Task = &st
	return s.Put(ctx, el)
}

// List returns all elements in the index.
func (s *Store) List(ctx context.Context) ([]*domain.Element, error) {
	ids, err := s.client.SMembers(ctx, s.elementIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("list elements from redis: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.elementKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load elements from redis: %w", err)
	}

	out := make([]*domain.Element, 0, len(vals))
	for _, val := range vals {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var el domain.Element
		if err := json.Unmarshal([]byte(raw), &el); err != nil {
			return nil, fmt.Errorf("unmarshal element: %w", err)
		}
		out = append(out, &el)
	}
	return out, nil
}

// Add inserts an edge; duplicates are idempotent.
func (s *Store) Add(ctx context.Context, dep *domain.Dependency) error {
	key := s.depKey(dep.BlockedID, dep.BlockerID, dep.Type)

	data, err := json.Marshal(dep)
	if err != nil {
		return fmt.Errorf("marshal dependency: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("save dependency to redis: %w", err)
	}
	if !created {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, s.incomingKey(dep.BlockedID), key)
	pipe.SAdd(ctx, s.outgoingKey(dep.BlockerID), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index dependency in redis: %w", err)
	}
	return nil
}

// Remove deletes an edge.
func (s *Store) Remove(ctx context.Context, blockedID, blockerID string, t domain.DependencyType) error {
	key := s.depKey(blockedID, blockerID, t)

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delete dependency from redis: %w", err)
	}
	if deleted == 0 {
		return domain.ErrDependencyNotFound
	}

	pipe := s.client.Pipeline()
	pipe.SRem(ctx, s.incomingKey(blockedID), key)
	pipe.SRem(ctx, s.outgoingKey(blockerID), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unindex dependency in redis: %w", err)
	}
	return nil
}

// Dependencies returns the incoming edges of an element.
func (s *Store) Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	return s.edges(ctx, s.incomingKey(id), types)
}

// Dependents returns the outgoing edges of an element.
func (s *Store) Dependents(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	return s.edges(ctx, s.outgoingKey(id), types)
}

func (s *Store) edges(ctx context.Context, indexKey string, types []domain.DependencyType) ([]*domain.Dependency, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list edges from redis: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load edges from redis: %w", err)
	}

	out := make([]*domain.Dependency, 0, len(vals))
	for _, val := range vals {
		raw, ok := val.(string)
		if !ok {
			// Index member without a value: edge was removed concurrently.
			continue
		}
		var dep domain.Dependency
		if err := json.Unmarshal([]byte(raw), &dep); err != nil {
			return nil, fmt.Errorf("unmarshal dependency: %w", err)
		}
		if len(types) > 0 && !typeMatches(dep.Type, types) {
			continue
		}
		out = append(out, &dep)
	}
	return out, nil
}

func typeMatches(t domain.DependencyType, types []domain.DependencyType) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}

// Append adds an event to the element's log.
func (s *Store) Append(ctx context.Context, ev *domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, s.eventsKey(ev.ElementID), data).Err(); err != nil {
		return fmt.Errorf("append event to redis: %w", err)
	}
	return nil
}

// Events returns the element's log in append order.
func (s *Store) Events(ctx context.Context, elementID string) ([]*domain.Event, error) {
	vals, err := s.client.LRange(ctx, s.eventsKey(elementID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load events from redis: %w", err)
	}

	out := make([]*domain.Event, 0, len(vals))
	for _, val := range vals {
		var ev domain.Event
		if err := json.Unmarshal([]byte(val), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, &ev)
	}
	return out, nil
}
