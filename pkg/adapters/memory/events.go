package memory

import (
	"context"
	"sync"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// EventStore implements ports.EventStore in memory.
type EventStore struct {
	logs map[string][]*domain.Event
	mu   sync.RWMutex
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		logs: make(map[string][]*domain.Event),
	}
}

// Append adds an event to the element's log.
func (s *EventStore) Append(ctx context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ev
	s.logs[ev.ElementID] = append(s.logs[ev.ElementID], &cp)
	return nil
}

// Events returns the element's log in append order.
func (s *EventStore) Events(ctx context.Context, elementID string) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[elementID]
	out := make([]*domain.Event, len(log))
	for i, ev := range log {
		cp := *ev
		out[i] = &cp
	}
	return out, nil
}
