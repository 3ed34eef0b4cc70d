package ports

import (
	"context"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// ElementStore persists elements.
//
// SetTaskState is the privileged mutation path: it is the only way to write
// the blocked flag, and it is called exclusively by the engine. Client-facing
// validation never reaches it.
type ElementStore interface {
	// Put creates or replaces an element.
	Put(ctx context.Context, el *domain.Element) error

	// Get retrieves an element by ID.
	// Returns domain.ErrElementNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Element, error)

	// SetTaskState overwrites the task state of an element.
	// Returns domain.ErrElementNotFound if it does not exist.
	SetTaskState(ctx context.Context, id string, state domain.TaskState) error

	// List returns all elements. Order is unspecified.
	List(ctx context.Context) ([]*domain.Element, error)
}

// DependencyStore owns the directed typed edges between elements.
type DependencyStore interface {
	// Add inserts an edge. Duplicate (blocker, blocked, type) inserts are
	// idempotent and return nil.
	Add(ctx context.Context, dep *domain.Dependency) error

	// Remove deletes an edge.
	// Returns domain.ErrDependencyNotFound if it does not exist.
	Remove(ctx context.Context, blockedID, blockerID string, t domain.DependencyType) error

	// Dependencies returns the incoming edges of an element (the element as
	// blocked side), optionally filtered by type.
	Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error)

	// Dependents returns the outgoing edges of an element (the element as
	// blocker side), optionally filtered by type.
	Dependents(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error)
}

// EventStore appends to and reads back per-element audit logs.
type EventStore interface {
	// Append adds an event to the element's log.
	Append(ctx context.Context, ev *domain.Event) error

	// Events returns the element's log in append order.
	Events(ctx context.Context, elementID string) ([]*domain.Event, error)
}
