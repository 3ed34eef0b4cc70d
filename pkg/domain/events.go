package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit event.
type EventType string

const (
	EventCreated           EventType = "created"
	EventStatusChanged     EventType = "status_changed"
	EventDependencyAdded   EventType = "dependency_added"
	EventDependencyRemoved EventType = "dependency_removed"
	// EventAutoBlocked and EventAutoUnblocked are emitted only by the
	// reconciler, with Actor set to ActorSystem.
	EventAutoBlocked   EventType = "auto_blocked"
	EventAutoUnblocked EventType = "auto_unblocked"
)

// ActorSystem marks transitions driven by the blocked-status engine rather
// than a user.
const ActorSystem = "system:blocked-cache"

// Event is one immutable entry in an element's audit log.
type Event struct {
	ID        string         `json:"id"`
	ElementID string         `json:"element_id"`
	Type      EventType      `json:"type"`
	Old       map[string]any `json:"old,omitempty"`
	New       map[string]any `json:"new,omitempty"`
	Actor     string         `json:"actor"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent builds an event with a fresh ID and timestamp.
func NewEvent(elementID string, t EventType, old, newVal map[string]any, actor string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		ElementID: elementID,
		Type:      t,
		Old:       old,
		New:       newVal,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
}

// StatusPayload is the old/new value shape of status transition events.
func StatusPayload(s Status) map[string]any {
	return map[string]any{"status": string(s)}
}
