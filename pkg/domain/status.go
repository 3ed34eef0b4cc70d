package domain

import "fmt"

// Status represents the workflow state of a task element.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred" // Deliberately parked; exempt from auto-transitions
	StatusBacklog    Status = "backlog"
	StatusClosed     Status = "closed"
	StatusTombstone  Status = "tombstone" // Soft-deleted task
)

// ParseStatus validates a raw string against the known statuses.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	switch s {
	case StatusOpen, StatusInProgress, StatusReview, StatusBlocked,
		StatusDeferred, StatusBacklog, StatusClosed, StatusTombstone:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// IsTerminal reports whether the status ends the task's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusTombstone
}

// AutoTransitionable reports whether the blocked-status engine may override
// this status. Terminal tasks are done; deferred tasks are parked on purpose.
func (s Status) AutoTransitionable() bool {
	return !s.IsTerminal() && s != StatusDeferred
}

// TaskState is the status record of a task. The explicit status is the value
// clients write; the blocked flag is owned exclusively by the reconciler.
// Effective() derives the externally visible status, so a client-writable
// "blocked" state cannot even be represented.
type TaskState struct {
	// Explicit is the last client-written status. While the task is blocked
	// it doubles as the remembered pre-blocked status that an unblock
	// restores.
	Explicit Status `json:"explicit"`

	// Blocked is set by the reconciler when the task has at least one active
	// blocker. Never written by clients.
	Blocked bool `json:"blocked"`
}

// Effective returns the status the rest of the system observes.
func (t TaskState) Effective() Status {
	if t.Blocked {
		return StatusBlocked
	}
	return t.Explicit
}
