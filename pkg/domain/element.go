package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an element in the graph.
type Kind string

const (
	KindTask     Kind = "task"
	KindDocument Kind = "document"
	KindAgent    Kind = "agent"
	KindChannel  Kind = "channel"
)

// ParseKind validates a raw string against the known element kinds.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	switch k {
	case KindTask, KindDocument, KindAgent, KindChannel:
		return k, nil
	}
	return "", &ValidationError{Field: "kind", Message: "unknown kind " + raw}
}

// Element is a node in the graph. Only elements of kind "task" carry a
// TaskState; other kinds may participate in dependencies but are inert to
// status mutation.
type Element struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Task is nil for non-task kinds.
	Task *TaskState `json:"task,omitempty"`
}

// NewTask builds a task element with the given initial explicit status.
func NewTask(title string, status Status) *Element {
	now := time.Now().UTC()
	return &Element{
		ID:        uuid.NewString(),
		Kind:      KindTask,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Task:      &TaskState{Explicit: status},
	}
}

// NewElement builds a non-task element of the given kind.
func NewElement(kind Kind, title string) *Element {
	now := time.Now().UTC()
	return &Element{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTask reports whether the element's status is governed by the engine.
func (e *Element) IsTask() bool {
	return e.Kind == KindTask && e.Task != nil
}

// Validate checks structural consistency of the element.
func (e *Element) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Kind == KindTask {
		if e.Task == nil {
			return &ValidationError{Field: "task", Message: "task elements require a task state"}
		}
		if _, err := ParseStatus(string(e.Task.Explicit)); err != nil {
			return err
		}
		if e.Task.Explicit == StatusBlocked {
			return ErrStatusComputed
		}
	} else if e.Task != nil {
		return &ValidationError{Field: "task", Message: "only task elements carry a task state"}
	}
	return nil
}

// Clone returns a deep copy so stores can hand out isolated values.
func (e *Element) Clone() *Element {
	cp := *e
	if e.Task != nil {
		task := *e.Task
		cp.Task = &task
	}
	return &cp
}
