package domain

import (
	"strings"
	"time"
)

// DependencyType classifies a directed edge. The blocked side depends on the
// blocker side.
type DependencyType string

const (
	// DepBlocks blocks the dependent until the blocker is closed.
	DepBlocks DependencyType = "blocks"
	// DepAwaits blocks the dependent until the edge's gate is satisfied.
	DepAwaits DependencyType = "awaits"
	// DepParentChild makes the dependent a child of the blocker; children
	// inherit the parent's blocked state.
	DepParentChild DependencyType = "parent-child"
	// DepReferences is informational and never affects status.
	DepReferences DependencyType = "references"
)

// ParseDependencyType validates a raw string against the known edge types.
func ParseDependencyType(raw string) (DependencyType, error) {
	t := DependencyType(raw)
	switch t {
	case DepBlocks, DepAwaits, DepParentChild, DepReferences:
		return t, nil
	}
	return "", &ValidationError{Field: "type", Message: "unknown dependency type " + raw}
}

// AffectsBlocking reports whether edges of this type feed the blocked-status
// computation.
func (t DependencyType) AffectsBlocking() bool {
	return t == DepBlocks || t == DepAwaits || t == DepParentChild
}

// Dependency is a directed typed edge: BlockedID depends on BlockerID.
type Dependency struct {
	BlockerID string         `json:"blocker_id"`
	BlockedID string         `json:"blocked_id"`
	Type      DependencyType `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by,omitempty"`
}

// Key identifies an edge; duplicates on the same key are idempotent.
func (d *Dependency) Key() string {
	return d.BlockedID + "\x00" + d.BlockerID + "\x00" + string(d.Type)
}

// Validate checks structural consistency of the edge.
func (d *Dependency) Validate() error {
	if strings.TrimSpace(d.BlockerID) == "" {
		return &ValidationError{Field: "blocker_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(d.BlockedID) == "" {
		return &ValidationError{Field: "blocked_id", Message: "must not be empty"}
	}
	if d.BlockerID == d.BlockedID {
		return &ValidationError{Field: "blocked_id", Message: "element cannot depend on itself"}
	}
	if _, err := ParseDependencyType(string(d.Type)); err != nil {
		return err
	}
	if d.Type == DepAwaits {
		if _, err := ParseGateSpec(d.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so stores can hand out isolated values.
func (d *Dependency) Clone() *Dependency {
	cp := *d
	if d.Metadata != nil {
		cp.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
