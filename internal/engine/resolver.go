package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

// Resolver decides, for one element, whether it is currently blocked.
//
// An element is blocked iff it has at least one active blocker:
//   - a blocks edge whose blocker is not closed or tombstoned,
//   - an awaits edge whose gate is pending, or
//   - a parent-child edge whose parent's materialized status is blocked.
//
// The parent check reads the parent's persisted state rather than recursing,
// so resolution itself cannot loop even on a cyclic graph.
type Resolver struct {
	elements ports.ElementStore
	deps     ports.DependencyStore
	gates    *GateEvaluator
}

// NewResolver wires a resolver against its stores and gate evaluator.
func NewResolver(elements ports.ElementStore, deps ports.DependencyStore, gates *GateEvaluator) *Resolver {
	return &Resolver{elements: elements, deps: deps, gates: gates}
}

// IsBlocked computes blocked-ness for any element. It is computed uniformly
// for all kinds; only the reconciler restricts writes to tasks.
func (r *Resolver) IsBlocked(ctx context.Context, id string) (bool, error) {
	edges, err := r.deps.Dependencies(ctx, id,
		domain.DepBlocks, domain.DepAwaits, domain.DepParentChild)
	if err != nil {
		return false, fmt.Errorf("load dependencies of %s: %w", id, err)
	}

	for _, edge := range edges {
		active, err := r.edgeActive(ctx, edge)
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) edgeActive(ctx context.Context, edge *domain.Dependency) (bool, error) {
	switch edge.Type {
	case domain.DepBlocks:
		blocker, err := r.elements.Get(ctx, edge.BlockerID)
		if errors.Is(err, domain.ErrElementNotFound) {
			// A vanished blocker cannot block.
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load blocker %s: %w", edge.BlockerID, err)
		}
		if blocker.IsTask() {
			return !blocker.Task.Effective().IsTerminal(), nil
		}
		// Non-task blockers have no lifecycle to complete; the edge stays
		// active until it is removed.
		return true, nil

	case domain.DepAwaits:
		return r.gates.Evaluate(edge.Metadata) == GatePending, nil

	case domain.DepParentChild:
		parent, err := r.elements.Get(ctx, edge.BlockerID)
		if errors.Is(err, domain.ErrElementNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load parent %s: %w", edge.BlockerID, err)
		}
		return parent.IsTask() && parent.Task.Effective() == domain.StatusBlocked, nil
	}
	return false, nil
}
