package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/observability"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

// Reconciler applies blocked/unblocked transitions and cascades them through
// parent-child hierarchies. Every mutation entry point runs its entire
// cascade synchronously before returning, so callers always observe a fully
// reconciled graph on success.
type Reconciler struct {
	elements ports.ElementStore
	deps     ports.DependencyStore
	events   ports.EventStore
	resolver *Resolver
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewReconciler wires a reconciler. metrics may be nil.
func NewReconciler(
	elements ports.ElementStore,
	deps ports.DependencyStore,
	events ports.EventStore,
	resolver *Resolver,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Reconciler {
	return &Reconciler{
		elements: elements,
		deps:     deps,
		events:   events,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// transitionError marks failures that must abort the triggering mutation:
// a transition that could not be fully recorded, no matter where in the
// cascade it happened.
type transitionError struct {
	err error
}

func (e transitionError) Error() string { return e.err.Error() }
func (e transitionError) Unwrap() error { return e.err }

// DependencyChanged reconciles after an edge was added or removed. The
// blocked side is the direct target; its parent-child descendants cascade.
func (r *Reconciler) DependencyChanged(ctx context.Context, dep *domain.Dependency) error {
	if !dep.Type.AffectsBlocking() {
		return nil
	}
	visited := make(map[string]struct{})
	defer func() { r.metrics.ObserveCascade(len(visited)) }()
	return r.cascade(ctx, dep.BlockedID, visited, true, false)
}

// StatusChanged reconciles after a task's status was written: the task
// itself (its blockers may bite again after a reopen), every task naming it
// as a blocks/awaits blocker, and its parent-child children, each cascading
// into their own descendants.
func (r *Reconciler) StatusChanged(ctx context.Context, id string) error {
	visited := make(map[string]struct{})
	defer func() { r.metrics.ObserveCascade(len(visited)) }()

	if err := r.cascade(ctx, id, visited, true, false); err != nil {
		return err
	}

	edges, err := r.deps.Dependents(ctx, id,
		domain.DepBlocks, domain.DepAwaits, domain.DepParentChild)
	if err != nil {
		return fmt.Errorf("load dependents of %s: %w", id, err)
	}
	for _, edge := range edges {
		// Force re-entry: an earlier branch of this loop may have changed a
		// parent this dependent reads.
		if err := r.cascade(ctx, edge.BlockedID, visited, false, true); err != nil {
			return err
		}
	}
	return nil
}

// cascade reconciles one element and recurses depth-first into its
// parent-child children. The visited set is shared across the whole
// triggering mutation and guards cyclic graphs against unbounded recursion;
// it does not suppress re-evaluation whose inputs changed. A visited element
// is re-entered when forced (a parent of it just transitioned), and a
// re-entry that changes nothing stops there, which bounds the recursion by
// the number of transitions in the pass.
//
// Errors on the direct mutation target propagate; elsewhere the cascade is
// best-effort and only unrecorded transitions abort it.
func (r *Reconciler) cascade(ctx context.Context, id string, visited map[string]struct{}, direct, forced bool) error {
	_, seen := visited[id]
	if seen && !forced {
		return nil
	}
	visited[id] = struct{}{}

	changed, err := r.reconcileOne(ctx, id)
	if err != nil {
		var te transitionError
		if direct || errors.As(err, &te) {
			return err
		}
		r.logger.Warn("cascade reconciliation skipped", "element", id, "err", err)
	}
	if seen && !changed {
		return nil
	}

	children, err := r.deps.Dependents(ctx, id, domain.DepParentChild)
	if err != nil {
		if direct {
			return fmt.Errorf("load children of %s: %w", id, err)
		}
		r.logger.Warn("cascade children lookup failed", "element", id, "err", err)
		return nil
	}
	for _, edge := range children {
		if err := r.cascade(ctx, edge.BlockedID, visited, false, changed); err != nil {
			return err
		}
	}
	return nil
}

// reconcileOne recomputes blocked-ness for a single element and applies the
// transition, if any, reporting whether one was applied. Reconciling with no
// intervening mutation is a no-op: no event, no status change.
func (r *Reconciler) reconcileOne(ctx context.Context, id string) (bool, error) {
	r.metrics.ObservePass()

	el, err := r.elements.Get(ctx, id)
	if errors.Is(err, domain.ErrElementNotFound) {
		// A target vanishing mid-cascade is benign.
		r.logger.Debug("element vanished mid-cascade", "element", id)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load element %s: %w", id, err)
	}

	blocked, err := r.resolver.IsBlocked(ctx, id)
	if err != nil {
		return false, err
	}

	if !el.IsTask() {
		// Computed and discarded: non-task elements never receive a status
		// mutation.
		return false, nil
	}

	state := *el.Task
	switch {
	case blocked && !state.Blocked:
		if !state.Explicit.AutoTransitionable() {
			return false, nil
		}
		prev := state.Explicit
		state.Blocked = true
		if err := r.applyTransition(ctx, id, state, domain.EventAutoBlocked, prev, domain.StatusBlocked); err != nil {
			return false, err
		}
		return true, nil

	case !blocked && state.Blocked:
		state.Blocked = false
		if err := r.applyTransition(ctx, id, state, domain.EventAutoUnblocked, domain.StatusBlocked, state.Explicit); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// applyTransition records the audit event, then persists the new state. The
// event goes first: a status flip must never be persisted without its audit
// trail, and an aborted mutation with a dangling event is the lesser
// inconsistency.
func (r *Reconciler) applyTransition(ctx context.Context, id string, state domain.TaskState, evType domain.EventType, from, to domain.Status) error {
	ev := domain.NewEvent(id, evType,
		domain.StatusPayload(from), domain.StatusPayload(to), domain.ActorSystem)
	if err := r.events.Append(ctx, ev); err != nil {
		return transitionError{fmt.Errorf("record %s for %s: %w", evType, id, err)}
	}
	if err := r.elements.SetTaskState(ctx, id, state); err != nil {
		return transitionError{fmt.Errorf("persist %s for %s: %w", evType, id, err)}
	}

	direction := "blocked"
	if evType == domain.EventAutoUnblocked {
		direction = "unblocked"
	}
	r.metrics.ObserveTransition(direction)
	r.logger.Info("automatic status transition",
		"element", id, "event", string(evType), "from", string(from), "to", string(to))
	return nil
}
