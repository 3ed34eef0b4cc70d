package graphstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/stoneforge-ai/stoneforge-sub017/internal/engine"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/adapters/memory"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/observability"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

// Version is the library version reported by the CLI and the MCP server.
const Version = "0.1.0"

// Engine is the high-level entry point for the graph store. It wraps the
// internal reconciliation engine and exposes the mutation and query API.
type Engine struct {
	elements ports.ElementStore
	deps     ports.DependencyStore
	events   ports.EventStore
	clock    ports.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	resolver   *engine.Resolver
	reconciler *engine.Reconciler
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStores injects custom storage adapters, bypassing the default
// in-memory stores.
func WithStores(elements ports.ElementStore, deps ports.DependencyStore, events ports.EventStore) Option {
	return func(e *Engine) {
		e.elements = elements
		e.deps = deps
		e.events = events
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used for gate evaluation and edge timestamps.
func WithClock(clock ports.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithMetrics attaches Prometheus collectors for reconciliation activity.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New initializes a graph store engine. By default it runs on in-memory
// stores, a system clock and a discarded logger.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.elements == nil || e.deps == nil || e.events == nil {
		e.elements = memory.NewElementStore()
		e.deps = memory.NewDependencyStore()
		e.events = memory.NewEventStore()
	}
	if e.clock == nil {
		e.clock = ports.SystemClock{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	gates := engine.NewGateEvaluator(e.clock, e.logger)
	e.resolver = engine.NewResolver(e.elements, e.deps, gates)
	e.reconciler = engine.NewReconciler(e.elements, e.deps, e.events, e.resolver, e.logger, e.metrics)
	return e
}

// AddDependencyInput is the request shape for AddDependency.
type AddDependencyInput struct {
	BlockerID string
	BlockedID string
	Type      domain.DependencyType
	Metadata  map[string]any
	Actor     string
}

// AddDependency creates a directed edge and synchronously reconciles the
// blocked element plus its parent-child descendants before returning.
// Duplicate edges are idempotent: the existing edge is returned unchanged,
// with no event and no reconciliation.
func (e *Engine) AddDependency(ctx context.Context, input AddDependencyInput) (*domain.Dependency, error) {
	dep := &domain.Dependency{
		BlockerID: input.BlockerID,
		BlockedID: input.BlockedID,
		Type:      input.Type,
		Metadata:  input.Metadata,
		CreatedAt: e.clock.Now().UTC(),
		CreatedBy: input.Actor,
	}
	if err := dep.Validate(); err != nil {
		return nil, err
	}

	// Both endpoints must exist; either side may be a non-task element.
	if _, err := e.elements.Get(ctx, dep.BlockedID); err != nil {
		return nil, fmt.Errorf("blocked element %s: %w", dep.BlockedID, err)
	}
	if _, err := e.elements.Get(ctx, dep.BlockerID); err != nil {
		return nil, fmt.Errorf("blocker element %s: %w", dep.BlockerID, err)
	}

	existing, err := e.deps.Dependencies(ctx, dep.BlockedID, dep.Type)
	if err != nil {
		return nil, err
	}
	for _, edge := range existing {
		if edge.BlockerID == dep.BlockerID {
			return edge, nil
		}
	}

	if err := e.deps.Add(ctx, dep); err != nil {
		return nil, err
	}

	ev := domain.NewEvent(dep.BlockedID, domain.EventDependencyAdded, nil,
		map[string]any{"blocker_id": dep.BlockerID, "type": string(dep.Type)},
		input.Actor)
	if err := e.events.Append(ctx, ev); err != nil {
		// An edge must never outlive its audit trail: undo the insert so the
		// aborted mutation leaves the store untouched.
		if rmErr := e.deps.Remove(ctx, dep.BlockedID, dep.BlockerID, dep.Type); rmErr != nil {
			e.logger.Error("rollback of dependency insert failed",
				"blocked", dep.BlockedID, "blocker", dep.BlockerID, "err", rmErr)
		}
		return nil, fmt.Errorf("record dependency_added: %w", err)
	}

	if err := e.reconciler.DependencyChanged(ctx, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// RemoveDependency deletes an edge and synchronously reconciles the blocked
// element plus its parent-child descendants. An unknown dependency type is a
// validation error; removing a nonexistent edge returns
// domain.ErrDependencyNotFound.
func (e *Engine) RemoveDependency(ctx context.Context, blockedID, blockerID string, t domain.DependencyType, actor string) error {
	if _, err := domain.ParseDependencyType(string(t)); err != nil {
		return err
	}

	// Hold on to the edge so an aborted removal can restore it verbatim.
	existing, err := e.deps.Dependencies(ctx, blockedID, t)
	if err != nil {
		return err
	}
	var removed *domain.Dependency
	for _, edge := range existing {
		if edge.BlockerID == blockerID {
			removed = edge
			break
		}
	}
	if removed == nil {
		return fmt.Errorf("dependency %s -> %s (%s): %w", blockerID, blockedID, t, domain.ErrDependencyNotFound)
	}

	if err := e.deps.Remove(ctx, blockedID, blockerID, t); err != nil {
		return err
	}

	ev := domain.NewEvent(blockedID, domain.EventDependencyRemoved,
		map[string]any{"blocker_id": blockerID, "type": string(t)}, nil, actor)
	if err := e.events.Append(ctx, ev); err != nil {
		if addErr := e.deps.Add(ctx, removed); addErr != nil {
			e.logger.Error("rollback of dependency removal failed",
				"blocked", blockedID, "blocker", blockerID, "err", addErr)
		}
		return fmt.Errorf("record dependency_removed: %w", err)
	}

	return e.reconciler.DependencyChanged(ctx, &domain.Dependency{
		BlockerID: blockerID,
		BlockedID: blockedID,
		Type:      t,
	})
}

// CreateElement validates and persists a new element and records its
// creation event.
func (e *Engine) CreateElement(ctx context.Context, el *domain.Element) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if err := e.elements.Put(ctx, el); err != nil {
		return err
	}

	payload := map[string]any{"kind": string(el.Kind), "title": el.Title}
	if el.IsTask() {
		payload["status"] = string(el.Task.Effective())
	}
	ev := domain.NewEvent(el.ID, domain.EventCreated, nil, payload, el.CreatedBy)
	return e.events.Append(ctx, ev)
}

// GetElement retrieves an element by ID.
func (e *Engine) GetElement(ctx context.Context, id string) (*domain.Element, error) {
	return e.elements.Get(ctx, id)
}

// UpdateStatus writes a task's explicit status and synchronously reconciles
// the task itself, every task it blocks, and their descendants. Writing
// "blocked" directly is rejected: that status is computed, never accepted.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status domain.Status, actor string) error {
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return err
	}
	if status == domain.StatusBlocked {
		return domain.ErrStatusComputed
	}

	el, err := e.elements.Get(ctx, id)
	if err != nil {
		return err
	}
	if !el.IsTask() {
		return &domain.ValidationError{Field: "id", Message: "element " + id + " is not a task"}
	}

	state := *el.Task
	state.Explicit = status
	if !status.AutoTransitionable() {
		// Terminal and deferred statuses are never overridden by the engine;
		// entering one drops any standing block.
		state.Blocked = false
	}
	if state == *el.Task {
		return nil
	}

	ev := domain.NewEvent(id, domain.EventStatusChanged,
		domain.StatusPayload(el.Task.Effective()),
		domain.StatusPayload(state.Effective()),
		actor)
	if err := e.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("record status_changed: %w", err)
	}
	if err := e.elements.SetTaskState(ctx, id, state); err != nil {
		return err
	}

	return e.reconciler.StatusChanged(ctx, id)
}

// CloseTask closes a task, releasing everything it blocks.
func (e *Engine) CloseTask(ctx context.Context, id, actor string) error {
	return e.UpdateStatus(ctx, id, domain.StatusClosed, actor)
}

// Reconcile re-derives the blocked status of an element and cascades into its
// dependents. Timer gates are evaluated lazily, so a deadline that elapses
// with no mutation touching the subgraph produces no transition until
// something forces a pass; this is that something.
func (e *Engine) Reconcile(ctx context.Context, id string) error {
	if _, err := e.elements.Get(ctx, id); err != nil {
		return err
	}
	return e.reconciler.StatusChanged(ctx, id)
}

// Ready returns tasks that are actionable now: effective status open or
// in_progress. Both Ready and Blocked read the materialized status field;
// the reconciler has already run on every relevant mutation.
func (e *Engine) Ready(ctx context.Context) ([]*domain.Element, error) {
	return e.listTasks(ctx, func(t *domain.TaskState) bool {
		s := t.Effective()
		return s == domain.StatusOpen || s == domain.StatusInProgress
	})
}

// Blocked returns tasks whose materialized status is blocked.
func (e *Engine) Blocked(ctx context.Context) ([]*domain.Element, error) {
	return e.listTasks(ctx, func(t *domain.TaskState) bool {
		return t.Effective() == domain.StatusBlocked
	})
}

func (e *Engine) listTasks(ctx context.Context, keep func(*domain.TaskState) bool) ([]*domain.Element, error) {
	all, err := e.elements.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Element, 0, len(all))
	for _, el := range all {
		if el.IsTask() && keep(el.Task) {
			out = append(out, el)
		}
	}
	return out, nil
}

// Events returns an element's audit log in append order.
func (e *Engine) Events(ctx context.Context, elementID string) ([]*domain.Event, error) {
	return e.events.Events(ctx, elementID)
}

// Dependencies returns the incoming edges of an element.
func (e *Engine) Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	return e.deps.Dependencies(ctx, id, types...)
}

// Dependents returns the outgoing edges of an element.
func (e *Engine) Dependents(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error) {
	return e.deps.Dependents(ctx, id, types...)
}
