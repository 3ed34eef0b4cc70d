// Package tests provides reusable contract suites that verify adapter
// compliance with the ports interfaces.
package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports"
)

// RunElementStoreContract verifies an adapter against ports.ElementStore.
func RunElementStoreContract(t *testing.T, store ports.ElementStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, domain.ErrElementNotFound) {
			t.Fatalf("expected ErrElementNotFound, got %v", err)
		}
	})

	t.Run("Put_Get_RoundTrip", func(t *testing.T) {
		task := domain.NewTask("build the parser", domain.StatusOpen)
		if err := store.Put(ctx, task); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := store.Get(ctx, task.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != task.Title || got.Kind != domain.KindTask {
			t.Errorf("round trip mismatch: got %+v", got)
		}
		if got.Task == nil || got.Task.Effective() != domain.StatusOpen {
			t.Errorf("expected effective status open, got %+v", got.Task)
		}
	})

	t.Run("Get_ReturnsIsolatedCopy", func(t *testing.T) {
		task := domain.NewTask("isolation", domain.StatusOpen)
		if err := store.Put(ctx, task); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		first, _ := store.Get(ctx, task.ID)
		first.Task.Explicit = domain.StatusClosed

		second, _ := store.Get(ctx, task.ID)
		if second.Task.Explicit != domain.StatusOpen {
			t.Errorf("store state leaked through returned pointer")
		}
	})

	t.Run("SetTaskState", func(t *testing.T) {
		task := domain.NewTask("state write", domain.StatusInProgress)
		if err := store.Put(ctx, task); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		if err := store.SetTaskState(ctx, task.ID, domain.TaskState{Explicit: domain.StatusInProgress, Blocked: true}); err != nil {
			t.Fatalf("SetTaskState failed: %v", err)
		}

		got, err := store.Get(ctx, task.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Task.Effective() != domain.StatusBlocked {
			t.Errorf("expected effective blocked, got %s", got.Task.Effective())
		}
		if got.Task.Explicit != domain.StatusInProgress {
			t.Errorf("explicit status must survive blocking, got %s", got.Task.Explicit)
		}
	})

	t.Run("SetTaskState_NotFound", func(t *testing.T) {
		err := store.SetTaskState(ctx, "missing", domain.TaskState{Explicit: domain.StatusOpen})
		if !errors.Is(err, domain.ErrElementNotFound) {
			t.Fatalf("expected ErrElementNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		doc := domain.NewElement(domain.KindDocument, "design notes")
		if err := store.Put(ctx, doc); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		found := false
		for _, el := range all {
			if el.ID == doc.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("listed elements missing %s", doc.ID)
		}
	})
}

// RunDependencyStoreContract verifies an adapter against ports.DependencyStore.
func RunDependencyStoreContract(t *testing.T, store ports.DependencyStore) {
	t.Helper()
	ctx := context.Background()

	dep := &domain.Dependency{
		BlockerID: "blocker-1",
		BlockedID: "blocked-1",
		Type:      domain.DepBlocks,
		CreatedAt: time.Now().UTC(),
		CreatedBy: "tester",
	}

	t.Run("Add_And_Query", func(t *testing.T) {
		if err := store.Add(ctx, dep); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		incoming, err := store.Dependencies(ctx, "blocked-1")
		if err != nil {
			t.Fatalf("Dependencies failed: %v", err)
		}
		if len(incoming) != 1 || incoming[0].BlockerID != "blocker-1" {
			t.Fatalf("expected one incoming edge from blocker-1, got %+v", incoming)
		}

		outgoing, err := store.Dependents(ctx, "blocker-1")
		if err != nil {
			t.Fatalf("Dependents failed: %v", err)
		}
		if len(outgoing) != 1 || outgoing[0].BlockedID != "blocked-1" {
			t.Fatalf("expected one outgoing edge to blocked-1, got %+v", outgoing)
		}
	})

	t.Run("Add_Duplicate_Idempotent", func(t *testing.T) {
		if err := store.Add(ctx, dep.Clone()); err != nil {
			t.Fatalf("duplicate Add must be idempotent, got %v", err)
		}
		incoming, _ := store.Dependencies(ctx, "blocked-1")
		if len(incoming) != 1 {
			t.Fatalf("duplicate Add created a second edge: %+v", incoming)
		}
	})

	t.Run("TypeFilter", func(t *testing.T) {
		ref := &domain.Dependency{
			BlockerID: "blocker-1",
			BlockedID: "blocked-1",
			Type:      domain.DepReferences,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.Add(ctx, ref); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		blocks, err := store.Dependencies(ctx, "blocked-1", domain.DepBlocks)
		if err != nil {
			t.Fatalf("Dependencies failed: %v", err)
		}
		if len(blocks) != 1 || blocks[0].Type != domain.DepBlocks {
			t.Fatalf("type filter leaked other edges: %+v", blocks)
		}

		both, err := store.Dependencies(ctx, "blocked-1", domain.DepBlocks, domain.DepReferences)
		if err != nil {
			t.Fatalf("Dependencies failed: %v", err)
		}
		if len(both) != 2 {
			t.Fatalf("expected 2 edges for combined filter, got %d", len(both))
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := store.Remove(ctx, "blocked-1", "blocker-1", domain.DepBlocks); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		incoming, _ := store.Dependencies(ctx, "blocked-1", domain.DepBlocks)
		if len(incoming) != 0 {
			t.Fatalf("edge survived removal: %+v", incoming)
		}
	})

	t.Run("Remove_NotFound", func(t *testing.T) {
		err := store.Remove(ctx, "blocked-1", "blocker-1", domain.DepBlocks)
		if !errors.Is(err, domain.ErrDependencyNotFound) {
			t.Fatalf("expected ErrDependencyNotFound, got %v", err)
		}
	})
}

// RunEventStoreContract verifies an adapter against ports.EventStore.
func RunEventStoreContract(t *testing.T, store ports.EventStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Append_Preserves_Order", func(t *testing.T) {
		first := domain.NewEvent("el-1", domain.EventAutoBlocked,
			domain.StatusPayload(domain.StatusOpen),
			domain.StatusPayload(domain.StatusBlocked),
			domain.ActorSystem)
		second := domain.NewEvent("el-1", domain.EventAutoUnblocked,
			domain.StatusPayload(domain.StatusBlocked),
			domain.StatusPayload(domain.StatusOpen),
			domain.ActorSystem)

		if err := store.Append(ctx, first); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := store.Append(ctx, second); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		events, err := store.Events(ctx, "el-1")
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Type != domain.EventAutoBlocked || events[1].Type != domain.EventAutoUnblocked {
			t.Errorf("events out of order: %s, %s", events[0].Type, events[1].Type)
		}
		if events[0].Actor != domain.ActorSystem {
			t.Errorf("expected system actor, got %s", events[0].Actor)
		}
		if got := events[0].New["status"]; got != string(domain.StatusBlocked) {
			t.Errorf("expected new status blocked, got %v", got)
		}
	})

	t.Run("Events_Empty", func(t *testing.T) {
		events, err := store.Events(ctx, "unknown")
		if err != nil {
			t.Fatalf("Events failed: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("expected empty log, got %d events", len(events))
		}
	})
}
