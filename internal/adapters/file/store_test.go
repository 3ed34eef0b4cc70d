package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports/tests"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "graph.yaml"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store
}

func TestFileElementStoreContract(t *testing.T) {
	tests.RunElementStoreContract(t, newTestStore(t))
}

func TestFileDependencyStoreContract(t *testing.T) {
	tests.RunDependencyStoreContract(t, newTestStore(t))
}

func TestFileEventStoreContract(t *testing.T) {
	tests.RunEventStoreContract(t, newTestStore(t))
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.yaml")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	task := domain.NewTask("persisted", domain.StatusInProgress)
	if err := store.Put(ctx, task); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	blocker := domain.NewTask("blocker", domain.StatusOpen)
	if err := store.Put(ctx, blocker); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	dep := &domain.Dependency{
		BlockerID: blocker.ID,
		BlockedID: task.ID,
		Type:      domain.DepBlocks,
	}
	if err := store.Add(ctx, dep); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ev := domain.NewEvent(task.ID, domain.EventCreated, nil, domain.StatusPayload(domain.StatusInProgress), "tester")
	if err := store.Append(ctx, ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	got, err := reopened.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Title != "persisted" || got.Task.Explicit != domain.StatusInProgress {
		t.Errorf("element did not survive reopen: %+v", got)
	}

	deps, err := reopened.Dependencies(ctx, task.ID)
	if err != nil {
		t.Fatalf("Dependencies after reopen failed: %v", err)
	}
	if len(deps) != 1 || deps[0].BlockerID != blocker.ID {
		t.Errorf("dependency did not survive reopen: %+v", deps)
	}

	events, err := reopened.Events(ctx, task.ID)
	if err != nil {
		t.Fatalf("Events after reopen failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.EventCreated {
		t.Errorf("events did not survive reopen: %+v", events)
	}
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	store := newTestStore(t)

	elements, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("expected empty store, got %d elements", len(elements))
	}
}
