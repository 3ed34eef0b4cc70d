package tests

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/adapters/file"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/adapters/redis"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// runHierarchyScenario drives a three-level hierarchy with an external
// blocker through block and release, asserting the cascade behaves the same
// on any backend.
func runHierarchyScenario(t *testing.T, e *graphstore.Engine) {
	t.Helper()
	ctx := context.Background()

	blocker := domain.NewTask("infra migration", domain.StatusOpen)
	parent := domain.NewTask("epic", domain.StatusOpen)
	child := domain.NewTask("story", domain.StatusInProgress)
	grandchild := domain.NewTask("subtask", domain.StatusOpen)

	for _, task := range []*domain.Element{blocker, parent, child, grandchild} {
		require.NoError(t, e.CreateElement(ctx, task))
	}

	for _, edge := range []struct {
		blockerID, blockedID string
		depType              domain.DependencyType
	}{
		{parent.ID, child.ID, domain.DepParentChild},
		{child.ID, grandchild.ID, domain.DepParentChild},
		{blocker.ID, parent.ID, domain.DepBlocks},
	} {
		_, err := e.AddDependency(ctx, graphstore.AddDependencyInput{
			BlockerID: edge.blockerID,
			BlockedID: edge.blockedID,
			Type:      edge.depType,
			Actor:     "tester",
		})
		require.NoError(t, err)
	}

	// The block propagates down the whole hierarchy.
	for _, id := range []string{parent.ID, child.ID, grandchild.ID} {
		el, err := e.GetElement(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBlocked, el.Task.Effective(), "element %s", id)
	}

	blocked, err := e.Blocked(ctx)
	require.NoError(t, err)
	assert.Len(t, blocked, 3)

	ready, err := e.Ready(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, blocker.ID, ready[0].ID)

	// Closing the blocker releases everything and restores prior statuses.
	require.NoError(t, e.CloseTask(ctx, blocker.ID, "tester"))

	for id, want := range map[string]domain.Status{
		parent.ID:     domain.StatusOpen,
		child.ID:      domain.StatusInProgress,
		grandchild.ID: domain.StatusOpen,
	} {
		el, err := e.GetElement(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, el.Task.Effective(), "element %s", id)
	}

	// Every hierarchy member carries a full auto_blocked/auto_unblocked pair.
	for _, id := range []string{parent.ID, child.ID, grandchild.ID} {
		events, err := e.Events(ctx, id)
		require.NoError(t, err)

		var auto []*domain.Event
		for _, ev := range events {
			if ev.Type == domain.EventAutoBlocked || ev.Type == domain.EventAutoUnblocked {
				auto = append(auto, ev)
			}
		}
		require.Len(t, auto, 2, "element %s", id)
		assert.Equal(t, domain.EventAutoBlocked, auto[0].Type)
		assert.Equal(t, domain.EventAutoUnblocked, auto[1].Type)
		assert.Equal(t, domain.ActorSystem, auto[0].Actor)
	}
}

func TestHierarchyCascadeOnMemoryBackend(t *testing.T) {
	runHierarchyScenario(t, graphstore.New())
}

func TestHierarchyCascadeOnRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client)

	runHierarchyScenario(t, graphstore.New(graphstore.WithStores(store, store, store)))
}

func TestHierarchyCascadeOnFileBackend(t *testing.T) {
	store, err := file.Open(filepath.Join(t.TempDir(), "graph.yaml"))
	require.NoError(t, err)

	runHierarchyScenario(t, graphstore.New(graphstore.WithStores(store, store, store)))
}

func TestFileBackendSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.yaml")

	store, err := file.Open(path)
	require.NoError(t, err)
	e := graphstore.New(graphstore.WithStores(store, store, store))

	blocker := domain.NewTask("upstream", domain.StatusOpen)
	task := domain.NewTask("downstream", domain.StatusOpen)
	require.NoError(t, e.CreateElement(ctx, blocker))
	require.NoError(t, e.CreateElement(ctx, task))

	_, err = e.AddDependency(ctx, graphstore.AddDependencyInput{
		BlockerID: blocker.ID,
		BlockedID: task.ID,
		Type:      domain.DepBlocks,
		Actor:     "tester",
	})
	require.NoError(t, err)

	// A fresh process over the same snapshot sees the materialized state.
	reopened, err := file.Open(path)
	require.NoError(t, err)
	e2 := graphstore.New(graphstore.WithStores(reopened, reopened, reopened))

	el, err := e2.GetElement(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, el.Task.Effective())

	require.NoError(t, e2.CloseTask(ctx, blocker.ID, "tester"))

	el, err = e2.GetElement(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, el.Task.Effective())
}
