package redis_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/stoneforge-ai/stoneforge-sub017/internal/adapters/redis"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/ports/tests"
)

func newTestStore(t *testing.T) *redis.Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client)
}

func TestRedisElementStore_Contract(t *testing.T) {
	tests.RunElementStoreContract(t, newTestStore(t))
}

func TestRedisDependencyStore_Contract(t *testing.T) {
	tests.RunDependencyStoreContract(t, newTestStore(t))
}

func TestRedisEventStore_Contract(t *testing.T) {
	tests.RunEventStoreContract(t, newTestStore(t))
}
