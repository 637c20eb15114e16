package routes

import (
	"testing"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-backend/repository"
)

func newTaskListCache(t *testing.T, ttl time.Duration) *TaskListCache {
	t.Helper()

	cache, err := ristretto.NewCache(&ristretto.Config[string, CacheValue]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	return NewTaskListCache(cache, ttl)
}

func TestTaskListCache_InvalidateChangesKey(t *testing.T) {
	c := newTaskListCache(t, time.Minute)

	key := c.Key("user-1", repository.StatusAll)
	c.Set(key, CacheValue{Body: []byte("[]"), ContentType: "application/json"})
	c.Wait()

	value, found := c.Get(c.Key("user-1", repository.StatusAll))
	require.True(t, found)
	assert.Equal(t, []byte("[]"), value.Body)

	c.Invalidate("user-1")
	assert.NotEqual(t, key, c.Key("user-1", repository.StatusAll))
	_, found = c.Get(c.Key("user-1", repository.StatusAll))
	assert.False(t, found)

	assert.Equal(t, c.Key("user-2", repository.StatusAll), c.Key("user-2", repository.StatusAll))
}

func TestTaskListCache_GenerationsArePruned(t *testing.T) {
	c := newTaskListCache(t, time.Minute)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for _, user := range []string{"a", "b", "c"} {
		c.Invalidate(user)
	}
	assert.Len(t, c.generations, 3)

	now = now.Add(3 * time.Minute)
	c.Invalidate("d")

	assert.Len(t, c.generations, 1)
	assert.Contains(t, c.generations, "d")
}

func TestTaskListCache_NoTTLKeepsGenerations(t *testing.T) {
	c := newTaskListCache(t, 0)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Invalidate("a")
	now = now.Add(24 * time.Hour)
	c.Invalidate("b")

	assert.Len(t, c.generations, 2)
}

func TestTaskListCache_Nil(t *testing.T) {
	var c *TaskListCache

	assert.Empty(t, c.Key("user", repository.StatusAll))
	_, found := c.Get("anything")
	assert.False(t, found)
	c.Set("anything", CacheValue{})
	c.Invalidate("user")
	c.Wait()
}
