package routes

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"todo-backend/repository"
)

type CacheValue struct {
	Body        []byte
	ContentType string
}

// TaskListCache caches rendered task lists per user and status filter.
//
// Every key embeds the user's generation number. A write bumps the
// generation, so entries filled from a read that raced with the write are
// never served afterwards; they just age out.
//
// A generation older than twice the TTL is dropped: every entry keyed with
// it or an earlier one has expired by then.
type TaskListCache struct {
	cache *ristretto.Cache[string, CacheValue]
	ttl   time.Duration
	now   func() time.Time

	mu          sync.Mutex
	generations map[string]generation
	counter     uint64
	lastSweep   time.Time
}

type generation struct {
	value  uint64
	bumped time.Time
}

func NewTaskListCache(cache *ristretto.Cache[string, CacheValue], ttl time.Duration) *TaskListCache {
	return &TaskListCache{
		cache:       cache,
		ttl:         ttl,
		now:         time.Now,
		generations: make(map[string]generation),
	}
}

// Key must be computed before reading from the repository.
func (t *TaskListCache) Key(userID string, status repository.TaskStatus) string {
	if t == nil {
		return ""
	}

	t.mu.Lock()
	current := t.generations[userID].value
	t.mu.Unlock()

	var builder strings.Builder
	builder.WriteString("tasks:")
	builder.WriteString(userID)
	builder.WriteString(";gen=")
	builder.WriteString(strconv.FormatUint(current, 10))
	builder.WriteString(";status=")
	builder.WriteString(string(status))
	return builder.String()
}

func (t *TaskListCache) Get(key string) (CacheValue, bool) {
	if t == nil {
		return CacheValue{}, false
	}
	return t.cache.Get(key)
}

func (t *TaskListCache) Set(key string, value CacheValue) {
	if t == nil {
		return
	}
	t.cache.SetWithTTL(key, value, int64(len(value.Body))+1, t.ttl)
}

func (t *TaskListCache) Invalidate(userID string) {
	if t == nil {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.counter++
	t.generations[userID] = generation{value: t.counter, bumped: now}

	// entries without a TTL never expire, so their generations must stay
	if t.ttl > 0 && now.Sub(t.lastSweep) >= t.ttl {
		t.sweep(now)
	}
}

func (t *TaskListCache) sweep(now time.Time) {
	for userID, gen := range t.generations {
		if now.Sub(gen.bumped) > 2*t.ttl {
			delete(t.generations, userID)
		}
	}
	t.lastSweep = now
}

// Wait blocks until pending cache writes are applied.
func (t *TaskListCache) Wait() {
	if t != nil {
		t.cache.Wait()
	}
}
