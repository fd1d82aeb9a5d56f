package booking

import (
	"context"
	"sync"

	"bookify/models"
)

// Entry tracks one in-flight or completed mutation. Non-owners wait on done;
// the owner completes the entry exactly once.
type Entry struct {
	done   chan struct{}
	result *models.BookingResult
}

// Wait blocks until the owning turn has completed the mutation, then returns
// its cached result.
func (e *Entry) Wait(ctx context.Context) (*models.BookingResult, error) {
	select {
	case <-e.done:
		return e.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IdempotencyCache is the bounded single-flight cache that guards calendar
// mutations against duplicate submissions. One writer per key at a time;
// concurrent submissions with the same key block on the first one's Entry
// instead of issuing a second remote call. Eviction is oldest-first once the
// capacity is reached.
type IdempotencyCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]*Entry
}

func NewIdempotencyCache(capacity int) *IdempotencyCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &IdempotencyCache{
		capacity: capacity,
		entries:  make(map[string]*Entry),
	}
}

// Begin registers a mutation under key. The second return value is true when
// the caller is the owner and must call Complete; otherwise the caller should
// Wait on the returned entry.
func (c *IdempotencyCache) Begin(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry, false
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	entry := &Entry{done: make(chan struct{})}
	c.entries[key] = entry
	c.order = append(c.order, key)
	return entry, true
}

// Complete records the terminal result for an entry and releases any waiters.
// Completion goes through the entry pointer, so an entry evicted while in
// flight still resolves for the turns already waiting on it.
func (c *IdempotencyCache) Complete(entry *Entry, result *models.BookingResult) {
	entry.result = result
	close(entry.done)
}

// Len reports the number of cached keys.
func (c *IdempotencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
