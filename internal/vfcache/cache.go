// Package vfcache implements the task-value cache (spec.md §4.5): a
// fixed-capacity LRU keyed by (id fingerprint, state fingerprint), with
// in-flight request deduplication so concurrent callers computing the same
// key share one evaluation instead of racing duplicate work.
package vfcache

import (
	"container/list"
	"context"
	"sync"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Key identifies one cached task value by its structural and state
// fingerprints (internal/vftaskgraph).
type Key struct {
	IDFingerprint    uint64
	StateFingerprint uint64
}

// Compute produces the value for a cache miss. It runs with no cache lock
// held, so it may itself recurse into the cache for parent values.
type Compute func(ctx context.Context) (vfvalue.TaskValue, error)

type entry struct {
	key     Key
	value   vfvalue.TaskValue
	size    int64
	element *list.Element
}

// future is the in-flight slot concurrent callers racing the same miss
// wait on — the same single-initializer idiom the teacher's in-memory
// engine uses for run results (`handle`/`future` in
// runtime/agent/engine/inmem/engine.go).
type future struct {
	done  chan struct{}
	value vfvalue.TaskValue
	err   error
}

// Cache is a thread-safe, fixed-capacity LRU cache of task values.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	maxEntries int
	size     int64
	entries  map[Key]*entry
	order    *list.List // front = most recently used
	inflight map[Key]*future
}

// New returns an empty Cache sized per cfg.
func New(cfg vfconfig.CacheConfig) *Cache {
	return &Cache{
		capacity:   cfg.CapacityBytes,
		maxEntries: cfg.MaxEntries,
		entries:    make(map[Key]*entry),
		order:      list.New(),
		inflight:   make(map[Key]*future),
	}
}

// GetOrCompute returns the cached value for key, computing it via compute
// on a miss. Concurrent callers requesting the same key while a compute is
// in flight all block on that single computation rather than each running
// their own (spec.md §4.5's "in-flight dedup").
func (c *Cache) GetOrCompute(ctx context.Context, key Key, size int64, compute Compute) (vfvalue.TaskValue, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.order.MoveToFront(e.element)
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return waitFuture(ctx, f)
	}
	f := &future{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	value, err := compute(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	f.value, f.err = value, err
	close(f.done)
	if err == nil {
		c.insertLocked(key, value, size)
	}
	c.mu.Unlock()

	return value, err
}

func waitFuture(ctx context.Context, f *future) (vfvalue.TaskValue, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return vfvalue.TaskValue{}, ctx.Err()
	}
}

// insertLocked adds value under key, evicting least-recently-used entries
// until both the byte-capacity and max-entry-count limits are satisfied.
// Caller must hold c.mu.
func (c *Cache) insertLocked(key Key, value vfvalue.TaskValue, size int64) {
	if existing, ok := c.entries[key]; ok {
		c.size -= existing.size
		c.order.Remove(existing.element)
		delete(c.entries, key)
	}
	e := &entry{key: key, value: value, size: size}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
	c.size += size

	for c.overCapacityLocked() {
		back := c.order.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*entry)
		c.order.Remove(back)
		delete(c.entries, victim.key)
		c.size -= victim.size
	}
}

func (c *Cache) overCapacityLocked() bool {
	if c.capacity > 0 && c.size > c.capacity {
		return true
	}
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		return true
	}
	return false
}

// Get returns the cached value for key without triggering a compute.
func (c *Cache) Get(key Key) (vfvalue.TaskValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return vfvalue.TaskValue{}, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear evicts every entry without affecting in-flight computations.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
	c.order = list.New()
	c.size = 0
}
