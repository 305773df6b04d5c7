// Package dedupe tracks seen comparison ids so duel submission retries are
// answered idempotently instead of double-writing ratings.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen comparison ids to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen set, allowing a retry. Used when a
	// submission was marked seen but its required persistence steps failed.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of tracked ids.
	Size() int64
}

// inMemoryDeduper implements Deduper with a bounded map. When the bound is
// reached the most recently added id is evicted first (LIFO), which protects
// the oldest entries: a stale retry of an old comparison is the dangerous
// case, a replay of one submitted seconds ago usually still sits in the set.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> index into stack
	stack   []string       // insertion order, newest last
	maxSize int            // 0 or negative = unbounded
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.stack) >= d.maxSize {
		// Evict the newest previously recorded id.
		top := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		delete(d.seen, top)
	}

	d.seen[id] = len(d.stack)
	d.stack = append(d.stack, id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)

	// Swap-remove from the stack to stay O(1); insertion order only matters
	// for choosing the eviction victim, and a swap keeps that approximate.
	last := len(d.stack) - 1
	if idx != last {
		moved := d.stack[last]
		d.stack[idx] = moved
		d.seen[moved] = idx
	}
	d.stack = d.stack[:last]
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.stack))
}
