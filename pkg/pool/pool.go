// Package pool provides typed object pooling and string interning.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - A bounded Interner for repeated categorical values
//   - Statistics for both
//
// Example usage:
//
//	buffers := pool.New(
//	    func() *bytes.Buffer { return new(bytes.Buffer) },
//	    func(b *bytes.Buffer) { b.Reset() },
//	)
//	buf := buffers.Get()
//	defer buffers.Put(buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset. The
// pool is safe for concurrent use.
//
// Type parameter T can be any type, but pointer types are recommended
// for efficiency.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated atomic.Int64
		inUse     atomic.Int64
		gets      atomic.Int64
	}
}

// New creates a new typed pool. newFn is called when the pool is empty;
// reset, when non-nil, is called on every object handed back to Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		p.stats.allocated.Add(1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, allocating one if it is empty.
func (p *Pool[T]) Get() T {
	p.stats.gets.Add(1)
	p.stats.inUse.Add(1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.stats.inUse.Add(-1)
	p.pool.Put(obj)
}

// Discard records that obj, taken by Get, will not come back. Use it for
// objects too large to keep.
func (p *Pool[T]) Discard(T) {
	p.stats.inUse.Add(-1)
}

// Stats returns the pool statistics. Misses are Gets that had to allocate.
func (p *Pool[T]) Stats() Stats {
	gets := p.stats.gets.Load()
	allocated := p.stats.allocated.Load()
	return Stats{
		Allocated: allocated,
		InUse:     p.stats.inUse.Load(),
		Hits:      max(0, gets-allocated),
		Misses:    min(gets, allocated),
	}
}

// Stats summarizes a Pool or an Interner.
type Stats struct {
	Allocated int64 `json:"allocated"`
	InUse     int64 `json:"in_use"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}
