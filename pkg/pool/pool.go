// Package pool provides a typed wrapper around sync.Pool.
//
// Hot paths that allocate the same short-lived object per record, such as the
// digest behind every hash_pk, keep one Pool and recycle through it:
//
//	digests := pool.New(md5.New, func(h hash.Hash) { h.Reset() })
//	h := digests.Get()
//	defer digests.Put(h)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a type-safe object pool with usage statistics. It is safe for
// concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		gets      int64
		allocated int64
		inUse     int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// when not nil, runs before an object goes back into the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get takes an object from the pool, allocating one if it is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.gets, 1)
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns how many objects were allocated, how many are checked out,
// and how many Gets were served from recycled objects.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	allocated = atomic.LoadInt64(&p.stats.allocated)
	return allocated,
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets) - allocated
}
