package xexec

// Pool is a free-list of reusable objects. It is not safe for concurrent use;
// every pool is owned by the single logical thread that drives its buses.
type Pool[T any] struct {
	free    []*T
	newFn   func() *T
	release func(*T)

	allocated uint64
	acquired  uint64
	released  uint64
}

// PoolStats reports pool activity.
type PoolStats struct {
	Allocated uint64 // objects created because the free list was empty
	Acquired  uint64 // total Get calls
	Released  uint64 // total successful Put calls
	Free      int    // objects currently waiting in the free list
}

// NewPool returns a pool. newFn may be nil (zero value allocation); release is
// called on every object handed back through Put and must clear it.
func NewPool[T any](newFn func() *T, release func(*T)) *Pool[T] {
	if newFn == nil {
		newFn = func() *T { return new(T) }
	}
	return &Pool[T]{newFn: newFn, release: release}
}

// Get pops an object from the free list, allocating when it is empty.
func (p *Pool[T]) Get() *T {
	p.acquired++
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return v
	}
	p.allocated++
	return p.newFn()
}

// Put clears v through the release hook and pushes it on the free list.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	if p.release != nil {
		p.release(v)
	}
	p.released++
	p.free = append(p.free, v)
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Allocated: p.allocated,
		Acquired:  p.acquired,
		Released:  p.released,
		Free:      len(p.free),
	}
}
