package xexec

import "reflect"

// Payload is the data carried by one firing of an event. Concrete payloads are
// pointers to structs embedding Chain; the concrete type is the routing key.
type Payload interface {
	// BreakChain stops the remaining work items of the current invocation.
	BreakChain()
	// ChainBroken reports whether BreakChain was called.
	ChainBroken() bool

	chainState() *Chain
}

// PayloadPtr constrains P to be *T for a payload struct T.
type PayloadPtr[T any] interface {
	*T
	Payload
}

// Resetter is implemented by payloads that want to recycle their own fields
// (e.g. keep allocated maps) instead of being zeroed on release.
type Resetter interface {
	Reset()
}

// Chain carries the break-chain flag and, while the payload is checked out of
// a PayloadPool, a reference back to that pool. Embed it in every payload struct.
type Chain struct {
	broken bool
	owner  payloadOwner // nil unless acquired from a pool and not yet released
	self   Payload
}

type payloadOwner interface {
	put(p Payload)
}

func (c *Chain) BreakChain()        { c.broken = true }
func (c *Chain) ChainBroken() bool  { return c.broken }
func (c *Chain) chainState() *Chain { return c }

// Release hands the payload back to the pool it was acquired from. Calling it
// again, or on a payload that never came from a pool, is a no-op.
func (c *Chain) Release() {
	if c.owner == nil {
		return
	}
	c.owner.put(c.self)
}

// PayloadPool recycles payloads of one concrete type.
type PayloadPool[T any, P PayloadPtr[T]] struct {
	pool *Pool[T]
}

// NewPayloadPool creates a payload pool. Released payloads are zeroed, or handed
// to their Reset method when they implement Resetter.
func NewPayloadPool[T any, P PayloadPtr[T]]() *PayloadPool[T, P] {
	return &PayloadPool[T, P]{
		pool: NewPool[T](nil, func(t *T) {
			p := P(t)
			if r, ok := any(p).(Resetter); ok {
				*p.chainState() = Chain{}
				r.Reset()
				return
			}
			var zero T
			*t = zero
		}),
	}
}

// Get returns a clean payload owned by the pool until Put or its Release
// method runs. Release it on every exit path, usually with defer.
func (pp *PayloadPool[T, P]) Get() P {
	p := P(pp.pool.Get())
	c := p.chainState()
	c.owner = pp
	c.self = p
	return p
}

// Put returns p to the pool. Payloads already released, or owned by another
// pool, are ignored.
func (pp *PayloadPool[T, P]) Put(p P) {
	if isNilPayload(p) {
		return
	}
	c := p.chainState()
	if c.owner != payloadOwner(pp) {
		return
	}
	c.owner = nil
	pp.pool.Put((*T)(p))
}

func (pp *PayloadPool[T, P]) put(p Payload) {
	if v, ok := p.(P); ok {
		pp.Put(v)
	}
}

// Stats returns statistics of the underlying pool.
func (pp *PayloadPool[T, P]) Stats() PoolStats { return pp.pool.Stats() }

func isNilPayload(p Payload) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func payloadName[P Payload]() string {
	t := reflect.TypeFor[P]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
