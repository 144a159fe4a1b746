package xexec

import (
	"context"
	"fmt"
	"slices"
)

// ListenerFunc contributes work for one invocation. It only enqueues into q;
// it must not run work itself nor keep q or p after returning.
type ListenerFunc[P Payload] func(q *Queue[P], p P)

type listener[P Payload] struct {
	name string
	fn   ListenerFunc[P]
}

// DynamicBus rebuilds its queue on every Invoke by asking each registered
// listener what to run, so the work can depend on the payload's contents.
type DynamicBus[P Payload] struct {
	guard
	listeners []listener[P]
	queue     *Queue[P]
	eng       *engine
}

// NewDynamicBus returns a standalone dynamic bus. Use DynamicOf to get the bus
// registered for P in a Registry.
func NewDynamicBus[P Payload]() *DynamicBus[P] {
	return newDynamicBus[P](standaloneEngine(), newItemPool[P]())
}

func newDynamicBus[P Payload](eng *engine, pool *Pool[WorkItem[P]]) *DynamicBus[P] {
	return &DynamicBus[P]{
		queue: newQueue[P](eng, pool, KindDynamic),
		eng:   eng,
	}
}

// Register adds a listener under name. Registering a taken name or a nil
// listener is a no-op and returns false.
func (b *DynamicBus[P]) Register(name string, fn ListenerFunc[P]) bool {
	if fn == nil || b.indexOf(name) >= 0 {
		return false
	}
	b.listeners = append(b.listeners, listener[P]{name: name, fn: fn})
	return true
}

// Unregister removes the listener registered under name, if any.
func (b *DynamicBus[P]) Unregister(name string) bool {
	i := b.indexOf(name)
	if i < 0 {
		return false
	}
	// copy so a listener loop in progress keeps its own view
	b.listeners = slices.Delete(slices.Clone(b.listeners), i, i+1)
	return true
}

// ClearListeners drops every listener.
func (b *DynamicBus[P]) ClearListeners() {
	b.listeners = nil
}

func (b *DynamicBus[P]) resetAll() {
	b.ClearListeners()
	b.queue.Clear()
}

// Listeners returns the number of registered listeners.
func (b *DynamicBus[P]) Listeners() int { return len(b.listeners) }

// Invoke clears the queue, lets every listener populate it (unless p's chain is
// already broken), sorts it and executes it. The error is non-nil only when the
// invocation was rejected: nil payload or re-entrant fire.
func (b *DynamicBus[P]) Invoke(ctx context.Context, p P) (Result, error) {
	return invoke(ctx, &b.guard, b.eng, b.queue, p, func(seq uint64) {
		b.build(p, seq)
	})
}

// InvocationQueue builds and sorts the queue for p without executing it. It
// returns nil while the bus is executing.
func (b *DynamicBus[P]) InvocationQueue(p P) *Queue[P] {
	if b.IsExecuting() || isNilPayload(p) {
		return nil
	}
	b.build(p, b.eng.nextSeq())
	return b.queue
}

func (b *DynamicBus[P]) build(p P, seq uint64) {
	b.queue.Clear()
	b.queue.SetCapacity(len(b.listeners))
	if !p.ChainBroken() {
		for _, l := range b.listeners {
			b.collect(l, p, seq)
		}
	}
	b.queue.SortByPriority()
}

// collect runs one listener; a panicking listener contributes whatever it
// enqueued before panicking.
func (b *DynamicBus[P]) collect(l listener[P], p P, seq uint64) {
	defer func() {
		if r := recover(); r != nil {
			b.eng.notify(Event{
				Type:        ListenerFailed,
				Bus:         KindDynamic,
				Seq:         seq,
				PayloadType: b.queue.payloadType,
				Item:        l.name,
				Err:         fmt.Errorf("%w: listener %s: %v", ErrWorkPanic, l.name, r),
			})
		}
	}()
	l.fn(b.queue, p)
}

func (b *DynamicBus[P]) indexOf(name string) int {
	return slices.IndexFunc(b.listeners, func(l listener[P]) bool { return l.name == name })
}
