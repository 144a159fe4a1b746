package xexec

import "context"

// StaticBus keeps one persistent queue of handlers registered with fixed
// priorities. Invoke executes it directly; only registrations that dirty the
// queue cost a sort on the next fire.
type StaticBus[P Payload] struct {
	guard
	queue    *Queue[P]
	handlers map[string]struct{}
	eng      *engine
}

// NewStaticBus returns a standalone static bus. Use StaticOf to get the bus
// registered for P in a Registry.
func NewStaticBus[P Payload]() *StaticBus[P] {
	return newStaticBus[P](standaloneEngine(), newItemPool[P]())
}

func newStaticBus[P Payload](eng *engine, pool *Pool[WorkItem[P]]) *StaticBus[P] {
	return &StaticBus[P]{
		queue:    newQueue[P](eng, pool, KindStatic),
		handlers: make(map[string]struct{}),
		eng:      eng,
	}
}

// Register enqueues fn under name. Taken names and nil handlers are ignored.
func (b *StaticBus[P]) Register(name string, priority int, fn WorkFunc[P], extra ...int) bool {
	if !b.claim(name, fn) {
		return false
	}
	b.queue.Enqueue(priority, name, fn, extra...)
	return true
}

// RegisterBinarySearch inserts fn at its sorted position. It fails with
// ErrQueueUnsorted when registrations since the last fire left the queue dirty.
func (b *StaticBus[P]) RegisterBinarySearch(name string, priority int, fn WorkFunc[P], extra ...int) (bool, error) {
	if !b.claim(name, fn) {
		return false, nil
	}
	if _, err := b.queue.EnqueueBinarySearch(priority, name, fn, extra...); err != nil {
		delete(b.handlers, name)
		return false, err
	}
	return true, nil
}

// RegisterSafeBinarySearch sorts the queue if needed and inserts fn at its sorted position.
func (b *StaticBus[P]) RegisterSafeBinarySearch(name string, priority int, fn WorkFunc[P], extra ...int) bool {
	if !b.claim(name, fn) {
		return false
	}
	b.queue.EnqueueSafeBinarySearch(priority, name, fn, extra...)
	return true
}

// Unregister removes the handler registered under name, if any.
func (b *StaticBus[P]) Unregister(name string) bool {
	if _, ok := b.handlers[name]; !ok {
		return false
	}
	delete(b.handlers, name)
	return b.queue.Remove(name)
}

// ClearHandlers drops every handler.
func (b *StaticBus[P]) ClearHandlers() {
	clear(b.handlers)
	b.queue.Clear()
}

// Handlers returns the number of registered handlers.
func (b *StaticBus[P]) Handlers() int { return len(b.handlers) }

// Queue returns a read-only view of the persistent queue. Handlers are added
// and removed through the bus so its name index stays in step with the queue.
func (b *StaticBus[P]) Queue() QueueView[P] { return QueueView[P]{q: b.queue} }

// Invoke executes the persistent queue. The error is non-nil only when the
// invocation was rejected: nil payload or re-entrant fire.
func (b *StaticBus[P]) Invoke(ctx context.Context, p P) (Result, error) {
	return invoke(ctx, &b.guard, b.eng, b.queue, p, nil)
}

func (b *StaticBus[P]) resetAll() { b.ClearHandlers() }

func (b *StaticBus[P]) claim(name string, fn WorkFunc[P]) bool {
	if fn == nil {
		return false
	}
	if _, taken := b.handlers[name]; taken {
		return false
	}
	b.handlers[name] = struct{}{}
	return true
}
