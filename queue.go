package xexec

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// ItemInfo is a read-only view of a queued work item.
type ItemInfo struct {
	Name     string
	Priority int
	Extra    []int
	Order    uint64
}

// QueueView exposes the read-only side of a Queue.
type QueueView[P Payload] struct {
	q *Queue[P]
}

func (v QueueView[P]) Len() int             { return v.q.Len() }
func (v QueueView[P]) Dirty() bool          { return v.q.Dirty() }
func (v QueueView[P]) Items() []ItemInfo    { return v.q.Items() }
func (v QueueView[P]) PoolStats() PoolStats { return v.q.PoolStats() }

// Queue is an ordered collection of work items for one payload type.
//
// The backing slice holds items in insertion order until SortByPriority runs;
// ExecuteAll iterates a sorted snapshot, so work items may enqueue, remove or
// clear while the queue is executing without disturbing the running iteration.
// Items removed during execution are skipped and recycled once the outermost
// execution returns.
//
// A Queue is not safe for concurrent use.
type Queue[P Payload] struct {
	items    []*WorkItem[P]
	snapshot []*WorkItem[P]
	dirty    bool
	seq      uint64

	running   int
	graveyard []*WorkItem[P]

	// last context passed to execute and its derivation carrying the engine
	ctxParent  context.Context
	ctxDerived context.Context

	pool        *Pool[WorkItem[P]]
	eng         *engine
	kind        BusKind
	payloadType string
}

// NewQueue returns an empty standalone queue logging through xlog.Default().
func NewQueue[P Payload]() *Queue[P] {
	return newQueue[P](standaloneEngine(), newItemPool[P](), KindQueue)
}

func newQueue[P Payload](eng *engine, pool *Pool[WorkItem[P]], kind BusKind) *Queue[P] {
	return &Queue[P]{
		pool:        pool,
		eng:         eng,
		kind:        kind,
		payloadType: payloadName[P](),
	}
}

func newItemPool[P Payload]() *Pool[WorkItem[P]] {
	return NewPool[WorkItem[P]](nil, clearItem[P])
}

// Len returns the number of queued items.
func (q *Queue[P]) Len() int { return len(q.items) }

// Dirty reports whether the queue needs sorting before binary-search inserts.
func (q *Queue[P]) Dirty() bool { return q.dirty }

// PoolStats returns statistics of the work item pool backing this queue.
func (q *Queue[P]) PoolStats() PoolStats { return q.pool.Stats() }

// SetCapacity pre-sizes the backing store.
func (q *Queue[P]) SetCapacity(n int) {
	if n > cap(q.items) {
		q.items = slices.Grow(q.items, n-len(q.items))
	}
}

// Items returns the queued items in their current backing order.
func (q *Queue[P]) Items() []ItemInfo {
	out := make([]ItemInfo, len(q.items))
	for i, it := range q.items {
		out[i] = ItemInfo{
			Name:     it.Name,
			Priority: it.Priority,
			Extra:    slices.Clone(it.Extra),
			Order:    it.order,
		}
	}
	return out
}

// Enqueue appends a work item and marks the queue dirty.
func (q *Queue[P]) Enqueue(priority int, name string, fn WorkFunc[P], extra ...int) *WorkItem[P] {
	it := q.acquire(priority, name, fn, extra)
	q.items = append(q.items, it)
	q.dirty = true
	return it
}

// EnqueueBinarySearch inserts a work item at its sorted position. The queue must
// be sorted; a dirty queue is an invariant violation reported as ErrQueueUnsorted.
func (q *Queue[P]) EnqueueBinarySearch(priority int, name string, fn WorkFunc[P], extra ...int) (*WorkItem[P], error) {
	if q.dirty {
		q.eng.notify(Event{
			Type:        InvariantViolation,
			Bus:         q.kind,
			PayloadType: q.payloadType,
			Item:        name,
			Priority:    priority,
			Err:         ErrQueueUnsorted,
		})
		return nil, ErrQueueUnsorted
	}
	it := q.acquire(priority, name, fn, extra)
	q.insertSorted(it)
	return it, nil
}

// EnqueueSafeBinarySearch sorts the queue if needed, then inserts at the sorted position.
func (q *Queue[P]) EnqueueSafeBinarySearch(priority int, name string, fn WorkFunc[P], extra ...int) *WorkItem[P] {
	if q.dirty {
		q.SortByPriority()
	}
	it := q.acquire(priority, name, fn, extra)
	q.insertSorted(it)
	return it
}

// Remove drops the first item with the given name. It reports whether one was found.
func (q *Queue[P]) Remove(name string) bool {
	for i, it := range q.items {
		if it.Name != name {
			continue
		}
		q.items = slices.Delete(q.items, i, i+1)
		q.release(it)
		q.dirty = true
		return true
	}
	return false
}

// SortByPriority stable-sorts the queue and refreshes the snapshot.
func (q *Queue[P]) SortByPriority() {
	slices.SortStableFunc(q.items, compareItems[P])
	q.syncSnapshot()
	q.dirty = false
}

// Clear releases every item to the pool and marks the queue dirty.
func (q *Queue[P]) Clear() {
	for _, it := range q.items {
		q.release(it)
	}
	clear(q.items)
	q.items = q.items[:0]
	if q.running > 0 {
		q.snapshot = nil
	} else {
		clear(q.snapshot)
		q.snapshot = q.snapshot[:0]
	}
	q.seq = 0
	q.dirty = true
}

// ExecuteAll runs the queued items in order, one at a time. Before each item it
// stops if the payload's chain is broken or ctx is done; a failing item is
// reported to observers and does not stop the items after it.
func (q *Queue[P]) ExecuteAll(ctx context.Context, p P) Result {
	return q.execute(ctx, p, q.eng.nextSeq())
}

func (q *Queue[P]) execute(ctx context.Context, p P, seq uint64) Result {
	start := q.eng.clock.Now()
	if q.dirty {
		q.SortByPriority()
	}
	run := q.snapshot

	q.running++
	defer q.endRun()

	ctx = q.withEngine(ctx)

	var res Result
	for i, it := range run {
		if it.retired {
			continue
		}
		if p.ChainBroken() {
			res.Remaining = countLive(run[i:])
			q.eng.notify(Event{Type: ChainBroken, Bus: q.kind, Seq: seq, PayloadType: q.payloadType, Item: it.Name})
			break
		}
		if err := ctx.Err(); err != nil {
			res.Canceled = true
			res.Remaining = countLive(run[i:])
			q.eng.notify(Event{Type: Canceled, Bus: q.kind, Seq: seq, PayloadType: q.payloadType, Item: it.Name, Err: err})
			break
		}
		res.Executed++
		if err := q.call(ctx, p, it, seq); err != nil {
			res.Failed++
			q.eng.notify(Event{
				Type:        ItemFailed,
				Bus:         q.kind,
				Seq:         seq,
				PayloadType: q.payloadType,
				Item:        it.Name,
				Priority:    it.Priority,
				Err:         &ItemError{Event: q.payloadType, Name: it.Name, Priority: it.Priority, Err: err},
			})
		}
	}
	res.Broken = p.ChainBroken()
	res.Duration = q.eng.clock.Since(start)
	return res
}

// withEngine returns ctx carrying the engine's logger and clock. The result is
// reused while callers keep passing the same context.
func (q *Queue[P]) withEngine(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if q.ctxParent != nil && reflect.TypeOf(ctx).Comparable() && ctx == q.ctxParent {
		return q.ctxDerived
	}
	derived := InjectAll(ctx, q.eng.logger, q.eng.clock)
	q.ctxParent, q.ctxDerived = ctx, derived
	return derived
}

// call runs one item behind the middleware chain and recovers its panics.
func (q *Queue[P]) call(ctx context.Context, p P, it *WorkItem[P], seq uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkPanic, r)
		}
	}()
	fn := it.fn
	if len(q.eng.middlewares) == 0 {
		return fn(ctx, p)
	}
	step := Compose(func(ctx context.Context, _ StepInfo) error { return fn(ctx, p) }, q.eng.middlewares...)
	return step(ctx, StepInfo{
		Bus:         q.kind,
		PayloadType: q.payloadType,
		Seq:         seq,
		Name:        it.Name,
		Priority:    it.Priority,
		Extra:       it.Extra,
	})
}

func (q *Queue[P]) acquire(priority int, name string, fn WorkFunc[P], extra []int) *WorkItem[P] {
	it := q.pool.Get()
	it.set(q.seq, priority, name, fn, extra)
	q.seq++
	return it
}

func (q *Queue[P]) insertSorted(it *WorkItem[P]) {
	// orders are unique, so the search never reports a match and i is the upper bound
	i, _ := slices.BinarySearchFunc(q.items, it, compareItems[P])
	q.items = slices.Insert(q.items, i, it)
	q.syncSnapshot()
}

// syncSnapshot copies the backing slice into the snapshot. While executing, the
// snapshot array is being iterated, so a fresh one is allocated.
func (q *Queue[P]) syncSnapshot() {
	if q.running > 0 {
		q.snapshot = slices.Clone(q.items)
		return
	}
	clear(q.snapshot)
	q.snapshot = append(q.snapshot[:0], q.items...)
}

// release returns it to the pool exactly once. Items released during execution
// are retired and recycled by endRun.
func (q *Queue[P]) release(it *WorkItem[P]) {
	if !it.live || it.retired {
		return
	}
	if q.running > 0 {
		it.retired = true
		q.graveyard = append(q.graveyard, it)
		return
	}
	q.pool.Put(it)
}

func (q *Queue[P]) endRun() {
	q.running--
	if q.running > 0 {
		return
	}
	for i, it := range q.graveyard {
		q.pool.Put(it)
		q.graveyard[i] = nil
	}
	q.graveyard = q.graveyard[:0]
}

func countLive[P Payload](items []*WorkItem[P]) int {
	n := 0
	for _, it := range items {
		if !it.retired {
			n++
		}
	}
	return n
}
