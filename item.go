package xexec

import (
	"cmp"
	"context"
)

// WorkFunc is one deferred unit of work. It runs to completion before the next
// item of the same invocation starts; blocking inside it is the only suspension point.
type WorkFunc[P Payload] func(ctx context.Context, p P) error

// WorkItem is a prioritized WorkFunc held by a Queue.
type WorkItem[P Payload] struct {
	Name     string
	Priority int
	Extra    []int

	order   uint64
	fn      WorkFunc[P]
	live    bool // owned by a queue
	retired bool // removed while its queue was executing
}

// Order returns the insertion stamp used as the final tie-break.
func (w *WorkItem[P]) Order() uint64 { return w.order }

func (w *WorkItem[P]) set(order uint64, priority int, name string, fn WorkFunc[P], extra []int) {
	w.order = order
	w.Priority = priority
	w.Name = name
	w.fn = fn
	w.Extra = append(w.Extra[:0], extra...)
	w.live = true
	w.retired = false
}

// clearItem is the pool release hook. The Extra backing array is kept for reuse.
func clearItem[P Payload](w *WorkItem[P]) {
	w.Name = ""
	w.Priority = 0
	w.Extra = w.Extra[:0]
	w.order = 0
	w.fn = nil
	w.live = false
	w.retired = false
}

// compareItems orders by primary priority, then extra priorities on the common
// prefix, then the item with fewer extra priorities first, then insertion order.
func compareItems[P Payload](a, b *WorkItem[P]) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	n := min(len(a.Extra), len(b.Extra))
	for i := 0; i < n; i++ {
		if c := cmp.Compare(a.Extra[i], b.Extra[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(a.Extra), len(b.Extra)); c != 0 {
		return c
	}
	return cmp.Compare(a.order, b.order)
}
