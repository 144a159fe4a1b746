package xexec

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// hit is the payload used across the package tests; work items append their
// name to trace.
type hit struct {
	Chain
	trace []string
}

func record(name string) WorkFunc[*hit] {
	return func(_ context.Context, h *hit) error {
		h.trace = append(h.trace, name)
		return nil
	}
}

// eventLog collects lifecycle events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnEvent(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testEngine(obs ...Observer) *engine {
	return newEngine(xlog.Default(), xclock.Default(), obs...)
}

func testQueue(obs ...Observer) *Queue[*hit] {
	return newQueue[*hit](testEngine(obs...), newItemPool[*hit](), KindQueue)
}

func names(items []ItemInfo) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestCompareItems(t *testing.T) {
	item := func(order uint64, priority int, extra ...int) *WorkItem[*hit] {
		return &WorkItem[*hit]{Priority: priority, Extra: extra, order: order}
	}

	tests := []struct {
		name string
		a, b *WorkItem[*hit]
		want int
	}{
		{"primary ascending", item(1, 1), item(0, 2), -1},
		{"extra decides", item(1, 5, 1), item(0, 5, 2), -1},
		{"extra element-wise", item(0, 5, 1, 9), item(1, 5, 2, 0), -1},
		{"no extra before extra", item(1, 10), item(0, 10, 5), -1},
		{"shorter common prefix first", item(1, 5, 1), item(0, 5, 1, 0), -1},
		{"order breaks ties", item(0, 5, 3), item(1, 5, 3), -1},
		{"identical", item(2, 5, 3), item(2, 5, 3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareItems(tt.a, tt.b))
			assert.Equal(t, -tt.want, compareItems(tt.b, tt.a))
		})
	}
}

// TestQueue_SortByPriority checks the full ordering law on a mixed queue.
func TestQueue_SortByPriority(t *testing.T) {
	q := testQueue()
	q.Enqueue(5, "a", record("a"))
	q.Enqueue(1, "b", record("b"))
	q.Enqueue(5, "c", record("c"), 2)
	q.Enqueue(5, "d", record("d"), 1)
	q.Enqueue(5, "e", record("e"), 1, 0)
	q.Enqueue(1, "f", record("f"))
	require.True(t, q.Dirty())

	q.SortByPriority()
	assert.False(t, q.Dirty())
	assert.Equal(t, []string{"b", "f", "a", "d", "e", "c"}, names(q.Items()))
	assert.Equal(t, q.items, q.snapshot)

	for i := 1; i < len(q.items); i++ {
		assert.LessOrEqual(t, compareItems(q.items[i-1], q.items[i]), 0)
	}
}

// TestQueue_StableTies verifies equal-priority items keep insertion order.
func TestQueue_StableTies(t *testing.T) {
	q := testQueue()
	for i := range 10 {
		q.Enqueue(3, fmt.Sprintf("w%d", i), record(fmt.Sprintf("w%d", i)), 1)
	}
	p := &hit{}
	res := q.ExecuteAll(context.Background(), p)

	assert.Equal(t, 10, res.Executed)
	assert.Equal(t, []string{"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9"}, p.trace)
}

// TestQueue_BinarySearchEquivalence compares one-at-a-time sorted inserts with
// enqueue followed by a single sort.
func TestQueue_BinarySearchEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type shape struct {
		priority int
		extra    []int
	}
	shapes := make([]shape, 200)
	for i := range shapes {
		extra := make([]int, rng.Intn(3))
		for j := range extra {
			extra[j] = rng.Intn(3)
		}
		shapes[i] = shape{priority: rng.Intn(5), extra: extra}
	}

	sorted := testQueue()
	inserted := testQueue()
	for i, s := range shapes {
		name := fmt.Sprintf("i%03d", i)
		sorted.Enqueue(s.priority, name, record(name), s.extra...)
		inserted.EnqueueSafeBinarySearch(s.priority, name, record(name), s.extra...)
	}
	sorted.SortByPriority()

	assert.False(t, inserted.Dirty())
	assert.Equal(t, names(sorted.Items()), names(inserted.Items()))

	a, b := &hit{}, &hit{}
	sorted.ExecuteAll(context.Background(), a)
	inserted.ExecuteAll(context.Background(), b)
	assert.Equal(t, a.trace, b.trace)
}

func TestQueue_EnqueueBinarySearch_Dirty(t *testing.T) {
	log := &eventLog{}
	q := testQueue(log)
	q.Enqueue(1, "a", record("a"))

	it, err := q.EnqueueBinarySearch(0, "b", record("b"))
	require.Error(t, err)
	assert.Nil(t, it)
	assert.ErrorIs(t, err, ErrQueueUnsorted)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, 1, q.Len())

	violations := log.ofType(InvariantViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, "b", violations[0].Item)
}

func TestQueue_EnqueueBinarySearch_Sorted(t *testing.T) {
	q := testQueue()
	q.Enqueue(10, "late", record("late"))
	q.Enqueue(0, "early", record("early"))
	q.SortByPriority()

	_, err := q.EnqueueBinarySearch(5, "mid", record("mid"))
	require.NoError(t, err)
	assert.False(t, q.Dirty())
	assert.Equal(t, []string{"early", "mid", "late"}, names(q.Items()))
}

// TestQueue_BreakChain verifies no item starts after the chain broke.
func TestQueue_BreakChain(t *testing.T) {
	log := &eventLog{}
	q := testQueue(log)
	q.Enqueue(0, "A", func(_ context.Context, h *hit) error {
		h.trace = append(h.trace, "A")
		h.BreakChain()
		return nil
	})
	q.Enqueue(1, "B", record("B"))
	q.Enqueue(2, "C", record("C"))

	p := &hit{}
	res := q.ExecuteAll(context.Background(), p)

	assert.Equal(t, []string{"A"}, p.trace)
	assert.Equal(t, 1, res.Executed)
	assert.Equal(t, 2, res.Remaining)
	assert.True(t, res.Broken)
	assert.False(t, res.Completed())

	broken := log.ofType(ChainBroken)
	require.Len(t, broken, 1)
	assert.Equal(t, "B", broken[0].Item)
}

// TestQueue_CancellationBoundary cancels between A and B; the call returns normally.
func TestQueue_CancellationBoundary(t *testing.T) {
	log := &eventLog{}
	q := testQueue(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.Enqueue(0, "A", func(_ context.Context, h *hit) error {
		h.trace = append(h.trace, "A")
		cancel()
		return nil
	})
	q.Enqueue(1, "B", record("B"))
	q.Enqueue(2, "C", record("C"))

	p := &hit{}
	var res Result
	require.NotPanics(t, func() { res = q.ExecuteAll(ctx, p) })

	assert.Equal(t, []string{"A"}, p.trace)
	assert.True(t, res.Canceled)
	assert.False(t, res.Broken)
	assert.Equal(t, 1, res.Executed)
	assert.Equal(t, 2, res.Remaining)

	canceled := log.ofType(Canceled)
	require.Len(t, canceled, 1)
	assert.ErrorIs(t, canceled[0].Err, context.Canceled)
}

func TestQueue_ClearIdempotent(t *testing.T) {
	q := testQueue()
	for i := range 3 {
		q.Enqueue(i, fmt.Sprintf("w%d", i), record("w"))
	}
	q.SortByPriority()

	q.Clear()
	assert.Equal(t, 0, q.Len())
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.snapshot)
	assert.True(t, q.Dirty())

	st := q.PoolStats()
	assert.Equal(t, uint64(3), st.Allocated)
	assert.Equal(t, uint64(3), st.Released)
	assert.Equal(t, 3, st.Free)

	// recycled items come back clean
	q.Enqueue(0, "again", record("again"))
	assert.Equal(t, uint64(3), q.PoolStats().Allocated)
	assert.Equal(t, uint64(0), q.items[0].Order())
}

// TestQueue_FailureContinues verifies errors and panics are reported and the
// remaining items still run.
func TestQueue_FailureContinues(t *testing.T) {
	log := &eventLog{}
	q := testQueue(log)
	boom := errors.New("boom")

	q.Enqueue(0, "A", record("A"))
	q.Enqueue(1, "B", func(context.Context, *hit) error { return boom })
	q.Enqueue(2, "C", func(context.Context, *hit) error { panic("kaboom") })
	q.Enqueue(3, "D", record("D"))

	p := &hit{}
	res := q.ExecuteAll(context.Background(), p)

	assert.Equal(t, []string{"A", "D"}, p.trace)
	assert.Equal(t, 4, res.Executed)
	assert.Equal(t, 2, res.Failed)
	assert.True(t, res.Completed())

	failed := log.ofType(ItemFailed)
	require.Len(t, failed, 2)

	var itemErr *ItemError
	require.ErrorAs(t, failed[0].Err, &itemErr)
	assert.Equal(t, "B", itemErr.Name)
	assert.Equal(t, 1, itemErr.Priority)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.ErrorIs(t, failed[1].Err, ErrWorkPanic)
}

// TestQueue_MutationDuringExecution covers removal, enqueue and clear from a
// running work item.
func TestQueue_MutationDuringExecution(t *testing.T) {
	t.Run("remove skips the item", func(t *testing.T) {
		q := testQueue()
		q.Enqueue(0, "A", func(_ context.Context, h *hit) error {
			h.trace = append(h.trace, "A")
			assert.True(t, q.Remove("C"))
			return nil
		})
		q.Enqueue(1, "B", record("B"))
		q.Enqueue(2, "C", record("C"))

		p := &hit{}
		res := q.ExecuteAll(context.Background(), p)

		assert.Equal(t, []string{"A", "B"}, p.trace)
		assert.Equal(t, 2, res.Executed)
		assert.Equal(t, 2, q.Len())
		assert.Equal(t, uint64(1), q.PoolStats().Released)
	})

	t.Run("enqueue runs next time", func(t *testing.T) {
		q := testQueue()
		added := false
		q.Enqueue(0, "A", func(_ context.Context, h *hit) error {
			h.trace = append(h.trace, "A")
			if !added {
				added = true
				q.Enqueue(1, "late", record("late"))
				q.EnqueueSafeBinarySearch(-1, "first", record("first"))
			}
			return nil
		})
		q.Enqueue(2, "B", record("B"))

		p := &hit{}
		q.ExecuteAll(context.Background(), p)
		assert.Equal(t, []string{"A", "B"}, p.trace)

		p = &hit{}
		q.ExecuteAll(context.Background(), p)
		assert.Equal(t, []string{"first", "A", "late", "B"}, p.trace)
	})

	t.Run("clear stops the run", func(t *testing.T) {
		q := testQueue()
		q.Enqueue(0, "A", func(_ context.Context, h *hit) error {
			h.trace = append(h.trace, "A")
			q.Clear()
			return nil
		})
		q.Enqueue(1, "B", record("B"))
		q.Enqueue(2, "C", record("C"))

		p := &hit{}
		res := q.ExecuteAll(context.Background(), p)

		assert.Equal(t, []string{"A"}, p.trace)
		assert.Equal(t, 1, res.Executed)
		assert.Equal(t, 0, q.Len())

		st := q.PoolStats()
		assert.Equal(t, uint64(3), st.Released)
		assert.Equal(t, 3, st.Free)
	})
}

func TestQueue_ContextCarriesLoggerAndClock(t *testing.T) {
	q := testQueue()
	q.Enqueue(0, "inspect", func(ctx context.Context, _ *hit) error {
		_, ok := LoggerFromContext(ctx)
		assert.True(t, ok)
		_, ok = ClockFromContext(ctx)
		assert.True(t, ok)
		return nil
	})
	res := q.ExecuteAll(context.Background(), &hit{})
	assert.Equal(t, 0, res.Failed)
}

func BenchmarkQueue_ExecuteAll(b *testing.B) {
	q := testQueue()
	for i := range 32 {
		q.Enqueue(i%4, fmt.Sprintf("w%d", i), func(context.Context, *hit) error { return nil }, i%3)
	}
	p := &hit{}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.ExecuteAll(ctx, p)
	}
}
