package xexec

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// engine carries everything the queues and buses of one registry share:
// logger, clock, middleware chain, observers and telemetry.
type engine struct {
	logger       *xlog.Logger
	clock        xclock.Clock
	middlewares  []Middleware
	observerPool *ObserverPool
	metrics      engineMetrics
	seq          atomic.Uint64

	// observers is replaced wholesale on add and remove, so notify can read
	// it without locking or copying.
	observersMu sync.Mutex
	observers   atomic.Pointer[[]Observer]
}

// engineMetrics uses lock-free atomics so Stats can be read from any goroutine.
type engineMetrics struct {
	invocations   atomic.Uint64
	itemsExecuted atomic.Uint64
	itemsFailed   atomic.Uint64
	chainsBroken  atomic.Uint64
	canceled      atomic.Uint64
	rejected      atomic.Uint64
	invokeNs      atomic.Int64
}

func newEngine(logger *xlog.Logger, clock xclock.Clock, obs ...Observer) *engine {
	e := &engine{logger: logger, clock: clock}
	for _, o := range obs {
		e.addObserver(o)
	}
	return e
}

// standaloneEngine backs queues and buses created outside a Registry.
func standaloneEngine() *engine {
	lg := xlog.Default()
	e := newEngine(lg, xclock.Default())
	if lg != nil {
		e.addObserver(LoggingObserver{Logger: lg})
	}
	return e
}

func (e *engine) nextSeq() uint64 { return e.seq.Add(1) }

func (e *engine) loadObservers() []Observer {
	if obs := e.observers.Load(); obs != nil {
		return *obs
	}
	return nil
}

func (e *engine) addObserver(obs Observer) {
	if obs == nil {
		return
	}
	e.observersMu.Lock()
	defer e.observersMu.Unlock()
	cur := e.loadObservers()
	next := make([]Observer, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, obs)
	e.observers.Store(&next)
}

// removeObserver matches by ==, so observers of uncomparable types (such as
// ObserverFunc) cannot be removed.
func (e *engine) removeObserver(obs Observer) {
	if obs == nil || !reflect.TypeOf(obs).Comparable() {
		return
	}
	e.observersMu.Lock()
	defer e.observersMu.Unlock()
	cur := e.loadObservers()
	for i, o := range cur {
		if o == obs {
			next := make([]Observer, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			e.observers.Store(&next)
			return
		}
	}
}

// notify delivers ev synchronously, or hands it to the observer pool when one
// is configured. The slice it reads is never mutated after being published.
func (e *engine) notify(ev Event) {
	obs := e.loadObservers()
	if len(obs) == 0 {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.clock.Now()
	}
	if e.observerPool != nil {
		e.observerPool.Notify(ev, obs)
		return
	}
	for _, o := range obs {
		deliver(o, ev)
	}
}

func (e *engine) record(res Result) {
	e.metrics.invocations.Add(1)
	e.metrics.itemsExecuted.Add(uint64(res.Executed))
	e.metrics.itemsFailed.Add(uint64(res.Failed))
	if res.Broken {
		e.metrics.chainsBroken.Add(1)
	}
	if res.Canceled {
		e.metrics.canceled.Add(1)
	}
	e.recordInvokeTime(res.Duration.Nanoseconds())
}

// recordInvokeTime keeps an exponential moving average of invocation time.
func (e *engine) recordInvokeTime(ns int64) {
	const alpha = 0.2 // 20% weight to new sample
	current := e.metrics.invokeNs.Load()
	if current == 0 {
		e.metrics.invokeNs.Store(ns)
		return
	}
	e.metrics.invokeNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}

func (e *engine) stats() Stats {
	s := Stats{
		Invocations:   e.metrics.invocations.Load(),
		ItemsExecuted: e.metrics.itemsExecuted.Load(),
		ItemsFailed:   e.metrics.itemsFailed.Load(),
		ChainsBroken:  e.metrics.chainsBroken.Load(),
		Canceled:      e.metrics.canceled.Load(),
		Rejected:      e.metrics.rejected.Load(),
		AvgInvokeMs:   float64(e.metrics.invokeNs.Load()) / 1e6,
	}
	if e.observerPool != nil {
		s.EventsDropped = e.observerPool.Stats().Dropped
	}
	return s
}

// guard is the re-entrancy latch shared by both bus kinds.
type guard struct {
	executing atomic.Bool
}

// IsExecuting reports whether an invocation of this bus is in progress.
func (g *guard) IsExecuting() bool { return g.executing.Load() }

func (g *guard) enter() bool { return g.executing.CompareAndSwap(false, true) }

func (g *guard) leave() { g.executing.Store(false) }

// invoke is the Invoke path shared by both bus kinds. prepare runs inside the
// re-entrancy guard, before the queue executes.
func invoke[P Payload](ctx context.Context, g *guard, eng *engine, q *Queue[P], p P, prepare func(seq uint64)) (Result, error) {
	if isNilPayload(p) {
		eng.metrics.rejected.Add(1)
		return Result{}, ErrNilPayload
	}
	if !g.enter() {
		eng.metrics.rejected.Add(1)
		return Result{}, ErrReentrantInvoke
	}
	defer g.leave()

	seq := eng.nextSeq()
	start := eng.clock.Now()
	eng.notify(Event{Type: InvokeStart, Bus: q.kind, Seq: seq, PayloadType: q.payloadType, At: start})

	if prepare != nil {
		prepare(seq)
	}
	res := q.execute(ctx, p, seq)
	res.Duration = eng.clock.Since(start)

	eng.record(res)
	eng.notify(Event{
		Type:        InvokeDone,
		Bus:         q.kind,
		Seq:         seq,
		PayloadType: q.payloadType,
		Result:      res,
		Duration:    res.Duration,
	})
	return res, nil
}
