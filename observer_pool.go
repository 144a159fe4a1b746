package xexec

import (
	"context"
	"sync"
	"sync/atomic"
)

// ObserverPool delivers lifecycle events from background goroutines so slow
// observers (remote journal sinks, exporters) never hold up a running chain.
// Events are dropped, and counted, when the buffer is full.
type ObserverPool struct {
	events  chan pooledEvent
	workers int
	stop    chan struct{}
	wg      sync.WaitGroup

	// mu orders sends against Close: Notify sends under the read lock and
	// Close flips closed under the write lock, so every accepted event is
	// buffered before the workers start draining.
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Uint64
	processed atomic.Uint64
}

type pooledEvent struct {
	ev        Event
	observers []Observer
}

// ObserverPoolStats reports pool telemetry.
type ObserverPoolStats struct {
	Dropped    uint64 // events lost to a full buffer
	Processed  uint64
	Pending    int // events waiting in the buffer
	Workers    int
	BufferSize int
}

// NewObserverPool starts workers goroutines reading from a buffer of bufferSize
// events. Use a single worker when observers depend on event order.
func NewObserverPool(workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}
	op := &ObserverPool{
		events:  make(chan pooledEvent, bufferSize),
		workers: workers,
		stop:    make(chan struct{}),
	}
	op.wg.Add(workers)
	for range workers {
		go op.run()
	}
	return op
}

// Notify queues e for observers without blocking. It reports whether the event
// was accepted; events offered after Close are rejected without being counted
// and events hitting a full buffer count as dropped.
func (op *ObserverPool) Notify(e Event, observers []Observer) bool {
	if len(observers) == 0 {
		return false
	}
	op.mu.RLock()
	defer op.mu.RUnlock()
	if op.closed {
		return false
	}
	select {
	case op.events <- pooledEvent{ev: e, observers: observers}:
		return true
	default:
		op.dropped.Add(1)
		return false
	}
}

func (op *ObserverPool) run() {
	defer op.wg.Done()
	for {
		select {
		case pe := <-op.events:
			op.deliver(pe)
		case <-op.stop:
			for {
				select {
				case pe := <-op.events:
					op.deliver(pe)
				default:
					return
				}
			}
		}
	}
}

func (op *ObserverPool) deliver(pe pooledEvent) {
	for _, obs := range pe.observers {
		deliver(obs, pe.ev)
	}
	op.processed.Add(1)
}

// Close stops accepting events and waits for the buffered ones to be delivered,
// or for ctx to end.
func (op *ObserverPool) Close(ctx context.Context) error {
	op.mu.Lock()
	if op.closed {
		op.mu.Unlock()
		return nil
	}
	op.closed = true
	close(op.stop)
	op.mu.Unlock()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() ObserverPoolStats {
	return ObserverPoolStats{
		Dropped:    op.dropped.Load(),
		Processed:  op.processed.Load(),
		Pending:    len(op.events),
		Workers:    op.workers,
		BufferSize: cap(op.events),
	}
}
