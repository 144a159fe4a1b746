package xexec

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"time"
)

// Registry maps each concrete payload type to its dynamic bus, static bus,
// work item pool and payload pool. Entries are created lazily on first use and
// share the registry's logger, clock, middlewares and observers.
type Registry struct {
	eng *engine

	mu      sync.Mutex
	entries map[reflect.Type]*entry
	order   []reflect.Type

	sinks     []Sink
	closeOnce sync.Once
}

type entry struct {
	name     string
	items    any // *Pool[WorkItem[P]]
	dynamic  any // *DynamicBus[P]
	static   any // *StaticBus[P]
	payloads any // *PayloadPool[T, P]
}

// resettable is implemented by both bus kinds.
type resettable interface {
	resetAll()
}

func newRegistry(eng *engine) *Registry {
	return &Registry{eng: eng, entries: make(map[reflect.Type]*entry)}
}

// DynamicOf returns the dynamic bus for P, creating it on first use.
// A nil registry means Default().
func DynamicOf[P Payload](r *Registry) *DynamicBus[P] {
	r = orDefault(r)
	r.mu.Lock()
	defer r.mu.Unlock()
	e := lookup[P](r)
	if e.dynamic == nil {
		e.dynamic = newDynamicBus[P](r.eng, e.items.(*Pool[WorkItem[P]]))
	}
	return e.dynamic.(*DynamicBus[P])
}

// StaticOf returns the static bus for P, creating it on first use.
// A nil registry means Default().
func StaticOf[P Payload](r *Registry) *StaticBus[P] {
	r = orDefault(r)
	r.mu.Lock()
	defer r.mu.Unlock()
	e := lookup[P](r)
	if e.static == nil {
		e.static = newStaticBus[P](r.eng, e.items.(*Pool[WorkItem[P]]))
	}
	return e.static.(*StaticBus[P])
}

// PayloadsOf returns the payload pool for *T, creating it on first use.
func PayloadsOf[T any, P PayloadPtr[T]](r *Registry) *PayloadPool[T, P] {
	r = orDefault(r)
	r.mu.Lock()
	defer r.mu.Unlock()
	e := lookup[P](r)
	if e.payloads == nil {
		e.payloads = NewPayloadPool[T, P]()
	}
	return e.payloads.(*PayloadPool[T, P])
}

// Acquire takes a clean *T from the registry's payload pool. Release it on
// every exit path of the caller, typically via defer:
//
//	p := xexec.Acquire[TurnStarted](reg)
//	defer p.Release()
func Acquire[T any, P PayloadPtr[T]](r *Registry) P {
	return PayloadsOf[T, P](r).Get()
}

// lookup returns the entry for P; r.mu must be held.
func lookup[P Payload](r *Registry) *entry {
	t := reflect.TypeFor[P]()
	if e, ok := r.entries[t]; ok {
		return e
	}
	e := &entry{name: payloadName[P](), items: newItemPool[P]()}
	r.entries[t] = e
	r.order = append(r.order, t)
	return e
}

// Reset clears every listener and handler of every payload type seen so far.
// Buses stay valid; callers holding them keep working against empty queues.
func (r *Registry) Reset() {
	r.mu.Lock()
	buses := make([]resettable, 0, 2*len(r.order))
	for _, t := range r.order {
		e := r.entries[t]
		if d, ok := e.dynamic.(resettable); ok {
			buses = append(buses, d)
		}
		if s, ok := e.static.(resettable); ok {
			buses = append(buses, s)
		}
	}
	r.mu.Unlock()

	for _, b := range buses {
		b.resetAll()
	}
	r.eng.logger.Debug().Msg("xexec: registry reset")
}

// Types lists the payload types known to the registry, in first-use order.
func (r *Registry) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.order))
	for _, t := range r.order {
		names = append(names, r.entries[t].name)
	}
	return slices.Clip(names)
}

// Stats returns registry-wide telemetry.
func (r *Registry) Stats() Stats { return r.eng.stats() }

// AddObserver registers an observer for lifecycle events.
func (r *Registry) AddObserver(obs Observer) { r.eng.addObserver(obs) }

// RemoveObserver removes an observer.
func (r *Registry) RemoveObserver(obs Observer) { r.eng.removeObserver(obs) }

// Close drains the observer pool and closes journal sinks. Buses remain usable;
// lifecycle events are dropped afterwards.
func (r *Registry) Close(ctx context.Context) error {
	var closeErr error
	r.closeOnce.Do(func() {
		if r.eng.observerPool != nil {
			pctx := ctx
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
			}
			if err := r.eng.observerPool.Close(pctx); err != nil {
				r.eng.logger.Warn().Err(err).Msg("xexec: observer pool shutdown timeout")
				closeErr = err
			}
		}
		for _, s := range r.sinks {
			if err := s.Close(ctx); err != nil {
				r.eng.logger.Error().Err(err).Msg("xexec: journal sink close failed")
				closeErr = err
			}
		}
	})
	return closeErr
}
