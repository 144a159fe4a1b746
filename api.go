// Package xexec is a priority-ordered, cooperative event dispatcher.
//
// Every concrete payload type (a pointer to a struct embedding Chain) gets one
// DynamicBus, whose listeners decide per invocation what work to enqueue, and
// one StaticBus, whose handlers are registered once with fixed priorities.
// Work items run strictly one after another in priority order; any of them may
// break the chain to skip the rest.
//
//	type TurnStarted struct {
//	    xexec.Chain
//	    Turn int
//	}
//
//	reg, closeFn, _ := xexec.New(nil)
//	defer closeFn()
//
//	xexec.StaticOf[*TurnStarted](reg).Register("regen", 10, func(ctx context.Context, e *TurnStarted) error {
//	    return nil
//	})
//
//	p := xexec.Acquire[TurnStarted](reg)
//	defer p.Release()
//	p.Turn = 3
//	res, err := xexec.StaticOf[*TurnStarted](reg).Invoke(ctx, p)
package xexec

import "context"

// Invoker is implemented by both bus kinds.
type Invoker[P Payload] interface {
	Invoke(ctx context.Context, p P) (Result, error)
	IsExecuting() bool
}
